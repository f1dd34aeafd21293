package cert

import (
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"strings"
	"time"
)

const (
	// IdentityValidity is the validity period of a generated controller
	// certificate. Devices bind pairing to the key, so it is long.
	IdentityValidity = 20 * 365 * 24 * time.Hour

	// DefaultKeyBits is the RSA key size for generated identities.
	DefaultKeyBits = 2048
)

// Identity is the controller's long-lived key pair and self-signed
// certificate presented to devices.
type Identity struct {
	// Certificate is the self-signed X.509 certificate.
	Certificate *x509.Certificate

	// PrivateKey is the RSA private key. The pairing digest is computed
	// over RSA moduli, so only RSA keys are supported.
	PrivateKey *rsa.PrivateKey
}

// TLSCertificate converts the identity for use in a tls.Config.
func (id *Identity) TLSCertificate() tls.Certificate {
	if id == nil || id.Certificate == nil || id.PrivateKey == nil {
		return tls.Certificate{}
	}
	return tls.Certificate{
		Certificate: [][]byte{id.Certificate.Raw},
		PrivateKey:  id.PrivateKey,
		Leaf:        id.Certificate,
	}
}

// ExpiresAt returns when the certificate expires.
func (id *Identity) ExpiresAt() time.Time {
	if id == nil || id.Certificate == nil {
		return time.Time{}
	}
	return id.Certificate.NotAfter
}

// Fingerprint returns the SHA-256 fingerprint of a certificate as
// colon-separated upper-case hex.
func Fingerprint(cert *x509.Certificate) string {
	if cert == nil {
		return ""
	}
	sum := sha256.Sum256(cert.Raw)
	h := strings.ToUpper(hex.EncodeToString(sum[:]))
	parts := make([]string, 0, len(sum))
	for i := 0; i < len(h); i += 2 {
		parts = append(parts, h[i:i+2])
	}
	return strings.Join(parts, ":")
}
