package cert

import (
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"time"
)

// Verification errors.
var (
	ErrCertExpired     = errors.New("certificate has expired")
	ErrCertNotYetValid = errors.New("certificate is not yet valid")
)

// CheckValidity reports whether cert is inside its validity window at now.
func CheckValidity(cert *x509.Certificate, now time.Time) error {
	if cert == nil {
		return ErrInvalidCert
	}
	if now.Before(cert.NotBefore) {
		return ErrCertNotYetValid
	}
	if now.After(cert.NotAfter) {
		return ErrCertExpired
	}
	return nil
}

// CertificateInfo is a human-readable summary of a certificate.
type CertificateInfo struct {
	CommonName  string
	Issuer      string
	NotBefore   time.Time
	NotAfter    time.Time
	KeyBits     int
	Fingerprint string
	SelfSigned  bool
}

// GetCertificateInfo summarizes a certificate.
func GetCertificateInfo(cert *x509.Certificate) *CertificateInfo {
	if cert == nil {
		return nil
	}

	info := &CertificateInfo{
		CommonName:  cert.Subject.CommonName,
		Issuer:      cert.Issuer.CommonName,
		NotBefore:   cert.NotBefore,
		NotAfter:    cert.NotAfter,
		Fingerprint: Fingerprint(cert),
		SelfSigned:  cert.CheckSignatureFrom(cert) == nil,
	}
	if pub, ok := cert.PublicKey.(*rsa.PublicKey); ok {
		info.KeyBits = pub.N.BitLen()
	}
	return info
}
