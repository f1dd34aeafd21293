package transport

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
)

// Port constants.
const (
	// DefaultPort is the remote control port.
	DefaultPort = 6466

	// PairingPortOffset is added to the remote port to reach the
	// pairing service.
	PairingPortOffset = 1
)

// TLSConfig holds the certificates for one endpoint.
type TLSConfig struct {
	// Certificate is this controller's certificate and key.
	Certificate tls.Certificate

	// DeviceCA is the device certificate saved after pairing. When set,
	// the remote connection only accepts a device certificate that is
	// this certificate or signed by it.
	DeviceCA *x509.Certificate

	// ServerName is sent as SNI.
	ServerName string
}

// NewClientTLSConfig creates the configuration for the remote connection.
//
// Devices present self-signed certificates, so chain verification is
// replaced by an optional check against the paired device certificate.
func NewClientTLSConfig(cfg *TLSConfig) (*tls.Config, error) {
	if cfg == nil || len(cfg.Certificate.Certificate) == 0 {
		return nil, ErrMissingCertificate
	}

	deviceCA := cfg.DeviceCA
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		Certificates:       []tls.Certificate{cfg.Certificate},
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: true,
		VerifyPeerCertificate: func(rawCerts [][]byte, _ [][]*x509.Certificate) error {
			if deviceCA == nil {
				return nil
			}
			return verifyPinned(rawCerts, deviceCA)
		},
	}, nil
}

// NewPairingTLSConfig creates the configuration for the pairing
// connection. Any device certificate is accepted; the PIN exchange binds
// both certificates.
func NewPairingTLSConfig(cert tls.Certificate) (*tls.Config, error) {
	if len(cert.Certificate) == 0 {
		return nil, ErrMissingCertificate
	}
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		Certificates:       []tls.Certificate{cert},
		InsecureSkipVerify: true,
	}, nil
}

// NewServerTLSConfig creates the configuration for the relay listener.
// A client certificate is required but not verified: the relay needs it
// to compute the controller-side pairing digest.
func NewServerTLSConfig(cert tls.Certificate) (*tls.Config, error) {
	if len(cert.Certificate) == 0 {
		return nil, ErrMissingCertificate
	}
	return &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.RequireAnyClientCert,
	}, nil
}

// verifyPinned accepts a leaf certificate that equals ca or is signed by it.
func verifyPinned(rawCerts [][]byte, ca *x509.Certificate) error {
	if len(rawCerts) == 0 {
		return ErrNoPeerCertificate
	}
	leaf, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return fmt.Errorf("parse peer certificate: %w", err)
	}
	if leaf.Equal(ca) {
		return nil
	}
	if err := leaf.CheckSignatureFrom(ca); err != nil {
		return fmt.Errorf("%w: %v", ErrUntrustedPeer, err)
	}
	return nil
}

// PeerCertificate returns the leaf certificate the peer presented.
func PeerCertificate(state tls.ConnectionState) (*x509.Certificate, error) {
	if len(state.PeerCertificates) == 0 {
		return nil, ErrNoPeerCertificate
	}
	return state.PeerCertificates[0], nil
}

// LeafCertificate returns the parsed leaf of a tls.Certificate.
func LeafCertificate(cert tls.Certificate) (*x509.Certificate, error) {
	if cert.Leaf != nil {
		return cert.Leaf, nil
	}
	if len(cert.Certificate) == 0 {
		return nil, ErrMissingCertificate
	}
	return x509.ParseCertificate(cert.Certificate[0])
}

func firstLeaf(cfg *tls.Config) *x509.Certificate {
	if len(cfg.Certificates) == 0 {
		return nil
	}
	leaf, err := LeafCertificate(cfg.Certificates[0])
	if err != nil {
		return nil
	}
	return leaf
}
