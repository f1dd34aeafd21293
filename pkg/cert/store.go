package cert

import (
	"crypto/x509"
	"errors"
)

// Store errors.
var (
	ErrCertNotFound     = errors.New("certificate not found")
	ErrInvalidCert      = errors.New("invalid certificate")
	ErrKeystoreLocked   = errors.New("keystore password incorrect")
	ErrKeystoreCorrupt  = errors.New("keystore unreadable")
	ErrUnsupportedKey   = errors.New("keystore key is not RSA")
	ErrKeystoreNotFound = errors.New("keystore not found")
)

// Store holds the controller identity and the paired device certificate
// for one device. Implementations must be safe for concurrent access.
type Store interface {
	// Identity returns the controller identity.
	// Returns ErrCertNotFound if none has been set.
	Identity() (*Identity, error)

	// SetIdentity replaces the controller identity.
	SetIdentity(id *Identity) error

	// DeviceCA returns the certificate saved when pairing completed.
	// Returns ErrCertNotFound before the first pairing.
	DeviceCA() (*x509.Certificate, error)

	// SetDeviceCA stores the paired device certificate.
	SetDeviceCA(cert *x509.Certificate) error

	// Save persists the store.
	Save() error

	// Load reads the store. Returns ErrKeystoreNotFound when there is
	// nothing to read yet.
	Load() error
}

// LoadOrCreate loads the store and returns its identity, generating and
// saving a new identity when the store is empty.
func LoadOrCreate(s Store, commonName string, bits int) (*Identity, error) {
	err := s.Load()
	if err != nil && !errors.Is(err, ErrKeystoreNotFound) {
		return nil, err
	}

	id, err := s.Identity()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrCertNotFound) {
		return nil, err
	}

	id, err = GenerateIdentity(commonName, bits)
	if err != nil {
		return nil, err
	}
	if err := s.SetIdentity(id); err != nil {
		return nil, err
	}
	if err := s.Save(); err != nil {
		return nil, err
	}
	return id, nil
}
