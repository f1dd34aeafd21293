package cert

import (
	"crypto/rsa"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"software.sslmate.com/src/go-pkcs12"
)

// KeystoreExtension is the file extension of PKCS#12 keystores.
const KeystoreExtension = ".p12"

// KeystorePath returns the keystore file for a device. Relay sessions use
// their own keystore so the relay identity never replaces the controller's.
func KeystorePath(dir, thingID string, shim bool) string {
	name := thingID
	if shim {
		name += "-shim"
	}
	return filepath.Join(dir, name+KeystoreExtension)
}

// FileStore is a Store backed by one password protected PKCS#12 file
// holding the identity key, its certificate and, once paired, the device
// certificate as the only CA entry.
type FileStore struct {
	mu       sync.RWMutex
	path     string
	password string

	identity *Identity
	deviceCA *x509.Certificate
}

// NewFileStore creates a FileStore for path. Nothing is read until Load.
func NewFileStore(path, password string) *FileStore {
	return &FileStore{path: path, password: password}
}

// Path returns the keystore file path.
func (s *FileStore) Path() string {
	return s.path
}

// Identity returns the controller identity.
func (s *FileStore) Identity() (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return nil, ErrCertNotFound
	}
	return s.identity, nil
}

// SetIdentity replaces the controller identity. A new identity is not
// known to the device, so the device certificate is forgotten.
func (s *FileStore) SetIdentity(id *Identity) error {
	if id == nil || id.Certificate == nil || id.PrivateKey == nil {
		return ErrInvalidCert
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.identity != nil && !s.identity.Certificate.Equal(id.Certificate) {
		s.deviceCA = nil
	}
	s.identity = id
	return nil
}

// DeviceCA returns the paired device certificate.
func (s *FileStore) DeviceCA() (*x509.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.deviceCA == nil {
		return nil, ErrCertNotFound
	}
	return s.deviceCA, nil
}

// SetDeviceCA stores the paired device certificate.
func (s *FileStore) SetDeviceCA(cert *x509.Certificate) error {
	if cert == nil {
		return ErrInvalidCert
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceCA = cert
	return nil
}

// Save writes the keystore. The file is replaced atomically and is only
// readable by the owner.
func (s *FileStore) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return ErrCertNotFound
	}

	var caCerts []*x509.Certificate
	if s.deviceCA != nil {
		caCerts = []*x509.Certificate{s.deviceCA}
	}
	pfx, err := pkcs12.Modern.Encode(s.identity.PrivateKey, s.identity.Certificate, caCerts, s.password)
	if err != nil {
		return fmt.Errorf("encode keystore: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(pfx); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load reads the keystore. It returns ErrKeystoreNotFound when the file
// does not exist and ErrKeystoreLocked when the password is wrong.
func (s *FileStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrKeystoreNotFound, s.path)
		}
		return err
	}

	key, cert, caCerts, err := pkcs12.DecodeChain(data, s.password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return fmt.Errorf("%w: %s", ErrKeystoreLocked, s.path)
		}
		return fmt.Errorf("%w: %s: %v", ErrKeystoreCorrupt, s.path, err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = &Identity{Certificate: cert, PrivateKey: rsaKey}
	s.deviceCA = nil
	if len(caCerts) > 0 {
		s.deviceCA = caCerts[0]
	}
	return nil
}

// Remove deletes the keystore file and clears the store.
func (s *FileStore) Remove() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = nil
	s.deviceCA = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

var _ Store = (*FileStore)(nil)
