package cert

import (
	"crypto/x509"
	"sync"
)

// MemoryStore is an in-memory Store. Save and Load are no-ops.
type MemoryStore struct {
	mu       sync.RWMutex
	identity *Identity
	deviceCA *x509.Certificate
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Identity returns the controller identity.
func (s *MemoryStore) Identity() (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return nil, ErrCertNotFound
	}
	return s.identity, nil
}

// SetIdentity replaces the controller identity.
func (s *MemoryStore) SetIdentity(id *Identity) error {
	if id == nil || id.Certificate == nil || id.PrivateKey == nil {
		return ErrInvalidCert
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.identity = id
	return nil
}

// DeviceCA returns the paired device certificate.
func (s *MemoryStore) DeviceCA() (*x509.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.deviceCA == nil {
		return nil, ErrCertNotFound
	}
	return s.deviceCA, nil
}

// SetDeviceCA stores the paired device certificate.
func (s *MemoryStore) SetDeviceCA(cert *x509.Certificate) error {
	if cert == nil {
		return ErrInvalidCert
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.deviceCA = cert
	return nil
}

// Save is a no-op.
func (s *MemoryStore) Save() error { return nil }

// Load is a no-op.
func (s *MemoryStore) Load() error { return nil }

var _ Store = (*MemoryStore)(nil)
