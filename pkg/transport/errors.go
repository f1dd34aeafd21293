package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrorKind classifies connection failures by how a session recovers.
type ErrorKind int

const (
	// KindTransient failures are retried after the reconnect delay.
	KindTransient ErrorKind = iota

	// KindPairingRequired means the device rejected our certificate and
	// a PIN pairing must run before reconnecting.
	KindPairingRequired

	// KindHardDrop means the peer ended the connection; reconnect at once.
	KindHardDrop

	// KindFatal failures are not retried.
	KindFatal
)

// String returns the kind name.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPairingRequired:
		return "pairing-required"
	case KindHardDrop:
		return "hard-drop"
	case KindFatal:
		return "fatal"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Connection errors.
var (
	ErrConnectionClosed   = errors.New("connection closed")
	ErrMissingCertificate = errors.New("certificate is required")
	ErrUntrustedPeer      = errors.New("peer certificate not signed by paired device")
	ErrNoPeerCertificate  = errors.New("peer presented no certificate")
)

// ConnError is a classified connection failure.
type ConnError struct {
	// Op is the operation that failed ("dial", "handshake", "read", ...).
	Op string

	// Addr is the peer address.
	Addr string

	// Kind is the classification of Err.
	Kind ErrorKind

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ConnError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s (%s): %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Addr, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConnError) Unwrap() error {
	return e.Err
}

// NewConnError classifies err and wraps it. A nil err yields nil.
func NewConnError(op, addr string, err error) error {
	if err == nil {
		return nil
	}
	var ce *ConnError
	if errors.As(err, &ce) {
		return err
	}
	return &ConnError{Op: op, Addr: addr, Kind: Classify(err), Err: err}
}

// certificateRejections are the TLS alert texts a device sends when it
// does not know our certificate.
var certificateRejections = []string{
	"unknown certificate",
	"certificate unknown",
	"bad certificate",
	"certificate required",
}

// Alert codes for certificate_unknown, bad_certificate, unknown_ca and
// certificate_required.
var certificateAlerts = map[tls.AlertError]bool{
	46:  true,
	42:  true,
	48:  true,
	116: true,
}

// Classify returns the kind of a connection error. An existing ConnError
// keeps its kind. This is the only place that inspects TLS alert text.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindTransient
	}

	var ce *ConnError
	if errors.As(err, &ce) {
		return ce.Kind
	}

	switch {
	case errors.Is(err, ErrMissingCertificate), errors.Is(err, context.Canceled):
		return KindFatal
	case errors.Is(err, ErrUntrustedPeer):
		return KindPairingRequired
	case errors.Is(err, ErrHardDrop), errors.Is(err, io.EOF),
		errors.Is(err, ErrFrameTruncated), errors.Is(err, ErrConnectionClosed):
		return KindHardDrop
	}

	var alert tls.AlertError
	if errors.As(err, &alert) && certificateAlerts[alert] {
		return KindPairingRequired
	}

	msg := strings.ToLower(err.Error())
	for _, text := range certificateRejections {
		if strings.Contains(msg, text) {
			return KindPairingRequired
		}
	}
	return KindTransient
}
