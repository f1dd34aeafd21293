package transport

import (
	"crypto/x509"
	"net"
)

// Connection is a framed peer connection.
// Implemented by Conn.
type Connection interface {
	// ID returns the unique connection identifier.
	ID() string

	// RemoteAddr returns the peer address.
	RemoteAddr() net.Addr

	// LocalCertificate returns this endpoint's certificate, if known.
	LocalCertificate() *x509.Certificate

	// PeerCertificate returns the peer's certificate, if any.
	PeerCertificate() *x509.Certificate

	// ReadFrame reads the next frame.
	ReadFrame() (Frame, error)

	// WriteFrame writes one frame.
	WriteFrame(payload []byte) error

	// Close closes the connection.
	Close() error
}

// FrameReadWriter provides length-prefixed frame I/O.
// Implemented by Framer.
type FrameReadWriter interface {
	// ReadFrame reads the next frame.
	ReadFrame() (Frame, error)

	// WriteFrame writes one frame.
	WriteFrame(payload []byte) error
}

var (
	_ Connection      = (*Conn)(nil)
	_ FrameReadWriter = (*Framer)(nil)
)
