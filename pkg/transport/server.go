package transport

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/gtv-remote/gtv-go/pkg/log"
)

// DefaultHandshakeTimeout bounds the TLS handshake of accepted connections.
const DefaultHandshakeTimeout = 10 * time.Second

// ErrListenerClosed is returned by Accept after Close.
var ErrListenerClosed = errors.New("listener closed")

// ListenerConfig configures a Listener.
type ListenerConfig struct {
	// Address to listen on (e.g. ":6466").
	Address string

	// TLSConfig is the server configuration, see NewServerTLSConfig.
	TLSConfig *tls.Config

	// HandshakeTimeout bounds each handshake (default DefaultHandshakeTimeout).
	HandshakeTimeout time.Duration

	// Logger, Mode and ThingID are passed to accepted connections.
	Logger  log.Logger
	Mode    log.Mode
	ThingID string
}

// Listener accepts TLS connections from controllers.
type Listener struct {
	config   ListenerConfig
	listener net.Listener
	closed   atomic.Bool
}

// Listen starts listening on cfg.Address.
func Listen(cfg ListenerConfig) (*Listener, error) {
	if cfg.TLSConfig == nil {
		return nil, ErrMissingCertificate
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = DefaultHandshakeTimeout
	}
	l, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.Address, err)
	}
	return &Listener{config: cfg, listener: l}, nil
}

// Addr returns the listen address.
func (l *Listener) Addr() net.Addr {
	return l.listener.Addr()
}

// Accept waits for the next connection and completes its handshake.
//
// A failed handshake returns a *ConnError; the listener stays usable.
// After Close, Accept returns ErrListenerClosed.
func (l *Listener) Accept(ctx context.Context) (*Conn, error) {
	raw, err := l.listener.Accept()
	if err != nil {
		if l.closed.Load() {
			return nil, ErrListenerClosed
		}
		return nil, fmt.Errorf("accept: %w", err)
	}

	hctx, cancel := context.WithTimeout(ctx, l.config.HandshakeTimeout)
	defer cancel()

	tlsConn := tls.Server(raw, l.config.TLSConfig)
	if err := tlsConn.HandshakeContext(hctx); err != nil {
		raw.Close()
		return nil, NewConnError("handshake", raw.RemoteAddr().String(), err)
	}

	return NewConn(tlsConn, ConnOptions{
		Local:   firstLeaf(l.config.TLSConfig),
		Logger:  l.config.Logger,
		Mode:    l.config.Mode,
		ThingID: l.config.ThingID,
	}), nil
}

// Close stops the listener. Blocked Accept calls return ErrListenerClosed.
func (l *Listener) Close() error {
	if l.closed.Swap(true) {
		return nil
	}
	return l.listener.Close()
}
