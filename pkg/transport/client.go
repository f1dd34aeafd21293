package transport

import (
	"context"
	"crypto/tls"
	"net"
	"time"

	"github.com/gtv-remote/gtv-go/pkg/log"
)

// DefaultConnectTimeout bounds the TCP connect and TLS handshake.
const DefaultConnectTimeout = 10 * time.Second

// Dialer opens TLS connections to a device.
type Dialer struct {
	// TLSConfig is the client configuration.
	TLSConfig *tls.Config

	// Timeout bounds connect plus handshake (default DefaultConnectTimeout).
	Timeout time.Duration

	// Logger, Mode and ThingID are passed to the connection.
	Logger  log.Logger
	Mode    log.Mode
	ThingID string
}

// Dial connects to address and completes the TLS handshake. Failures are
// returned as *ConnError.
func (d *Dialer) Dial(ctx context.Context, address string) (*Conn, error) {
	if d.TLSConfig == nil {
		return nil, &ConnError{Op: "dial", Addr: address, Kind: KindFatal, Err: ErrMissingCertificate}
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = DefaultConnectTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	nd := &net.Dialer{}
	raw, err := nd.DialContext(ctx, "tcp", address)
	if err != nil {
		return nil, NewConnError("dial", address, err)
	}

	tlsConn := tls.Client(raw, d.TLSConfig)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		raw.Close()
		return nil, NewConnError("handshake", address, err)
	}

	return NewConn(tlsConn, ConnOptions{
		Local:   firstLeaf(d.TLSConfig),
		Logger:  d.Logger,
		Mode:    d.Mode,
		ThingID: d.ThingID,
	}), nil
}

// Probe reports whether a TCP connection to address can be opened within
// timeout. The connection is closed immediately.
func Probe(ctx context.Context, address string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	nd := &net.Dialer{}
	c, err := nd.DialContext(ctx, "tcp", address)
	if err != nil {
		return NewConnError("probe", address, err)
	}
	return c.Close()
}
