package transport

import (
	"crypto/tls"
	"crypto/x509"
	"net"
	"sync"

	"github.com/google/uuid"

	"github.com/gtv-remote/gtv-go/pkg/log"
)

// ConnOptions configure a Conn.
type ConnOptions struct {
	// Local is this endpoint's certificate (optional).
	Local *x509.Certificate

	// Logger receives protocol events (optional).
	Logger log.Logger

	// Mode and ThingID are stamped on every event.
	Mode    log.Mode
	ThingID string
}

// Conn is one framed connection to a peer.
type Conn struct {
	conn   net.Conn
	framer *Framer
	id     string
	local  *x509.Certificate
	peer   *x509.Certificate
	tag    Tag
	logger log.Logger

	closeOnce sync.Once
	closeCh   chan struct{}
}

// NewConn wraps an established connection. For a *tls.Conn the handshake
// must be complete; the peer certificate is captured from it.
func NewConn(c net.Conn, opts ConnOptions) *Conn {
	id := uuid.New().String()
	tag := Tag{
		ConnectionID: id,
		RemoteAddr:   c.RemoteAddr().String(),
		Mode:         opts.Mode,
		ThingID:      opts.ThingID,
	}

	conn := &Conn{
		conn:    c,
		framer:  NewFramer(c),
		id:      id,
		local:   opts.Local,
		tag:     tag,
		logger:  opts.Logger,
		closeCh: make(chan struct{}),
	}
	if tc, ok := c.(*tls.Conn); ok {
		conn.peer, _ = PeerCertificate(tc.ConnectionState())
	}
	if opts.Logger != nil {
		conn.framer.SetLogger(opts.Logger, tag)
		opts.Logger.Log(tag.stateEvent("", "CONNECTED", ""))
	}
	return conn
}

// ID returns the unique connection identifier.
func (c *Conn) ID() string {
	return c.id
}

// RemoteAddr returns the peer address.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// LocalCertificate returns this endpoint's certificate, if known.
func (c *Conn) LocalCertificate() *x509.Certificate {
	return c.local
}

// PeerCertificate returns the certificate the peer presented, if any.
func (c *Conn) PeerCertificate() *x509.Certificate {
	return c.peer
}

// ReadFrame reads the next frame. Errors are classified ConnErrors.
// Must be called from a single goroutine.
func (c *Conn) ReadFrame() (Frame, error) {
	f, err := c.framer.ReadFrame()
	if err != nil {
		select {
		case <-c.closeCh:
			return Frame{}, &ConnError{Op: "read", Addr: c.tag.RemoteAddr, Kind: KindFatal, Err: ErrConnectionClosed}
		default:
		}
		return Frame{}, NewConnError("read", c.tag.RemoteAddr, err)
	}
	return f, nil
}

// WriteFrame writes one frame. Errors are classified ConnErrors.
func (c *Conn) WriteFrame(payload []byte) error {
	select {
	case <-c.closeCh:
		return &ConnError{Op: "write", Addr: c.tag.RemoteAddr, Kind: KindFatal, Err: ErrConnectionClosed}
	default:
	}
	return NewConnError("write", c.tag.RemoteAddr, c.framer.WriteFrame(payload))
}

// Done is closed when Close has been called.
func (c *Conn) Done() <-chan struct{} {
	return c.closeCh
}

// Close closes the connection. Safe to call more than once.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closeCh)
		err = c.conn.Close()
		if c.logger != nil {
			c.logger.Log(c.tag.stateEvent("CONNECTED", "DISCONNECTED", ""))
		}
	})
	return err
}
