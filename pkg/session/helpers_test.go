package session_test

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gtv-remote/gtv-go/pkg/cert"
	"github.com/gtv-remote/gtv-go/pkg/connection"
	"github.com/gtv-remote/gtv-go/pkg/protocol"
	"github.com/gtv-remote/gtv-go/pkg/session"
	"github.com/gtv-remote/gtv-go/pkg/session/mocks"
	"github.com/gtv-remote/gtv-go/pkg/transport"
)

const (
	testHost     = "192.0.2.10"
	testKeyBits  = 1024
	waitTimeout  = 2 * time.Second
	waitInterval = 5 * time.Millisecond
)

// fakeConn is an in-memory transport.Connection. Reads block until the
// test pushes a frame or the connection is closed.
type fakeConn struct {
	id     string
	addr   string
	local  *x509.Certificate
	peer   *x509.Certificate
	in     chan []byte
	out    chan []byte
	closed chan struct{}
	once   sync.Once

	mu       sync.Mutex
	writeErr error
}

func newFakeConn(id, addr string, local, peer *x509.Certificate) *fakeConn {
	return &fakeConn{
		id:     id,
		addr:   addr,
		local:  local,
		peer:   peer,
		in:     make(chan []byte, 16),
		out:    make(chan []byte, 256),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) RemoteAddr() net.Addr {
	addr, _ := net.ResolveTCPAddr("tcp", c.addr)
	return addr
}

func (c *fakeConn) LocalCertificate() *x509.Certificate { return c.local }
func (c *fakeConn) PeerCertificate() *x509.Certificate  { return c.peer }

func (c *fakeConn) ReadFrame() (transport.Frame, error) {
	select {
	case p := <-c.in:
		return transport.Frame{Payload: p}, nil
	case <-c.closed:
		return transport.Frame{}, transport.NewConnError("read", c.addr, io.EOF)
	}
}

func (c *fakeConn) WriteFrame(payload []byte) error {
	select {
	case <-c.closed:
		return transport.NewConnError("write", c.addr, transport.ErrConnectionClosed)
	default:
	}
	c.mu.Lock()
	err := c.writeErr
	c.mu.Unlock()
	if err != nil {
		return transport.NewConnError("write", c.addr, err)
	}
	c.out <- append([]byte(nil), payload...)
	return nil
}

// failWrites makes every following write fail with err.
func (c *fakeConn) failWrites(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writeErr = err
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// push delivers a frame from the device.
func (c *fakeConn) push(hexPayload string) {
	c.in <- protocol.Encode(hexPayload)
}

// next waits for the next written payload and returns it as hex.
func (c *fakeConn) next(t *testing.T) string {
	t.Helper()
	select {
	case p := <-c.out:
		return protocol.Decode(p)
	case <-time.After(waitTimeout):
		t.Fatalf("no frame written by %s", c.id)
		return ""
	}
}

// expectWrite reads written payloads until one satisfies match.
func (c *fakeConn) expectWrite(t *testing.T, match func(string) bool) string {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case p := <-c.out:
			if h := protocol.Decode(p); match(h) {
				return h
			}
		case <-deadline:
			t.Fatalf("expected frame not written by %s", c.id)
			return ""
		}
	}
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// fakeNetwork hands out fake connections and records dial attempts.
type fakeNetwork struct {
	mu     sync.Mutex
	device *x509.Certificate
	dials  []string
	conns  []*fakeConn
	fail   map[string]error
}

func newFakeNetwork(t *testing.T) *fakeNetwork {
	t.Helper()
	id, err := cert.GenerateIdentity("device", testKeyBits)
	require.NoError(t, err)
	return &fakeNetwork{device: id.Certificate, fail: make(map[string]error)}
}

// failWith makes dials to address fail with err until cleared.
func (n *fakeNetwork) failWith(address string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err == nil {
		delete(n.fail, address)
		return
	}
	n.fail[address] = err
}

func (n *fakeNetwork) Dial(_ context.Context, address string, tlsConfig *tls.Config) (transport.Connection, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	n.dials = append(n.dials, address)
	if err := n.fail[address]; err != nil {
		return nil, err
	}

	var local *x509.Certificate
	if len(tlsConfig.Certificates) > 0 {
		local, _ = transport.LeafCertificate(tlsConfig.Certificates[0])
	}
	c := newFakeConn(fmt.Sprintf("conn-%d", len(n.conns)+1), address, local, n.device)
	n.conns = append(n.conns, c)
	return c, nil
}

func (n *fakeNetwork) Probe(context.Context, string, time.Duration) error {
	return nil
}

func (n *fakeNetwork) dialCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.dials)
}

func (n *fakeNetwork) dialed(i int) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.dials[i]
}

func (n *fakeNetwork) conn(i int) *fakeConn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conns[i]
}

func (n *fakeNetwork) last() *fakeConn {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.conns[len(n.conns)-1]
}

// newTestConfig returns a config wired to nw with an in-memory keystore.
func newTestConfig(nw *fakeNetwork) session.Config {
	cfg := session.DefaultConfig()
	cfg.Host = testHost
	cfg.Store = cert.NewMemoryStore()
	cfg.KeyBits = testKeyBits
	cfg.HealthCheckInterval = 0
	cfg.Dial = nw.Dial
	cfg.Probe = nw.Probe
	return cfg
}

// newCallback returns a mock callback on sched that tolerates any update.
func newCallback(t *testing.T, sched connection.Scheduler) *mocks.MockCallback {
	cb := mocks.NewMockCallback(t)
	cb.EXPECT().ThingID().Return("living-room").Maybe()
	cb.EXPECT().Scheduler().Return(sched).Maybe()
	return cb
}

func allowUpdates(cb *mocks.MockCallback) {
	cb.EXPECT().UpdateProperty(mock.Anything, mock.Anything).Return().Maybe()
	cb.EXPECT().UpdateChannel(mock.Anything, mock.Anything).Return().Maybe()
	cb.EXPECT().UpdateStatus(mock.Anything, mock.Anything, mock.Anything).Return().Maybe()
}

// statusRecorder collects UpdateStatus calls.
type statusRecorder struct {
	mu      sync.Mutex
	details []session.StatusDetail
}

func (r *statusRecorder) record(_ session.Status, detail session.StatusDetail, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.details = append(r.details, detail)
}

func (r *statusRecorder) has(detail session.StatusDetail) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.details {
		if d == detail {
			return true
		}
	}
	return false
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, waitTimeout, waitInterval, msg)
}
