package session

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gtv-remote/gtv-go/pkg/cert"
	"github.com/gtv-remote/gtv-go/pkg/connection"
	"github.com/gtv-remote/gtv-go/pkg/log"
	"github.com/gtv-remote/gtv-go/pkg/protocol"
	"github.com/gtv-remote/gtv-go/pkg/transport"
)

// Session owns one connection to a device: a remote control session, a
// PIN pairing session, or the controller-facing side of a relay.
//
// At most one connection with one reader and one sender goroutine exists
// at a time. Connect, Disconnect and Reconnect are serialized by the
// connection lock; device mirrors are guarded by a separate mutex.
type Session struct {
	id       string
	config   Config
	callback Callback
	sched    connection.Scheduler
	registry *Registry
	store    cert.Store
	backoff  *connection.Backoff
	queue    *queue
	dial     DialFunc
	logger   *slog.Logger
	plog     log.Logger

	// parentID is set on a PIN session started by a remote session.
	parentID string

	ctx    context.Context
	cancel context.CancelFunc

	connMu sync.Mutex

	// dispatchMu serializes inbound payloads.
	dispatchMu sync.Mutex

	mu      sync.Mutex
	state   State
	link    *link
	device  DeviceState
	offline bool
	childID string
	relay   relayState

	// listener and accepting are used by relay sessions only.
	listener  *transport.Listener
	accepting sync.WaitGroup

	disposing atomic.Bool

	reconnectTimer connection.Slot
	keepaliveTimer connection.Slot
	healthTimer    connection.Slot
}

// link is one established connection and the goroutines serving it.
type link struct {
	conn  transport.Connection
	stop  chan struct{}
	loops sync.WaitGroup
}

// New creates a session. It registers itself in reg; a nil reg gives the
// session a private registry.
func New(cfg Config, cb Callback, reg *Registry) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newSession(cfg, cb, reg), nil
}

func newSession(cfg Config, cb Callback, reg *Registry) *Session {
	cfg = cfg.withDefaults()
	if cb == nil {
		cb = nopCallback{}
	}
	if reg == nil {
		reg = NewRegistry()
	}
	sched := cb.Scheduler()
	if sched == nil {
		sched = connection.NewTimeScheduler()
	}

	s := &Session{
		id:       uuid.New().String(),
		config:   cfg,
		callback: cb,
		sched:    sched,
		registry: reg,
		store:    cfg.Store,
		queue:    newQueue(cfg.QueueSize),
		plog:     cfg.ProtocolLogger,
		backoff: connection.NewBackoffWithConfig(connection.BackoffConfig{
			Initial: cfg.ReconnectDelay,
			Max:     cfg.ReconnectMaxDelay,
			Jitter:  connection.JitterFactor,
		}),
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())

	thingID := cb.ThingID()
	if s.store == nil {
		s.store = cert.NewFileStore(cert.KeystorePath(cfg.KeystoreDir, thingID, cfg.Shim), cfg.KeystorePassword)
	}
	if cfg.Logger != nil {
		s.logger = cfg.Logger.With("thing", thingID, "mode", s.modeName())
	}

	s.dial = cfg.Dial
	if s.dial == nil {
		d := transport.Dialer{
			Timeout: cfg.ConnectTimeout,
			Logger:  cfg.ProtocolLogger,
			Mode:    logMode(cfg.Mode, cfg.Shim),
			ThingID: thingID,
		}
		s.dial = func(ctx context.Context, address string, tlsConfig *tls.Config) (transport.Connection, error) {
			dd := d
			dd.TLSConfig = tlsConfig
			c, err := dd.Dial(ctx, address)
			if err != nil {
				return nil, err
			}
			return c, nil
		}
	}

	reg.Add(s)
	return s
}

// ID returns the session identifier used in the registry.
func (s *Session) ID() string {
	return s.id
}

// Mode returns the session mode.
func (s *Session) Mode() Mode {
	return s.config.Mode
}

// IsShim reports whether this is the controller-facing side of a relay.
func (s *Session) IsShim() bool {
	return s.config.Shim
}

// Config returns the effective configuration.
func (s *Session) Config() Config {
	return s.config
}

// ParentID returns the id of the session that started this PIN session.
func (s *Session) ParentID() string {
	return s.parentID
}

// ChildID returns the id of the running PIN session, if any.
func (s *Session) ChildID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.childID
}

// State returns the connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Device returns a copy of the device mirrors.
func (s *Session) Device() DeviceState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.device
}

// Connected reports whether a connection is up.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.link != nil
}

// PeerCertificate returns the certificate of the connected peer.
func (s *Session) PeerCertificate() *x509.Certificate {
	if c := s.currentConn(); c != nil {
		return c.PeerCertificate()
	}
	return nil
}

// Store returns the keystore of the session.
func (s *Session) Store() cert.Store {
	return s.store
}

// Connect opens the connection unless one is already up.
//
// Failures are handled before Connect returns: a rejected certificate
// starts a PIN session on the pairing port, transient errors schedule a
// reconnect and keystore errors report the device offline without retry.
// The returned error is informational.
func (s *Session) Connect() error {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	return s.connectLocked()
}

func (s *Session) connectLocked() error {
	if s.disposing.Load() {
		return ErrSessionDisposed
	}
	if s.config.Shim {
		return s.listenLocked()
	}

	s.mu.Lock()
	if s.link != nil {
		s.mu.Unlock()
		return nil
	}
	offline := s.offline
	s.mu.Unlock()

	if offline && s.config.Mode == ModeNormal {
		s.debug("Connect: skipped, device offline")
		return nil
	}

	s.setState(StateConnecting, "")
	s.startHealthCheck()

	tlsConfig, err := s.clientTLSConfig()
	if err != nil {
		s.setState(StateDisconnected, err.Error())
		s.logError(log.LayerSession, err, "keystore")
		s.status(StatusOffline, DetailConfigurationError, err.Error())
		return err
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.config.ConnectTimeout)
	conn, err := s.dial(ctx, s.config.Address(), tlsConfig)
	cancel()
	if err != nil {
		s.setState(StateDisconnected, err.Error())
		s.connectFailedLocked(err)
		return err
	}

	s.attachLocked(conn)
	return nil
}

// clientTLSConfig loads or creates the identity. Must hold connMu.
func (s *Session) clientTLSConfig() (*tls.Config, error) {
	id, err := cert.LoadOrCreate(s.store, s.config.Identity.ClientName, s.config.KeyBits)
	if err != nil {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	if s.config.Mode == ModePin {
		return transport.NewPairingTLSConfig(id.TLSCertificate())
	}

	ca, err := s.store.DeviceCA()
	if err != nil && !errors.Is(err, cert.ErrCertNotFound) {
		return nil, fmt.Errorf("keystore: %w", err)
	}
	return transport.NewClientTLSConfig(&transport.TLSConfig{
		Certificate: id.TLSCertificate(),
		DeviceCA:    ca,
		ServerName:  s.config.Host,
	})
}

// connectFailedLocked handles a failed dial. Must hold connMu.
func (s *Session) connectFailedLocked(err error) {
	kind := transport.Classify(err)
	s.logError(log.LayerTransport, err, "connect")
	s.warn("Connect: failed", "kind", kind, "error", err)

	switch kind {
	case transport.KindPairingRequired:
		if s.canPair() {
			s.startPairingLocked()
			return
		}
		s.status(StatusOffline, DetailCommunicationError, err.Error())
		s.scheduleReconnect()

	case transport.KindFatal:
		if s.disposing.Load() {
			return
		}
		s.status(StatusOffline, DetailConfigurationError, err.Error())

	default:
		s.status(StatusOffline, DetailCommunicationError, err.Error())
		s.scheduleReconnect()
	}
}

// attachLocked starts serving conn. Must hold connMu.
func (s *Session) attachLocked(conn transport.Connection) {
	l := &link{conn: conn, stop: make(chan struct{})}

	s.mu.Lock()
	s.link = l
	relayed := s.relay.shimID != ""
	s.mu.Unlock()

	switch {
	case s.config.Shim:
		s.setState(StateLoggedIn, "relaying "+conn.RemoteAddr().String())
	case s.config.Mode == ModePin:
		s.setState(StateLoggingIn, conn.RemoteAddr().String())
		if !relayed {
			s.sendLogin(protocol.StepPairingRequest, 0)
		}
	default:
		s.setState(StateHandshaking, conn.RemoteAddr().String())
		if !relayed {
			s.armKeepalive(conn)
		}
	}

	l.loops.Add(2)
	go s.readLoop(l)
	go s.sendLoop(l)
	s.info("connected", "remote", conn.RemoteAddr().String(), "conn", conn.ID())
}

func (s *Session) readLoop(l *link) {
	defer l.loops.Done()
	for {
		f, err := l.conn.ReadFrame()
		if err != nil {
			select {
			case <-l.stop:
				return
			default:
			}
			s.connectionLost(l.conn, err)
			return
		}
		s.receive(f)
	}
}

func (s *Session) sendLoop(l *link) {
	defer l.loops.Done()
	for {
		payload, ok := s.queue.pop(l.stop)
		if !ok {
			return
		}
		if err := l.conn.WriteFrame(payload); err != nil {
			s.queue.pushFront(payload)
			select {
			case <-l.stop:
				return
			default:
			}
			s.writeFailed(l.conn, err)
			return
		}
	}
}

// receive routes one inbound frame. Runs on the reader goroutine.
func (s *Session) receive(f transport.Frame) {
	if s.config.Shim {
		s.relayToTarget(f)
		return
	}
	if shim := s.attachedShim(); shim != nil {
		s.dispatch(f.Payload, false)
		s.relayToController(shim, f)
		return
	}
	s.dispatch(f.Payload, true)
}

// connectionLost handles a reader failure. Runs on the reader goroutine,
// so every action that waits for the loops runs asynchronously.
func (s *Session) connectionLost(conn transport.Connection, err error) {
	kind := transport.Classify(err)
	s.logError(log.LayerTransport, err, "read")
	s.warn("connection lost", "kind", kind, "error", err)

	if s.config.Shim {
		go s.controllerLost(conn)
		return
	}
	if shim := s.attachedShim(); shim != nil {
		go s.deviceLost(conn, shim)
		return
	}

	switch kind {
	case transport.KindPairingRequired:
		if s.canPair() {
			go s.whileCurrent(conn, func() {
				s.disconnectLocked(false)
				s.startPairingLocked()
			})
			return
		}
		go s.whileCurrent(conn, func() {
			s.disconnectLocked(false)
			s.status(StatusOffline, DetailCommunicationError, err.Error())
			s.scheduleReconnect()
		})

	case transport.KindHardDrop:
		if errors.Is(err, transport.ErrHardDrop) {
			s.logControl(log.ControlMsgDrop, log.DirectionIn)
		}
		go s.reconnectFrom(conn)

	case transport.KindFatal:
		go s.whileCurrent(conn, func() {
			s.disconnectLocked(false)
			s.status(StatusOffline, DetailCommunicationError, err.Error())
		})

	default:
		go s.whileCurrent(conn, func() {
			s.disconnectLocked(false)
			s.status(StatusOffline, DetailCommunicationError, err.Error())
			s.scheduleReconnect()
		})
	}
}

// writeFailed handles a sender failure. The payload is already requeued.
func (s *Session) writeFailed(conn transport.Connection, err error) {
	s.logError(log.LayerTransport, err, "write")
	s.warn("write failed", "error", err)

	if s.config.Shim {
		go s.controllerLost(conn)
		return
	}
	if shim := s.attachedShim(); shim != nil {
		go s.deviceLost(conn, shim)
		return
	}
	if transport.Classify(err) == transport.KindPairingRequired && s.canPair() {
		go s.whileCurrent(conn, func() {
			s.disconnectLocked(false)
			s.startPairingLocked()
		})
		return
	}
	go s.reconnectFrom(conn)
}

// whileCurrent runs fn under the connection lock if conn is still the
// session's connection.
func (s *Session) whileCurrent(conn transport.Connection, fn func()) {
	if s.disposing.Load() {
		return
	}
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.disposing.Load() || s.currentConn() != conn {
		return
	}
	fn()
}

// reconnectFrom reconnects if conn is still the session's connection.
func (s *Session) reconnectFrom(conn transport.Connection) {
	s.whileCurrent(conn, func() {
		s.disconnectLocked(false)
		if err := s.connectLocked(); err != nil {
			s.debug("reconnect failed", "error", err)
		}
	})
}

// Disconnect closes the connection and stops its goroutines. It is
// idempotent and never fails.
//
// With interruptAll, every timer is cancelled and pending commands are
// discarded; otherwise the reconnect and health timers keep running and
// queued key presses are sent on the next connection. Login, pairing and
// keepalive frames belong to the closed connection and are always dropped.
func (s *Session) Disconnect(interruptAll bool) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.disconnectLocked(interruptAll)
}

func (s *Session) disconnectLocked(interruptAll bool) {
	s.keepaliveTimer.Stop()
	if interruptAll {
		s.reconnectTimer.Stop()
		s.healthTimer.Stop()
		s.closeListener()
	}

	s.mu.Lock()
	l := s.link
	s.link = nil
	s.mu.Unlock()

	if l != nil {
		close(l.stop)
		_ = l.conn.Close()
		s.waitLoops(l)
	}
	if interruptAll || s.disposing.Load() {
		if n := s.queue.drain(); n > 0 {
			s.debug("Disconnect: discarded queued commands", "count", n)
		}
	} else if n := s.queue.retain(userFrame); n > 0 {
		s.debug("Disconnect: discarded frames of the closed connection", "count", n)
	}
	if l != nil || interruptAll {
		s.setState(StateDisconnected, "")
	}
}

// waitLoops waits for the reader and sender of l, bounded by
// DefaultStopTimeout.
func (s *Session) waitLoops(l *link) {
	done := make(chan struct{})
	go func() {
		l.loops.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(DefaultStopTimeout):
		s.warn("Disconnect: goroutines did not stop in time")
	}
}

// Reconnect disconnects and connects again. It does nothing once Dispose
// has been called.
func (s *Session) Reconnect() {
	if s.disposing.Load() {
		return
	}
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.disposing.Load() {
		return
	}
	s.disconnectLocked(false)
	if err := s.connectLocked(); err != nil {
		s.debug("Reconnect: connect failed", "error", err)
	}
}

// scheduleReconnect arms the reconnect timer with the next backoff delay.
func (s *Session) scheduleReconnect() {
	if s.disposing.Load() {
		return
	}
	delay := s.backoff.Next()
	s.setState(StateReconnectScheduled, delay.String())
	s.reconnectTimer.Schedule(s.sched, delay, s.Reconnect)
	s.debug("reconnect scheduled", "delay", delay)
}

// Dispose stops the session for good: the PIN session and relay are
// disposed, timers cancelled, the connection closed and queued commands
// discarded. Safe to call more than once.
func (s *Session) Dispose() {
	if s.disposing.Swap(true) {
		return
	}
	s.cancel()

	if child := s.child(); child != nil {
		child.Dispose()
	}
	if shim := s.attachedShim(); shim != nil {
		shim.Dispose()
	}
	if target := s.relayTarget(); target != nil {
		target.detachShim(s.id)
	}

	s.connMu.Lock()
	s.disconnectLocked(true)
	s.closeListener()
	s.setState(StateDisposed, "")
	s.connMu.Unlock()

	s.accepting.Wait()
	s.registry.Remove(s.id)
	s.info("disposed")
}

// Disposed reports whether Dispose has been called.
func (s *Session) Disposed() bool {
	return s.disposing.Load()
}

// enqueue appends a payload to the outbound queue.
func (s *Session) enqueue(payload []byte) error {
	if err := s.queue.push(payload); err != nil {
		s.warn("enqueue failed", "error", err)
		return err
	}
	s.logMessage(log.DirectionOut, payload, false, false)
	return nil
}

// Pending returns the number of queued outbound payloads.
func (s *Session) Pending() int {
	return s.queue.len()
}

func (s *Session) currentConn() transport.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.link == nil {
		return nil
	}
	return s.link.conn
}

func (s *Session) setState(next State, reason string) {
	s.mu.Lock()
	prev := s.state
	if prev == StateDisposed || prev == next {
		s.mu.Unlock()
		return
	}
	s.state = next
	s.mu.Unlock()

	s.debug("state", "from", prev, "to", next, "reason", reason)
	s.logEvent(log.Event{
		Layer:    log.LayerSession,
		Category: log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySession,
			OldState: prev.String(),
			NewState: next.String(),
			Reason:   reason,
		},
	})
}

func (s *Session) status(status Status, detail StatusDetail, description string) {
	s.callback.UpdateStatus(status, detail, description)
}

func (s *Session) modeName() string {
	if s.config.Shim {
		return "SHIM"
	}
	return s.config.Mode.String()
}

// canPair reports whether a rejected certificate should start pairing.
func (s *Session) canPair() bool {
	return s.config.Mode == ModeNormal && !s.config.Shim && s.attachedShim() == nil
}

type nopCallback struct{}

func (nopCallback) UpdateProperty(string, string)             {}
func (nopCallback) UpdateChannel(string, string)              {}
func (nopCallback) UpdateStatus(Status, StatusDetail, string) {}
func (nopCallback) Scheduler() connection.Scheduler           { return nil }
func (nopCallback) ThingID() string                           { return "" }
