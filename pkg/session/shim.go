package session

import (
	"crypto/x509"
	"errors"
	"fmt"
	"net"

	"github.com/gtv-remote/gtv-go/pkg/cert"
	"github.com/gtv-remote/gtv-go/pkg/log"
	"github.com/gtv-remote/gtv-go/pkg/pairing"
	"github.com/gtv-remote/gtv-go/pkg/protocol"
	"github.com/gtv-remote/gtv-go/pkg/transport"
)

// ErrRelayAttached is returned by NewShim when the target already relays.
var ErrRelayAttached = errors.New("session already relays a controller")

// relayState links a target session and the shim relaying a controller to
// it. On the target, shimID and the certificates of the controller leg
// are set; on the shim, only targetID. Guarded by Session.mu.
type relayState struct {
	shimID   string
	targetID string

	// controller and shimCert are the certificates of the controller leg:
	// the real controller's and the one the shim presented to it.
	controller *x509.Certificate
	shimCert   *x509.Certificate

	// pin is recovered from the controller's secret.
	pin *pairing.PIN
}

// NewShim creates a session that accepts a real controller on listenAddr
// and relays its traffic to target. While a shim is attached, target only
// observes the device and never logs in or answers keepalives itself.
//
// The shim presents its own identity, kept next to the target's keystore
// or in memory when the target has no keystore directory.
func NewShim(target *Session, listenAddr string) (*Session, error) {
	if target == nil || target.Disposed() {
		return nil, ErrSessionDisposed
	}
	if target.config.Shim {
		return nil, fmt.Errorf("%w: cannot relay to a relay", ErrInvalidConfig)
	}

	cfg := target.config
	cfg.Shim = true
	cfg.ListenAddr = listenAddr
	cfg.Dial = nil
	cfg.Store = nil
	if cfg.KeystoreDir == "" {
		cfg.Store = cert.NewMemoryStore()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	target.mu.Lock()
	defer target.mu.Unlock()
	if target.relay.shimID != "" {
		return nil, ErrRelayAttached
	}

	shim := newSession(cfg, target.callback, target.registry)
	shim.relay.targetID = target.id
	target.relay = relayState{shimID: shim.id}
	return shim, nil
}

// ListenAddr returns the address the shim accepts controllers on, or nil
// while it is not listening.
func (s *Session) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// listenLocked starts accepting controllers. Must hold connMu.
func (s *Session) listenLocked() error {
	s.mu.Lock()
	listening := s.listener != nil
	s.mu.Unlock()
	if listening {
		return nil
	}

	id, err := cert.LoadOrCreate(s.store, s.config.Identity.ServiceName, s.config.KeyBits)
	if err != nil {
		err = fmt.Errorf("keystore: %w", err)
		s.logError(log.LayerSession, err, "keystore")
		s.status(StatusOffline, DetailConfigurationError, err.Error())
		return err
	}
	tlsConfig, err := transport.NewServerTLSConfig(id.TLSCertificate())
	if err != nil {
		return err
	}

	l, err := transport.Listen(transport.ListenerConfig{
		Address:   s.config.ListenAddr,
		TLSConfig: tlsConfig,
		Logger:    s.plog,
		Mode:      log.ModeShim,
		ThingID:   s.callback.ThingID(),
	})
	if err != nil {
		s.logError(log.LayerTransport, err, "listen")
		s.status(StatusOffline, DetailConfigurationError, err.Error())
		return err
	}

	s.mu.Lock()
	s.listener = l
	s.mu.Unlock()

	s.accepting.Add(1)
	go s.acceptLoop(l)
	s.info("relay listening", "addr", l.Addr().String())
	return nil
}

func (s *Session) closeListener() {
	s.mu.Lock()
	l := s.listener
	s.listener = nil
	s.mu.Unlock()
	if l != nil {
		_ = l.Close()
	}
}

func (s *Session) acceptLoop(l *transport.Listener) {
	defer s.accepting.Done()
	for {
		conn, err := l.Accept(s.ctx)
		if err != nil {
			if errors.Is(err, transport.ErrListenerClosed) || s.disposing.Load() {
				return
			}
			s.logError(log.LayerTransport, err, "accept")
			s.warn("accept failed", "error", err)

			var ce *transport.ConnError
			if errors.As(err, &ce) {
				continue
			}
			return
		}
		s.acceptController(conn)
	}
}

// acceptController replaces the current controller with conn and
// reconnects the target for it.
func (s *Session) acceptController(conn transport.Connection) {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	target := s.relayTarget()
	if s.disposing.Load() || target == nil {
		s.warn("controller refused, nothing to relay to")
		_ = conn.Close()
		return
	}

	s.disconnectLocked(false)
	s.queue.drain()
	s.attachLocked(conn)

	target.relayAttached(conn.PeerCertificate(), conn.LocalCertificate())
	target.Reconnect()
}

// relayAttached records the controller leg and discards commands queued
// before the controller arrived.
func (s *Session) relayAttached(controller, shimCert *x509.Certificate) {
	s.mu.Lock()
	s.relay.controller = controller
	s.relay.shimCert = shimCert
	s.relay.pin = nil
	s.mu.Unlock()

	if n := s.queue.drain(); n > 0 {
		s.debug("relay: discarded queued commands", "count", n)
	}
}

// controllerLost closes the controller leg and the device leg with it; the
// next controller reconnects the target.
func (s *Session) controllerLost(conn transport.Connection) {
	s.whileCurrent(conn, func() {
		s.disconnectLocked(false)
		s.queue.drain()
	})
	if target := s.relayTarget(); target != nil {
		target.Disconnect(true)
	}
}

// dropController closes the controller leg after the device leg failed.
func (s *Session) dropController() {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	if s.disposing.Load() {
		return
	}
	s.disconnectLocked(false)
	s.queue.drain()
}

// deviceLost closes the device leg of a relay and drops the controller so
// it reconnects through the shim.
func (s *Session) deviceLost(conn transport.Connection, shim *Session) {
	s.whileCurrent(conn, func() { s.disconnectLocked(false) })
	shim.dropController()
}

// relayToTarget forwards a controller frame to the device. Runs on the
// shim reader.
func (s *Session) relayToTarget(f transport.Frame) {
	s.logMessage(log.DirectionIn, f.Payload, true, false)

	target := s.relayTarget()
	if target == nil {
		s.warn("relay: target gone, frame dropped", "payload", f.Hex())
		return
	}
	payload, rewritten := target.rewriteFromController(f.Payload)
	target.enqueueRelayed(payload, rewritten)
}

// relayToController forwards a device frame to the controller. Runs on
// the target reader.
func (s *Session) relayToController(shim *Session, f transport.Frame) {
	if shim.currentConn() == nil {
		s.debug("relay: no controller, frame dropped", "payload", f.Hex())
		return
	}
	payload, rewritten := s.rewriteToController(f.Payload)
	shim.enqueueRelayed(payload, rewritten)
}

// rewriteFromController re-signs the controller's secret for the device
// leg. The controller computed its digest over its own certificate and the
// shim's; the device expects ours and its own.
func (s *Session) rewriteFromController(payload []byte) ([]byte, bool) {
	hexPayload := protocol.Decode(payload)
	if !pairing.IsSecret(hexPayload) {
		return payload, false
	}

	digest, err := pairing.SecretDigest(payload)
	if err != nil {
		s.warn("relay: unreadable secret", "error", err)
		return payload, false
	}

	s.mu.Lock()
	controller, shimCert := s.relay.controller, s.relay.shimCert
	s.mu.Unlock()

	pin, ok := pairing.Recover(digest, controller, shimCert)
	if !ok {
		s.warn("relay: PIN not recoverable, secret forwarded unchanged")
		return payload, false
	}
	s.mu.Lock()
	s.relay.pin = &pin
	s.mu.Unlock()

	conn := s.currentConn()
	if conn == nil {
		return payload, false
	}
	out, _ := pairing.Rewrite(hexPayload, pairing.Digest(pin, conn.LocalCertificate(), conn.PeerCertificate()))
	s.debug("relay: secret rewritten for device")
	return protocol.Encode(out), true
}

// rewriteToController re-signs the device's secret acknowledgement for the
// controller leg with the recovered PIN.
func (s *Session) rewriteToController(payload []byte) ([]byte, bool) {
	hexPayload := protocol.Decode(payload)
	if !pairing.IsSecretAck(hexPayload) {
		return payload, false
	}

	s.mu.Lock()
	pin, controller, shimCert := s.relay.pin, s.relay.controller, s.relay.shimCert
	s.mu.Unlock()
	if pin == nil {
		s.warn("relay: secret acknowledged before a PIN was seen")
		return payload, false
	}

	out, _ := pairing.Rewrite(hexPayload, pairing.Digest(*pin, controller, shimCert))
	s.debug("relay: secret acknowledgement rewritten for controller")
	return protocol.Encode(out), true
}

// enqueueRelayed queues a payload taken from the other leg.
func (s *Session) enqueueRelayed(payload []byte, rewritten bool) {
	if err := s.queue.push(payload); err != nil {
		s.warn("relay: frame dropped", "error", err)
		return
	}
	s.logMessage(log.DirectionOut, payload, true, rewritten)
}

// attachedShim returns the shim relaying to this session.
func (s *Session) attachedShim() *Session {
	s.mu.Lock()
	id := s.relay.shimID
	s.mu.Unlock()
	shim, _ := s.registry.Get(id)
	return shim
}

// relayTarget returns the session a shim relays to.
func (s *Session) relayTarget() *Session {
	s.mu.Lock()
	id := s.relay.targetID
	s.mu.Unlock()
	target, _ := s.registry.Get(id)
	return target
}

// detachShim returns the target to normal operation once its shim is gone.
func (s *Session) detachShim(shimID string) {
	s.mu.Lock()
	if s.relay.shimID != shimID {
		s.mu.Unlock()
		return
	}
	s.relay = relayState{}
	connected := s.link != nil
	s.mu.Unlock()

	s.info("relay detached")
	if connected {
		s.Reconnect()
	}
}
