package session

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/gtv-remote/gtv-go/pkg/cert"
	"github.com/gtv-remote/gtv-go/pkg/log"
	"github.com/gtv-remote/gtv-go/pkg/pairing"
	"github.com/gtv-remote/gtv-go/pkg/protocol"
)

// Messages inside the pairing envelope, by field number.
const (
	pairingRequestAck = 11
	pairingOptions    = 20
	pairingConfigAck  = 31
	pairingSecretAck  = 41
)

// startPairingLocked replaces the remote connection with a PIN session on
// the pairing port. Must hold connMu.
func (s *Session) startPairingLocked() {
	s.reconnectTimer.Stop()
	if child := s.child(); child != nil {
		s.debug("pairing already running", "child", child.ID())
		return
	}

	s.info("device does not accept our certificate, pairing")
	s.status(StatusOffline, DetailPairingRequired, "pairing required")

	cfg := s.config
	cfg.Mode = ModePin
	cfg.Port = s.config.Port + 1
	cfg.Shim = false
	cfg.ListenAddr = ""
	cfg.Store = s.store
	child := newSession(cfg, s.callback, s.registry)
	child.parentID = s.id

	s.mu.Lock()
	s.childID = child.id
	s.mu.Unlock()
	s.setState(StateDisconnected, fmt.Sprintf("pairing on port %d", cfg.Port))

	if err := child.Connect(); err != nil {
		s.debug("pairing connect failed", "error", err)
	}
}

// child returns the running PIN session.
func (s *Session) child() *Session {
	s.mu.Lock()
	id := s.childID
	s.mu.Unlock()
	c, _ := s.registry.Get(id)
	return c
}

// disposeChild stops the running PIN session, if any.
func (s *Session) disposeChild() {
	s.mu.Lock()
	id := s.childID
	s.childID = ""
	s.mu.Unlock()
	if c, ok := s.registry.Get(id); ok {
		c.Dispose()
	}
}

// onPairing drives the PIN handshake from the device's answers.
func (s *Session) onPairing(m *inbound) error {
	if s.config.Mode != ModePin {
		s.debug("pairing message on remote connection", "payload", m.hex)
		return nil
	}

	if status, err := pairing.Status(m.hex); err != nil {
		if status == 0 {
			return err
		}
		s.warn("pairing rejected", "status", status)
		if m.reply {
			s.status(StatusOffline, DetailConfigurationError, err.Error())
			go s.pairingFailed(err.Error())
		}
		return nil
	}

	num, err := pairingMessage(m.payload)
	if err != nil {
		return err
	}

	switch num {
	case pairingRequestAck:
		if m.reply {
			s.sendLogin(protocol.StepOptions, 0)
		}
	case pairingOptions:
		if m.reply && s.config.AutoRequestPIN {
			s.sendLogin(protocol.StepConfiguration, 0)
		}
	case pairingConfigAck:
		s.setState(StatePinPending, "")
		s.status(StatusOffline, DetailConfigurationPending, "enter the PIN shown on the device")
	case pairingSecretAck:
		s.finishPairing(m.reply)
	default:
		s.debug("pairing message ignored", "field", num)
	}
	return nil
}

// pairingMessage returns the field number of the message carried after
// the protocol version and status.
func pairingMessage(payload []byte) (protowire.Number, error) {
	fields, err := protocol.ParseFields(payload)
	if err != nil {
		return 0, err
	}
	for _, f := range fields {
		if f.Num > 2 && f.Type == protowire.BytesType {
			return f.Num, nil
		}
	}
	return 0, fmt.Errorf("pairing message: %w", protocol.ErrFieldNotFound)
}

// finishPairing stores the device certificate. A PIN session started by a
// remote session then hands over to its parent; a standalone one closes.
func (s *Session) finishPairing(reply bool) {
	peer := s.PeerCertificate()
	if peer == nil {
		s.warn("pairing acknowledged without a device certificate")
		return
	}

	err := s.store.SetDeviceCA(peer)
	if err == nil {
		err = s.store.Save()
	}
	if err != nil {
		s.logError(log.LayerSession, err, "keystore")
		s.status(StatusOffline, DetailConfigurationError, "keystore: "+err.Error())
		if reply {
			go s.pairingFailed(err.Error())
		}
		return
	}

	s.info("paired", "device", cert.Fingerprint(peer))
	s.setState(StateLoggedIn, "paired")
	if !reply {
		return
	}

	go func() {
		parent, ok := s.registry.Get(s.parentID)
		s.Dispose()
		if ok {
			parent.pairingFinished(s.id)
			return
		}
		s.status(StatusOnline, DetailNone, "paired")
	}()
}

// pairingFinished reconnects with the stored device certificate.
func (s *Session) pairingFinished(childID string) {
	s.mu.Lock()
	if s.childID != childID {
		s.mu.Unlock()
		return
	}
	s.childID = ""
	s.offline = false
	s.mu.Unlock()

	s.backoff.Reset()
	s.info("pairing finished, reconnecting")
	s.Reconnect()
}

// pairingFailed ends a PIN session. The parent reports the failure and
// does not retry on its own.
func (s *Session) pairingFailed(reason string) {
	s.warn("pairing failed", "reason", reason)
	parent, ok := s.registry.Get(s.parentID)
	s.Dispose()
	if ok {
		parent.childFailed(s.id, reason)
	}
}

func (s *Session) childFailed(childID, reason string) {
	s.mu.Lock()
	if s.childID != childID {
		s.mu.Unlock()
		return
	}
	s.childID = ""
	s.mu.Unlock()
	s.setState(StateDisconnected, "pairing failed")
	s.status(StatusOffline, DetailConfigurationError, "pairing failed: "+reason)
}

// handlePinCode accepts REQUEST or the PIN shown on the device. A remote
// session forwards to its PIN session; REQUEST without one starts pairing.
func (s *Session) handlePinCode(value string) error {
	v := strings.ToUpper(strings.TrimSpace(value))
	if v == "" {
		return fmt.Errorf("%w: empty PIN", ErrInvalidCommand)
	}

	if s.config.Shim {
		return fmt.Errorf("%w: relay sessions do not pair", ErrInvalidCommand)
	}
	if s.config.Mode == ModeNormal {
		if child := s.child(); child != nil {
			return child.handlePinCode(v)
		}
		if v != protocol.PinRequestSentinel {
			return ErrNoPairing
		}
		s.connMu.Lock()
		defer s.connMu.Unlock()
		if s.disposing.Load() {
			return ErrSessionDisposed
		}
		s.disconnectLocked(false)
		s.startPairingLocked()
		return nil
	}

	conn := s.currentConn()
	if conn == nil {
		return ErrNotConnected
	}
	if v == protocol.PinRequestSentinel {
		return s.enqueue(protocol.Encode(protocol.PinRequest(v)))
	}

	pin, err := pairing.ParsePIN(v)
	if err != nil {
		return err
	}
	conf := pairing.Confirm(pin, conn.LocalCertificate(), conn.PeerCertificate())
	if !conf.Matches() {
		return fmt.Errorf("%w: check digit %02x", pairing.ErrPINMismatch, conf.Code()[0])
	}
	if err := s.enqueue(protocol.Encode(protocol.PinRequest(conf.Hex()))); err != nil {
		return err
	}
	s.setState(StateLoggingIn, "PIN sent")
	return nil
}

// IsPairing reports whether a PIN session is running for this session.
func (s *Session) IsPairing() bool {
	return s.child() != nil
}
