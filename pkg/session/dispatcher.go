package session

import (
	"fmt"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/gtv-remote/gtv-go/pkg/log"
	"github.com/gtv-remote/gtv-go/pkg/protocol"
)

// inbound is one frame handed to a handler. reply is false when the
// session only observes traffic relayed for a real controller.
type inbound struct {
	payload []byte
	hex     string
	reply   bool
}

type handler struct {
	opcode string
	name   string
	handle func(s *Session, m *inbound) error
}

// handlers is keyed on the leading byte of the payload. It is filled in
// init because the handlers reach messageName through the session.
var handlers []handler

func init() {
	handlers = []handler{
		{protocol.OpError, "remote_error", (*Session).onRemoteError},
		{protocol.OpConfigure, "remote_configure", (*Session).onConfigure},
		{protocol.OpSetActive, "remote_set_active", (*Session).onSetActive},
		{protocol.OpVolume, "volume_level", (*Session).onVolume},
		{protocol.OpPairing, "pairing", (*Session).onPairing},
		{protocol.OpPower, "remote_start", (*Session).onPower},
		{protocol.OpPingRequest, "ping_request", (*Session).onPing},
		{protocol.OpCurrentApp, "current_app", (*Session).onCurrentApp},
	}
}

// outboundNames names messages this side sends.
var outboundNames = map[string]string{
	protocol.OpPingResponse: "ping_response",
	protocol.OpKeyInject:    "key_inject",
}

func lookupHandler(hexPayload string) (handler, bool) {
	op := opcode(hexPayload)
	for _, h := range handlers {
		if h.opcode == op {
			return h, true
		}
	}
	return handler{}, false
}

func messageName(hexPayload string) string {
	if h, ok := lookupHandler(hexPayload); ok {
		return h.name
	}
	if name, ok := outboundNames[opcode(hexPayload)]; ok {
		return name
	}
	return "unknown"
}

// dispatch applies one inbound payload. Any frame counts as liveness, so
// the keepalive deadline is cleared first. Errors and panics are logged
// and never leave dispatch. Payloads are applied one at a time, whether
// they come from the reader or from a debug command.
func (s *Session) dispatch(payload []byte, reply bool) {
	s.dispatchMu.Lock()
	defer s.dispatchMu.Unlock()
	s.keepaliveTimer.Stop()

	m := &inbound{payload: payload, hex: protocol.Decode(payload), reply: reply}
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("dispatch panic: %v", r)
			s.warn("dispatch: recovered", "payload", m.hex, "error", err)
			s.logError(log.LayerProtocol, err, m.hex)
		}
	}()

	s.logMessage(log.DirectionIn, payload, !reply, false)

	h, ok := lookupHandler(m.hex)
	if !ok {
		s.debug("dispatch: unhandled message", "payload", m.hex)
		return
	}
	if err := h.handle(s, m); err != nil {
		s.debug("dispatch: malformed message", "name", h.name, "payload", m.hex, "error", err)
		s.logError(log.LayerProtocol, err, h.name)
	}
}

// onRemoteError tears the session down: the device refuses to continue.
func (s *Session) onRemoteError(m *inbound) error {
	s.warn("device reported an error", "payload", m.hex)
	if !m.reply {
		return nil
	}
	s.status(StatusOffline, DetailCommunicationError, "device reported error "+m.hex)
	go s.teardown()
	return nil
}

// teardown disposes the PIN session and closes the connection without
// scheduling a reconnect.
func (s *Session) teardown() {
	s.disposeChild()
	if s.config.Mode == ModePin {
		s.pairingFailed("device reported an error")
		return
	}
	s.Disconnect(true)
}

// onConfigure handles the device descriptor sent right after connecting.
func (s *Session) onConfigure(m *inbound) error {
	_, body, err := protocol.Unwrap(m.payload)
	if err != nil {
		return err
	}
	fields, err := protocol.ParseFields(body)
	if err != nil {
		return err
	}

	if info, ok := protocol.Lookup(fields, 2); ok && info.Type == protowire.BytesType {
		s.updateDescriptor(info.Bytes)
	}

	if s.State() == StateLoggedIn {
		s.debug("configure received while logged in")
		return nil
	}
	s.setState(StateLoggingIn, "")
	if m.reply {
		s.sendLogin(protocol.StepConfigure, protocol.MessageID(body))
	}
	return nil
}

// descriptorProperties maps device descriptor fields to properties.
var descriptorProperties = []struct {
	num  protowire.Number
	name string
}{
	{1, PropertyModel},
	{2, PropertyManufacturer},
	{4, PropertyAndroidVersion},
	{5, PropertyRemoteServer},
	{6, PropertyRemoteServerVersion},
}

func (s *Session) updateDescriptor(descriptor []byte) {
	fields, _ := protocol.ParseFields(descriptor)

	type update struct{ name, value string }
	var updates []update

	s.mu.Lock()
	for _, p := range descriptorProperties {
		f, ok := protocol.Lookup(fields, p.num)
		if !ok || f.Type != protowire.BytesType {
			continue
		}
		s.device.setProperty(p.name, f.String())
		updates = append(updates, update{p.name, f.String()})
	}
	s.mu.Unlock()

	for _, u := range updates {
		s.callback.UpdateProperty(u.name, u.value)
	}
}

// onSetActive completes the login.
func (s *Session) onSetActive(m *inbound) error {
	if m.reply {
		s.sendLogin(protocol.StepSetActive, 0)
	}
	s.mu.Lock()
	s.offline = false
	s.mu.Unlock()
	s.backoff.Reset()
	s.setState(StateLoggedIn, "")
	s.status(StatusOnline, DetailNone, "")
	return nil
}

// onVolume handles volume pushes. The short form carries only the player
// model; the long form adds maximum, level and mute.
func (s *Session) onVolume(m *inbound) error {
	_, body, err := protocol.Unwrap(m.payload)
	if err != nil {
		return err
	}
	fields, err := protocol.ParseFields(body)
	if err != nil {
		return err
	}

	maxField, hasMax := protocol.Lookup(fields, 6)
	levelField, hasLevel := protocol.Lookup(fields, 7)
	mutedField, _ := protocol.Lookup(fields, 8)

	s.mu.Lock()
	if f, ok := protocol.Lookup(fields, 3); ok && f.Type == protowire.BytesType {
		s.device.PlayerModel = f.String()
	}
	if !hasMax || !hasLevel {
		s.mu.Unlock()
		return nil
	}
	s.device.VolumeMax = int(maxField.Varint)
	s.device.VolumeLevel = int(levelField.Varint)
	s.device.Muted = mutedField.Varint != 0
	pct := s.device.VolumePercent()
	muted := s.device.Muted
	s.mu.Unlock()

	if pct >= 0 {
		s.callback.UpdateChannel(ChannelVolume, itoa(pct))
	}
	s.callback.UpdateChannel(ChannelMute, onOff(muted))
	return nil
}

// onPower handles power state pushes.
func (s *Session) onPower(m *inbound) error {
	var on bool
	switch m.hex {
	case protocol.PowerOnPayload:
		on = true
	case protocol.PowerOffPayload:
		on = false
	default:
		_, body, err := protocol.Unwrap(m.payload)
		if err != nil {
			return err
		}
		fields, err := protocol.ParseFields(body)
		if err != nil {
			return err
		}
		f, ok := protocol.Lookup(fields, 1)
		if !ok {
			return fmt.Errorf("power state: %w", protocol.ErrFieldNotFound)
		}
		on = f.Varint != 0
	}

	s.mu.Lock()
	s.device.Power = on
	s.device.PowerKnown = true
	s.mu.Unlock()

	s.callback.UpdateChannel(ChannelPower, onOff(on))
	return nil
}

// onPing answers a keepalive and arms the no-response deadline.
func (s *Session) onPing(m *inbound) error {
	s.logControl(log.ControlMsgPing, log.DirectionIn)
	if !m.reply {
		return nil
	}
	reply := protocol.KeepAliveReply(m.hex)
	if err := s.enqueue(protocol.Encode(reply)); err != nil {
		return err
	}
	s.logControl(log.ControlMsgPong, log.DirectionOut)
	if conn := s.currentConn(); conn != nil {
		s.armKeepalive(conn)
	}
	return nil
}

// onCurrentApp handles the foreground application push.
func (s *Session) onCurrentApp(m *inbound) error {
	_, body, err := protocol.Unwrap(m.payload)
	if err != nil {
		return err
	}
	fields, err := protocol.ParseFields(body)
	if err != nil {
		return err
	}
	info, ok := protocol.Lookup(fields, 1)
	if !ok || info.Type != protowire.BytesType {
		return fmt.Errorf("app info: %w", protocol.ErrFieldNotFound)
	}
	appFields, err := protocol.ParseFields(info.Bytes)
	if err != nil {
		return err
	}
	pkg, ok := protocol.Lookup(appFields, 12)
	if !ok || pkg.Type != protowire.BytesType {
		return fmt.Errorf("app package: %w", protocol.ErrFieldNotFound)
	}

	app := strings.TrimSpace(pkg.String())
	s.mu.Lock()
	s.device.App = app
	s.mu.Unlock()

	s.callback.UpdateChannel(ChannelApp, app)
	return nil
}

// sendLogin queues a login step.
func (s *Session) sendLogin(step int, prevMessageID uint64) {
	payload := s.config.Identity.LoginRequest(step, prevMessageID)
	if payload == "" {
		return
	}
	if err := s.enqueue(protocol.Encode(payload)); err != nil {
		s.warn("login step not queued", "step", step, "error", err)
	}
}
