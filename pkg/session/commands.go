package session

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/gtv-remote/gtv-go/pkg/protocol"
)

// Debug command prefixes.
const (
	debugRaw = "RAW:"
	debugMsg = "MSG:"
)

// HandleCommand executes a host command on a channel (see Channel
// constants). Power and mute are compared against the device mirrors so a
// command for the current state sends nothing.
//
// The result is logged as a protocol event and returned; commands never
// change the connection state except PINCODE REQUEST, which starts pairing.
func (s *Session) HandleCommand(channel, value string) error {
	err := s.handleCommand(strings.ToLower(strings.TrimSpace(channel)), strings.TrimSpace(value))
	s.logCommand(channel, value, err)
	if err != nil {
		s.debug("command failed", "channel", channel, "value", value, "error", err)
	}
	return err
}

func (s *Session) handleCommand(channel, value string) error {
	if s.disposing.Load() {
		return ErrSessionDisposed
	}

	switch channel {
	case ChannelPinCode:
		return s.handlePinCode(value)
	case ChannelDebug:
		return s.handleDebug(value)
	}

	if s.config.Shim {
		return fmt.Errorf("%w: relay sessions take no commands", ErrInvalidCommand)
	}
	if s.currentConn() == nil {
		return ErrNotConnected
	}

	switch channel {
	case ChannelKeypress:
		code, dir, err := protocol.ParseKey(value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
		}
		return s.sendKey(code, dir)
	case ChannelPower:
		return s.setPower(value)
	case ChannelMute:
		return s.setMute(value)
	case ChannelVolume:
		return s.setVolume(value)
	case ChannelKeyboard:
		return s.typeText(value)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownChannel, channel)
	}
}

func (s *Session) sendKey(code int, dir protocol.Direction) error {
	return s.enqueue(protocol.Encode(protocol.KeyPress(code, dir)))
}

func (s *Session) sendKeys(code, n int) error {
	if n > s.config.QueueSize-s.queue.len() {
		return ErrQueueFull
	}
	for i := 0; i < n; i++ {
		if err := s.sendKey(code, protocol.DirShort); err != nil {
			return err
		}
	}
	return nil
}

func parseOnOff(value string) (bool, error) {
	switch strings.ToUpper(value) {
	case ValueOn:
		return true, nil
	case ValueOff:
		return false, nil
	default:
		return false, fmt.Errorf("%w: want ON or OFF, got %q", ErrInvalidCommand, value)
	}
}

func (s *Session) setPower(value string) error {
	on, err := parseOnOff(value)
	if err != nil {
		return err
	}
	d := s.Device()
	if d.PowerKnown && d.Power == on {
		return nil
	}
	return s.sendKey(protocol.KeyPower, protocol.DirShort)
}

func (s *Session) setMute(value string) error {
	on, err := parseOnOff(value)
	if err != nil {
		return err
	}
	d := s.Device()
	if d.VolumeMax > 0 && d.Muted == on {
		return nil
	}
	return s.sendKey(protocol.KeyVolumeMute, protocol.DirShort)
}

// setVolume accepts UP, DOWN or a percentage. A percentage is reached by
// stepping from the last reported level.
func (s *Session) setVolume(value string) error {
	switch strings.ToUpper(value) {
	case "UP", "INCREASE":
		return s.sendKey(protocol.KeyVolumeUp, protocol.DirShort)
	case "DOWN", "DECREASE":
		return s.sendKey(protocol.KeyVolumeDown, protocol.DirShort)
	}

	pct, err := strconv.Atoi(strings.TrimSuffix(value, "%"))
	if err != nil || pct < 0 || pct > 100 {
		return fmt.Errorf("%w: volume %q", ErrInvalidCommand, value)
	}
	d := s.Device()
	if d.VolumeMax <= 0 {
		return ErrVolumeUnknown
	}

	steps := pct*d.VolumeMax/100 - d.VolumeLevel
	switch {
	case steps > 0:
		return s.sendKeys(protocol.KeyVolumeUp, steps)
	case steps < 0:
		return s.sendKeys(protocol.KeyVolumeDown, -steps)
	default:
		return nil
	}
}

// typeText sends one short press per character. Nothing is sent when a
// character has no key or the text does not fit the queue.
func (s *Session) typeText(text string) error {
	codes, err := protocol.TextToKeys(text)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	if len(codes) > s.config.QueueSize-s.queue.len() {
		return ErrQueueFull
	}
	for _, code := range codes {
		if err := s.sendKey(code, protocol.DirShort); err != nil {
			return err
		}
	}
	return nil
}

// handleDebug injects traffic. RAW:<frame hex> queues a complete frame,
// length byte included; MSG:<payload hex> is handled as if the device had
// sent it.
func (s *Session) handleDebug(value string) error {
	upper := strings.ToUpper(value)
	switch {
	case strings.HasPrefix(upper, debugRaw):
		frame, err := decodeHex(value[len(debugRaw):])
		if err != nil {
			return err
		}
		if len(frame) < 2 || int(frame[0]) != len(frame)-1 {
			return fmt.Errorf("%w: frame length byte does not match payload", ErrInvalidCommand)
		}
		if s.currentConn() == nil {
			return ErrNotConnected
		}
		return s.enqueue(frame[1:])

	case strings.HasPrefix(upper, debugMsg):
		payload, err := decodeHex(value[len(debugMsg):])
		if err != nil {
			return err
		}
		if len(payload) == 0 {
			return fmt.Errorf("%w: empty message", ErrInvalidCommand)
		}
		s.dispatch(payload, true)
		return nil

	default:
		return fmt.Errorf("%w: debug wants %s or %s", ErrInvalidCommand, debugRaw, debugMsg)
	}
}

func decodeHex(s string) ([]byte, error) {
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	raw, err := hex.DecodeString(protocol.FixHex(s))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidCommand, err)
	}
	return raw, nil
}

// ParseCommand splits a console line into channel and value:
//
//	KEY_HOME, KEY_HOME_PRESS, 3_RELEASE  keypress
//	PINCODE REQUEST|<hex>                pincode
//	POWER ON|OFF, MUTE ON|OFF            power, mute
//	VOLUME UP|DOWN|<0-100>               volume
//	KEYBOARD <text>                      keyboard
//	DEBUG RAW:<hex>|MSG:<hex>            debug
func ParseCommand(line string) (channel, value string, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", fmt.Errorf("%w: empty command", ErrInvalidCommand)
	}

	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	switch strings.ToUpper(word) {
	case "PINCODE", "PIN":
		channel = ChannelPinCode
	case "POWER":
		channel = ChannelPower
	case "MUTE":
		channel = ChannelMute
	case "VOLUME":
		channel = ChannelVolume
	case "KEYBOARD", "TEXT":
		channel = ChannelKeyboard
	case "DEBUG":
		channel = ChannelDebug
	default:
		if rest != "" {
			return "", "", fmt.Errorf("%w: %q", ErrUnknownChannel, word)
		}
		return ChannelKeypress, word, nil
	}
	if rest == "" {
		return "", "", fmt.Errorf("%w: %s needs a value", ErrInvalidCommand, strings.ToUpper(word))
	}
	return channel, rest, nil
}
