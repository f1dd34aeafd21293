package session

import (
	"time"

	"github.com/gtv-remote/gtv-go/pkg/log"
	"github.com/gtv-remote/gtv-go/pkg/protocol"
	"github.com/gtv-remote/gtv-go/pkg/transport"
)

func (s *Session) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *Session) info(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Info(msg, args...)
	}
}

func (s *Session) warn(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}

// logEvent stamps ev with the session identity and passes it to the
// protocol logger.
func (s *Session) logEvent(ev log.Event) {
	if s.plog == nil {
		return
	}
	ev.Timestamp = time.Now()
	ev.Mode = logMode(s.config.Mode, s.config.Shim)
	ev.ThingID = s.callback.ThingID()
	if c := s.currentConn(); c != nil {
		ev.ConnectionID = c.ID()
		if addr := c.RemoteAddr(); addr != nil {
			ev.RemoteAddr = addr.String()
		}
	}
	s.plog.Log(ev)
}

func (s *Session) logMessage(dir log.Direction, payload []byte, relayed, rewritten bool) {
	if s.plog == nil {
		return
	}
	hexPayload := protocol.Decode(payload)
	s.logEvent(log.Event{
		Direction: dir,
		Layer:     log.LayerProtocol,
		Category:  log.CategoryMessage,
		Message: &log.MessageEvent{
			Opcode:    opcode(hexPayload),
			Name:      messageName(hexPayload),
			Hex:       hexPayload,
			Relayed:   relayed,
			Rewritten: rewritten,
		},
	})
}

func (s *Session) logControl(typ log.ControlMsgType, dir log.Direction) {
	s.logEvent(log.Event{
		Direction:  dir,
		Layer:      log.LayerProtocol,
		Category:   log.CategoryControl,
		ControlMsg: &log.ControlMsgEvent{Type: typ},
	})
}

func (s *Session) logError(layer log.Layer, err error, context string) {
	data := &log.ErrorEventData{
		Layer:   layer,
		Message: err.Error(),
		Context: context,
	}
	if layer == log.LayerTransport {
		data.Kind = transport.Classify(err).String()
	}
	s.logEvent(log.Event{
		Layer:    layer,
		Category: log.CategoryError,
		Error:    data,
	})
}

func (s *Session) logCommand(channel, value string, err error) {
	result := ""
	if err != nil {
		result = err.Error()
	}
	s.logEvent(log.Event{
		Layer:    log.LayerSession,
		Category: log.CategoryCommand,
		Command: &log.CommandEvent{
			Channel: channel,
			Value:   value,
			Result:  result,
		},
	})
}

func opcode(hexPayload string) string {
	if len(hexPayload) < 2 {
		return hexPayload
	}
	return hexPayload[:2]
}
