package session

import (
	"github.com/gtv-remote/gtv-go/pkg/log"
	"github.com/gtv-remote/gtv-go/pkg/transport"
)

// armKeepalive (re)starts the no-response deadline for conn. The device
// pings every few seconds; when nothing arrives within KeepaliveTimeout
// the connection is presumed dead and replaced.
func (s *Session) armKeepalive(conn transport.Connection) {
	s.keepaliveTimer.Schedule(s.sched, s.config.KeepaliveTimeout, func() {
		if s.currentConn() != conn {
			return
		}
		s.logControl(log.ControlMsgTimeout, log.DirectionIn)
		s.warn("keepalive timeout", "timeout", s.config.KeepaliveTimeout)
		s.reconnectFrom(conn)
	})
}
