package session

import "context"

// startHealthCheck starts the periodic reachability probe. Only remote
// sessions probe; PIN and relay sessions always attempt to connect.
func (s *Session) startHealthCheck() {
	if s.config.Mode != ModeNormal || s.config.Shim || s.config.HealthCheckInterval <= 0 {
		return
	}
	if s.healthTimer.Active() {
		return
	}
	s.healthTimer.Every(s.sched, s.config.HealthCheckInterval, s.healthCheck)
}

// healthCheck probes the device while not logged in. Going offline
// suppresses connect attempts; coming back triggers a reconnect.
func (s *Session) healthCheck() {
	if s.disposing.Load() || s.State() == StateLoggedIn {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, s.config.HealthCheckTimeout)
	err := s.config.Probe(ctx, s.config.Address(), s.config.HealthCheckTimeout)
	cancel()

	s.mu.Lock()
	wasOffline := s.offline
	s.offline = err != nil
	s.mu.Unlock()

	switch {
	case err != nil && !wasOffline:
		s.info("device unreachable", "error", err)
		s.status(StatusOffline, DetailCommunicationError, "device unreachable: "+err.Error())
	case err == nil && wasOffline:
		s.info("device reachable again")
		s.Reconnect()
	}
}

// Offline reports whether the last health check failed.
func (s *Session) Offline() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.offline
}
