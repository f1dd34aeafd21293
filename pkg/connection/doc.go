// Package connection provides reconnect timing for remote sessions.
//
// This package handles:
//   - Exponential backoff with jitter between reconnect attempts
//   - A Scheduler for one-shot and periodic tasks (reconnect delay,
//     keepalive deadline, health check)
//   - A Slot holding the single pending task of one kind
//   - A ManualScheduler for deterministic tests
//
// # Reconnection Strategy
//
// After a transient failure a session waits:
//
//  1. Initial delay: 5 seconds
//  2. Exponential increase: 10s, 20s, 40s, 80s
//  3. Maximum delay: 2 minutes
//  4. Reset to the initial delay once logged in
//
// A hard drop (peer EOF or the 0xff drop marker) reconnects immediately
// without consuming a backoff step.
//
// # Jitter
//
//	actual_delay = base_delay + random(0, base_delay * 0.25)
package connection
