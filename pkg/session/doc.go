// Package session runs the remote control connection to one device.
//
// A Session owns at most one TLS connection with a reader and a sender
// goroutine. It logs in, mirrors what the device reports (power, volume,
// foreground app, descriptor) to a Callback, answers keepalives and
// reconnects with exponential backoff.
//
// # Modes
//
// A remote session (ModeNormal) talks to the remote port. When the device
// rejects its certificate it starts a PIN session (ModePin) on the next
// port. The PIN session stores the device certificate once the user has
// entered the PIN shown on screen, disposes itself and reconnects its
// parent:
//
//	remote ──certificate rejected──► PIN session (port+1)
//	   ▲                                  │
//	   └────────reconnect◄──────paired────┘
//
// # Relay
//
// NewShim attaches a shim to a session. The shim accepts a real
// controller and relays its frames to the device through the target
// session, which then only observes. Pairing secrets are re-signed for
// each leg, so controller and device both pair with the relay.
//
// # Commands
//
// HandleCommand takes a channel and value; ParseCommand splits console
// lines such as "KEY_HOME", "VOLUME 30" or "PINCODE 1A2B3C".
package session
