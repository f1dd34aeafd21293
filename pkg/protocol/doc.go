// Package protocol implements the frame codec for the Android TV remote
// control protocol.
//
// Frames on the wire are raw bytes, but the application layer authors and
// traces them as lower-case hex strings. This package provides the hex
// transforms, the fixed login/pairing payloads, keepalive replies and key
// injection frames.
//
// # Message Layout
//
// Each payload is a protobuf-encoded message. The leading byte(s) are the
// tag of the outermost field and identify the message:
//
//	0a  remote configure (device descriptor)
//	12  remote set active (login accepted)
//	1a  remote error
//	42  ping request (keepalive)
//	4a  ping response
//	52  key inject
//	a2  IME key inject (current application)
//	c2  remote start (power state)
//	92  set volume level
//	08  pairing message (protocol version field)
//
// # Pairing Messages
//
// Pairing runs on a separate port and uses an outer envelope of
// protocol version (08 02) and status (10 c8 01) followed by one of
// the pairing request, options, configuration or secret messages.
package protocol
