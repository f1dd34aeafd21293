// Package transport provides the TLS transport for the remote protocol.
//
// The transport layer handles:
//   - TLS connections with client certificates (mutual authentication)
//   - One-byte length-prefixed framing
//   - Classification of connection failures into recovery kinds
//   - A listener for relaying a real controller to a device
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│   Protobuf messages            │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (1B)   │
//	├────────────────────────────────┤
//	│   TLS                          │
//	├────────────────────────────────┤
//	│   TCP (6466 remote, 6467 pair) │
//	└────────────────────────────────┘
//
// A length byte of 0xff never starts a frame; peers send it to drop the
// connection. Payloads are therefore at most 254 bytes.
//
// # Error Kinds
//
// Every error leaving Dial, Accept, ReadFrame or WriteFrame is a
// *ConnError carrying an ErrorKind:
//   - KindPairingRequired: the device rejected our certificate
//   - KindHardDrop: the peer closed or sent the drop marker
//   - KindTransient: anything else worth retrying
//   - KindFatal: configuration errors and local close
package transport
