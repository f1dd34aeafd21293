// Package pairing implements the PIN confirmation used when a controller
// pairs with a device.
//
// The device displays a 3-byte challenge as six hex characters. Both
// sides hash the RSA public keys of the two TLS certificates together
// with the last two challenge bytes:
//
//	SHA-256(clientModulus || clientExponent || serverModulus || serverExponent || pin[1:3])
//
// The first byte of the digest must equal the first challenge byte, which
// lets the controller reject a mistyped PIN before sending it. The full
// digest is sent in the pairing secret message.
//
// Digest is a pure function of its inputs. A relay sitting between a
// controller and a device can therefore compute one digest per leg from
// the same user-entered PIN.
package pairing
