package protocol

import (
	"encoding/hex"
	"fmt"
)

// Encode converts a hex string to raw bytes. Every two characters become
// one byte.
//
// The input must have even length and contain only hex digits. This is a
// precondition and is not validated: decoding stops at the first invalid
// character and the bytes decoded so far are returned.
func Encode(hexString string) []byte {
	raw, _ := hex.DecodeString(hexString)
	return raw
}

// Decode converts raw bytes to a lower-case hex string with a zero-padded
// two character chunk per byte. Decode(Encode(x)) == x for every even
// length lower-case hex string x.
func Decode(raw []byte) string {
	return hex.EncodeToString(raw)
}

// FixHex left-pads an odd-length hex string with a zero so it represents
// whole bytes.
func FixHex(s string) string {
	if len(s)%2 == 1 {
		return "0" + s
	}
	return s
}

// HexLen returns the hex encoding of a byte count, padded to whole bytes.
func HexLen(n int) string {
	return FixHex(fmt.Sprintf("%x", n))
}

// Frame prefixes a hex payload with its one byte length.
func Frame(payloadHex string) string {
	return HexLen(len(payloadHex)/2) + payloadHex
}
