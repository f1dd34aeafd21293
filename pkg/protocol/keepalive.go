package protocol

import (
	"bytes"
	"strings"

	"google.golang.org/protobuf/encoding/protowire"
)

// Remote message opcodes, as the leading hex byte of a payload.
const (
	OpConfigure    = "0a"
	OpSetActive    = "12"
	OpError        = "1a"
	OpPairing      = "08"
	OpPingRequest  = "42"
	OpPingResponse = "4a"
	OpKeyInject    = "52"
	OpVolume       = "92"
	OpCurrentApp   = "a2"
	OpPower        = "c2"
)

const (
	pingRequestByte = 0x42
	pingDelimiter   = 0x10
)

// KeepAliveReply builds the reply to a keepalive request payload (hex,
// without the frame length byte).
//
// The request's inner message is bounded by its declared length, cut at
// the 0x10 field delimiter and re-wrapped behind the 0x4a opcode.
// Input that does not start with the request opcode is answered with an
// empty ping response.
func KeepAliveReply(request string) string {
	raw := Encode(FixHex(strings.ToLower(request)))
	if len(raw) < 2 || raw[0] != pingRequestByte {
		return OpPingResponse + "00"
	}
	inner := raw[2:]
	if n := int(raw[1]); n < len(inner) {
		inner = inner[:n]
	}
	inner = inner[:delimiterOffset(inner)]
	return OpPingResponse + HexLen(len(inner)) + Decode(inner)
}

// delimiterOffset returns the offset of the 0x10 tag that starts the
// trailing field. Well formed content is walked field by field so a 0x10
// inside a varint value is not mistaken for the tag; malformed content
// falls back to the last 0x10 byte. Without a delimiter the whole slice
// is kept.
func delimiterOffset(inner []byte) int {
	off := 0
	rest := inner
	for len(rest) > 0 {
		num, typ, n := protowire.ConsumeTag(rest)
		if n < 0 {
			break
		}
		if rest[0] == pingDelimiter && num == 2 && typ == protowire.VarintType {
			return off
		}
		m := protowire.ConsumeFieldValue(num, typ, rest[n:])
		if m < 0 {
			break
		}
		off += n + m
		rest = rest[n+m:]
	}
	if len(rest) == 0 {
		return len(inner)
	}
	if i := bytes.LastIndexByte(inner, pingDelimiter); i >= 0 {
		return i
	}
	return len(inner)
}
