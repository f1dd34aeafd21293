package protocol

import (
	"golang.org/x/crypto/cryptobyte"
	"google.golang.org/protobuf/encoding/protowire"
)

// Login sequence steps.
const (
	StepPairingRequest = 1
	StepOptions        = 2
	StepConfiguration  = 3
	StepConfigure      = 4
	StepSetActive      = 5
)

// PinRequestSentinel asks PinRequest for the payload that makes the
// device display a PIN instead of wrapping a digest.
const PinRequestSentinel = "REQUEST"

// Pairing envelope prefixes. Every pairing message starts with protocol
// version 2 and status 200.
const (
	PairingEnvelope  = "080210c801"
	PairingSecret    = PairingEnvelope + "c202"
	PairingSecretAck = PairingEnvelope + "ca02"
)

// Pairing encoding parameters: hexadecimal symbols, six per code,
// controller takes the input role.
const (
	encodingHexadecimal = 3
	encodingSymbols     = 6
	roleInput           = 1
)

// activeFeatures is the feature bit set announced in configure and
// set-active messages.
const activeFeatures = 622

// Identity describes this controller to the device.
type Identity struct {
	// ServiceName is announced in the pairing request.
	ServiceName string

	// ClientName is shown on the device while pairing.
	ClientName string

	// Model, Vendor and Version are sent in the remote configure echo.
	Model   string
	Vendor  string
	Version string

	// Package is the application id.
	Package string
}

// DefaultIdentity is the identity used by the package level builders.
var DefaultIdentity = Identity{
	ServiceName: "gtv-go",
	ClientName:  "gtv-remote",
	Model:       "gtv-remote",
	Vendor:      "gtv-go",
	Version:     "1.0.0",
	Package:     "io.github.gtvremote",
}

// LoginRequest returns the hex payload for a login step.
//
// Steps 1 to 3 are the pairing announcement and its two acknowledgements,
// step 4 echoes the device descriptor and embeds prevMessageID-1, step 5 is
// the final acknowledgement. Unknown steps return an empty string.
func LoginRequest(step int, prevMessageID uint64) string {
	return DefaultIdentity.LoginRequest(step, prevMessageID)
}

// LoginRequest returns the hex payload for a login step using this
// identity. See the package level LoginRequest.
func (id Identity) LoginRequest(step int, prevMessageID uint64) string {
	switch step {
	case StepPairingRequest:
		var req []byte
		req = appendString(req, 1, id.ServiceName)
		req = appendString(req, 2, id.ClientName)
		return Decode(appendMessage(Encode(PairingEnvelope), 10, req))

	case StepOptions:
		var opts []byte
		opts = appendMessage(opts, 1, encoding())
		opts = appendVarint(opts, 3, roleInput)
		return Decode(appendMessage(Encode(PairingEnvelope), 20, opts))

	case StepConfiguration:
		var cfg []byte
		cfg = appendMessage(cfg, 1, encoding())
		cfg = appendVarint(cfg, 2, roleInput)
		return Decode(appendMessage(Encode(PairingEnvelope), 30, cfg))

	case StepConfigure:
		code := uint64(0)
		if prevMessageID > 0 {
			code = prevMessageID - 1
		}
		var conf []byte
		conf = appendVarint(conf, 1, code)
		conf = appendMessage(conf, 2, id.descriptor())
		return Decode(appendMessage(nil, 1, conf))

	case StepSetActive:
		return Decode(appendMessage(nil, 2, appendVarint(nil, 1, activeFeatures)))

	default:
		return ""
	}
}

// PinRequest returns the secret message wrapping a precomputed pin digest
// (hex). Given PinRequestSentinel it returns the configuration step that
// triggers the PIN display instead.
func PinRequest(pinHashOrSentinel string) string {
	if pinHashOrSentinel == PinRequestSentinel {
		return LoginRequest(StepConfiguration, 0)
	}
	return SecretMessage(PairingSecret, Encode(FixHex(pinHashOrSentinel)))
}

// SecretMessage wraps a digest behind a pairing prefix (PairingSecret or
// PairingSecretAck) with explicit outer and inner lengths:
// <prefix> <outer len> 0a <inner len> <digest>. Digests longer than a
// single length byte can describe yield an empty string.
func SecretMessage(prefix string, digest []byte) string {
	b := cryptobyte.NewBuilder(Encode(prefix))
	b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddUint8(0x0a)
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddBytes(digest)
		})
	})
	msg, err := b.Bytes()
	if err != nil {
		return ""
	}
	return Decode(msg)
}

// MessageID returns the id carried by a remote configure message body,
// or zero when absent.
func MessageID(configure []byte) uint64 {
	fields, _ := ParseFields(configure)
	if f, ok := Lookup(fields, 1); ok && f.Type == protowire.VarintType {
		return f.Varint
	}
	return 0
}

func (id Identity) descriptor() []byte {
	var b []byte
	b = appendString(b, 1, id.Model)
	b = appendString(b, 2, id.Vendor)
	b = appendVarint(b, 3, 1)
	b = appendString(b, 4, "1")
	b = appendString(b, 5, id.Package)
	b = appendString(b, 6, id.Version)
	return b
}

func encoding() []byte {
	var b []byte
	b = appendVarint(b, 1, encodingHexadecimal)
	b = appendVarint(b, 2, encodingSymbols)
	return b
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendMessage(b []byte, num protowire.Number, msg []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, msg)
}
