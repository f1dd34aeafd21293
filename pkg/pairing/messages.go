package pairing

import (
	"fmt"
	"strings"

	"github.com/gtv-remote/gtv-go/pkg/protocol"
)

// Pairing status codes carried in field 2 of every pairing message.
const (
	StatusOK               = 200
	StatusError            = 400
	StatusBadConfiguration = 401
	StatusBadSecret        = 402
)

// IsSecret reports whether a payload (hex) is a pairing secret message.
func IsSecret(payload string) bool {
	return strings.HasPrefix(payload, protocol.PairingSecret)
}

// IsSecretAck reports whether a payload (hex) is a pairing secret
// acknowledgement, which completes pairing.
func IsSecretAck(payload string) bool {
	return strings.HasPrefix(payload, protocol.PairingSecretAck)
}

// Status returns the status code of a pairing message (hex). Messages
// with a status other than StatusOK yield an error wrapping
// ErrPairingRejected.
func Status(payload string) (int, error) {
	fields, err := protocol.ParseFields(protocol.Encode(payload))
	f, ok := protocol.Lookup(fields, 2)
	if !ok {
		if err == nil {
			err = protocol.ErrFieldNotFound
		}
		return 0, fmt.Errorf("pairing status: %w", err)
	}
	status := int(f.Varint)
	if status != StatusOK {
		return status, fmt.Errorf("%w: status %d", ErrPairingRejected, status)
	}
	return status, nil
}

// Rewrite replaces the digest of a secret or secret acknowledgement
// payload (hex) with digest. Other payloads are returned unchanged with
// false.
func Rewrite(payload string, digest []byte) (string, bool) {
	switch {
	case IsSecret(payload):
		return protocol.SecretMessage(protocol.PairingSecret, digest), true
	case IsSecretAck(payload):
		return protocol.SecretMessage(protocol.PairingSecretAck, digest), true
	default:
		return payload, false
	}
}

// Field numbers of the secret and secret acknowledgement messages inside
// the pairing envelope.
const (
	fieldSecret    = 40
	fieldSecretAck = 41
)

// SecretDigest extracts the digest carried by a secret or secret
// acknowledgement payload.
func SecretDigest(payload []byte) ([]byte, error) {
	fields, err := protocol.ParseFields(payload)
	if err != nil {
		return nil, fmt.Errorf("pairing secret: %w", err)
	}
	msg, ok := protocol.Lookup(fields, fieldSecret)
	if !ok {
		msg, ok = protocol.Lookup(fields, fieldSecretAck)
	}
	if !ok {
		return nil, fmt.Errorf("pairing secret: %w", protocol.ErrFieldNotFound)
	}
	inner, err := protocol.ParseFields(msg.Bytes)
	if err != nil {
		return nil, fmt.Errorf("pairing secret: %w", err)
	}
	secret, ok := protocol.Lookup(inner, 1)
	if !ok {
		return nil, fmt.Errorf("pairing secret: %w", protocol.ErrFieldNotFound)
	}
	return secret.Bytes, nil
}
