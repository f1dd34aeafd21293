package pairing

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// PINLength is the number of hex characters in a displayed PIN.
const PINLength = 6

// Pairing errors.
var (
	ErrInvalidPIN      = errors.New("invalid PIN")
	ErrPINMismatch     = errors.New("PIN does not match certificates")
	ErrPairingRejected = errors.New("pairing rejected by peer")
)

// PIN is the 3-byte challenge shown on the device.
type PIN [3]byte

// ParsePIN parses six hex characters, case-insensitive. Surrounding
// whitespace is ignored.
func ParsePIN(s string) (PIN, error) {
	var pin PIN
	s = strings.TrimSpace(s)
	if len(s) != PINLength {
		return pin, fmt.Errorf("%w: must be %d hex characters", ErrInvalidPIN, PINLength)
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return pin, fmt.Errorf("%w: %v", ErrInvalidPIN, err)
	}
	copy(pin[:], raw)
	return pin, nil
}

// String returns the PIN as upper-case hex, the way devices display it.
func (p PIN) String() string {
	return strings.ToUpper(hex.EncodeToString(p[:]))
}
