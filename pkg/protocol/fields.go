package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Field scanning errors.
var (
	// ErrMalformedField indicates a field that cannot be decoded.
	ErrMalformedField = errors.New("malformed field")

	// ErrFieldNotFound indicates a requested field is absent.
	ErrFieldNotFound = errors.New("field not found")
)

// Field is one decoded tag/value pair of a payload.
// Bytes is set for length-delimited fields, Varint for varint fields.
type Field struct {
	Num    protowire.Number
	Type   protowire.Type
	Varint uint64
	Bytes  []byte
}

// String returns the field value as text. Only meaningful for
// length-delimited fields.
func (f Field) String() string {
	return string(f.Bytes)
}

// ParseFields decodes the sequence of fields in payload. It returns the
// fields decoded before the first malformed one together with an error
// wrapping ErrMalformedField.
func ParseFields(payload []byte) ([]Field, error) {
	var fields []Field
	for len(payload) > 0 {
		num, typ, n := protowire.ConsumeTag(payload)
		if n < 0 {
			return fields, fmt.Errorf("%w: tag: %v", ErrMalformedField, protowire.ParseError(n))
		}
		payload = payload[n:]

		f := Field{Num: num, Type: typ}
		switch typ {
		case protowire.VarintType:
			f.Varint, n = protowire.ConsumeVarint(payload)
		case protowire.BytesType:
			f.Bytes, n = protowire.ConsumeBytes(payload)
		default:
			n = protowire.ConsumeFieldValue(num, typ, payload)
		}
		if n < 0 {
			return fields, fmt.Errorf("%w: field %d: %v", ErrMalformedField, num, protowire.ParseError(n))
		}
		payload = payload[n:]
		fields = append(fields, f)
	}
	return fields, nil
}

// Lookup returns the first field with the given number.
func Lookup(fields []Field, num protowire.Number) (Field, bool) {
	for _, f := range fields {
		if f.Num == num {
			return f, true
		}
	}
	return Field{}, false
}

// Unwrap returns the number and body of the outermost field of a message.
// Every remote message is a single length-delimited field wrapping the
// actual content.
func Unwrap(payload []byte) (protowire.Number, []byte, error) {
	num, typ, n := protowire.ConsumeTag(payload)
	if n < 0 {
		return 0, nil, fmt.Errorf("%w: tag: %v", ErrMalformedField, protowire.ParseError(n))
	}
	if typ != protowire.BytesType {
		return num, nil, fmt.Errorf("%w: field %d is not length-delimited", ErrMalformedField, num)
	}
	body, m := protowire.ConsumeBytes(payload[n:])
	if m < 0 {
		return num, nil, fmt.Errorf("%w: field %d: %v", ErrMalformedField, num, protowire.ParseError(m))
	}
	return num, body, nil
}
