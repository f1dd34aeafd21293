package log

import (
	"time"
)

// Event is one captured protocol event.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies one TLS connection (UUID). A reconnect
	// starts a new ID.
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Mode of the session that captured the event.
	Mode Mode `cbor:"6,keyasint,omitempty"`

	// RemoteAddr is the peer address (host:port).
	RemoteAddr string `cbor:"7,keyasint,omitempty"`

	// ThingID identifies the controlled device.
	ThingID string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Protocol layer (classified)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Connection/session state
	ControlMsg  *ControlMsgEvent  `cbor:"13,keyasint,omitempty"` // Keepalive/drop
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
	Command     *CommandEvent     `cbor:"15,keyasint,omitempty"` // Inbound commands
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerProtocol is the message layer (classified payloads).
	LayerProtocol Layer = 1
	// LayerSession is the session state machine.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerProtocol:
		return "PROTOCOL"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message.
	CategoryMessage Category = 0
	// CategoryControl indicates keepalive traffic or a drop marker.
	CategoryControl Category = 1
	// CategoryState indicates a state change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
	// CategoryCommand indicates a command received from the host.
	CategoryCommand Category = 4
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryControl:
		return "CONTROL"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	case CategoryCommand:
		return "COMMAND"
	default:
		return "UNKNOWN"
	}
}

// Mode is the session mode that captured an event.
type Mode uint8

const (
	// ModeNormal is a controlling session.
	ModeNormal Mode = 0
	// ModePin is a pairing session.
	ModePin Mode = 1
	// ModeShim is a relay session.
	ModeShim Mode = 2
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModePin:
		return "PIN"
	case ModeShim:
		return "SHIM"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the frame payload.
	Data []byte `cbor:"2,keyasint,omitempty"`
}

// MessageEvent captures a payload after classification by its opcode.
type MessageEvent struct {
	// Opcode is the leading hex byte of the payload.
	Opcode string `cbor:"1,keyasint"`

	// Name is the message name (e.g. "ping_request").
	Name string `cbor:"2,keyasint,omitempty"`

	// Hex is the full payload as hex.
	Hex string `cbor:"3,keyasint,omitempty"`

	// Relayed is set when a relay forwarded the message.
	Relayed bool `cbor:"4,keyasint,omitempty"`

	// Rewritten is set when a relay replaced the pairing digest.
	Rewritten bool `cbor:"5,keyasint,omitempty"`
}

// StateChangeEvent captures connection and session lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 0
	// StateEntitySession indicates a session state change.
	StateEntitySession StateEntity = 1
	// StateEntityPairing indicates a pairing state change.
	StateEntityPairing StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySession:
		return "SESSION"
	case StateEntityPairing:
		return "PAIRING"
	default:
		return "UNKNOWN"
	}
}

// ControlMsgEvent captures liveness traffic.
type ControlMsgEvent struct {
	// Type of control message.
	Type ControlMsgType `cbor:"1,keyasint"`
}

// ControlMsgType indicates the type of control message.
type ControlMsgType uint8

const (
	// ControlMsgPing is a keepalive request from the device.
	ControlMsgPing ControlMsgType = 0
	// ControlMsgPong is a keepalive reply.
	ControlMsgPong ControlMsgType = 1
	// ControlMsgDrop is the reserved all-ones length marker.
	ControlMsgDrop ControlMsgType = 2
	// ControlMsgTimeout is a missed keepalive.
	ControlMsgTimeout ControlMsgType = 3
)

// String returns the control message type name.
func (c ControlMsgType) String() string {
	switch c {
	case ControlMsgPing:
		return "PING"
	case ControlMsgPong:
		return "PONG"
	case ControlMsgDrop:
		return "DROP"
	case ControlMsgTimeout:
		return "TIMEOUT"
	default:
		return "UNKNOWN"
	}
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Kind is the connection error classification (if applicable).
	Kind string `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}

// CommandEvent captures a command submitted by the host.
type CommandEvent struct {
	// Channel the command was sent to.
	Channel string `cbor:"1,keyasint"`

	// Value is the command text.
	Value string `cbor:"2,keyasint"`

	// Result is empty on success, otherwise the rejection reason.
	Result string `cbor:"3,keyasint,omitempty"`
}
