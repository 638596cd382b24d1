package log

import (
	"time"
)

// MaxPayloadSize is the number of payload bytes kept per message.
const MaxPayloadSize = 4096

// Event is one entry of the protocol log. Exactly one of Message,
// StateChange and Error is set. CBOR encoding uses integer keys.
type Event struct {
	Timestamp time.Time `cbor:"1,keyasint" json:"timestamp"`

	// SessionID identifies one websocket session to the controller.
	SessionID string `cbor:"2,keyasint" json:"session_id"`

	Direction Direction `cbor:"3,keyasint" json:"direction"`
	Category  Category  `cbor:"4,keyasint" json:"category"`

	RemoteAddr string `cbor:"5,keyasint,omitempty" json:"remote_addr,omitempty"`

	Message     *MessageEvent     `cbor:"6,keyasint,omitempty" json:"message,omitempty"`
	StateChange *StateChangeEvent `cbor:"7,keyasint,omitempty" json:"state_change,omitempty"`
	Error       *ErrorEventData   `cbor:"8,keyasint,omitempty" json:"error,omitempty"`
}

// Direction of a message relative to the exposer.
type Direction uint8

const (
	DirectionIn  Direction = 0
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

// MarshalText implements encoding.TextMarshaler.
func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Category classifies events.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategoryError   Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// MessageKind classifies controller messages.
type MessageKind uint8

const (
	KindRequest MessageKind = iota
	KindResult
	KindErrorReply
	KindEvent
	KindServerInfo
)

// String returns the kind name.
func (k MessageKind) String() string {
	switch k {
	case KindRequest:
		return "REQUEST"
	case KindResult:
		return "RESULT"
	case KindErrorReply:
		return "ERROR_REPLY"
	case KindEvent:
		return "EVENT"
	case KindServerInfo:
		return "SERVER_INFO"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k MessageKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// MessageEvent describes one websocket message.
type MessageEvent struct {
	Kind      MessageKind `cbor:"1,keyasint" json:"kind"`
	MessageID string      `cbor:"2,keyasint,omitempty" json:"message_id,omitempty"`

	// Command is the request command, or the event name for events.
	Command string `cbor:"3,keyasint,omitempty" json:"command,omitempty"`

	NodeID *uint64 `cbor:"4,keyasint,omitempty" json:"node_id,omitempty"`

	// Size of the full message in bytes.
	Size int `cbor:"5,keyasint" json:"size"`

	// Payload holds the raw JSON, cut at MaxPayloadSize.
	Payload   []byte `cbor:"6,keyasint,omitempty" json:"-"`
	Truncated bool   `cbor:"7,keyasint,omitempty" json:"truncated,omitempty"`

	// Latency from request to reply, for results and error replies.
	Latency *time.Duration `cbor:"8,keyasint,omitempty" json:"latency,omitempty"`

	ErrorCode *int `cbor:"9,keyasint,omitempty" json:"error_code,omitempty"`
}

// NewMessageEvent captures raw, truncating the stored payload.
func NewMessageEvent(kind MessageKind, raw []byte) *MessageEvent {
	m := &MessageEvent{Kind: kind, Size: len(raw)}
	if len(raw) > MaxPayloadSize {
		m.Payload = append([]byte(nil), raw[:MaxPayloadSize]...)
		m.Truncated = true
	} else if len(raw) > 0 {
		m.Payload = append([]byte(nil), raw...)
	}
	return m
}

// StateChangeEvent records a controller link transition.
type StateChangeEvent struct {
	OldState string `cbor:"1,keyasint" json:"old_state"`
	NewState string `cbor:"2,keyasint" json:"new_state"`
	Reason   string `cbor:"3,keyasint,omitempty" json:"reason,omitempty"`
}

// ErrorEventData records a failure that has no reply message, such as a
// message that could not be decoded.
type ErrorEventData struct {
	Message string `cbor:"1,keyasint" json:"message"`
	Context string `cbor:"2,keyasint,omitempty" json:"context,omitempty"`
}
