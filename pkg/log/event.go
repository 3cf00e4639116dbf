package log

import (
	"time"

	"github.com/lifesmart-local/lifesmart-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the socket the event belongs to (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates datagram flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the hub address (IP:port).
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// DeviceID is the hub-scoped device identifier, when the event
	// concerns a single device.
	DeviceID string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Datagram    *DatagramEvent    `cbor:"10,keyasint,omitempty"` // Transport layer
	Exchange    *ExchangeEvent    `cbor:"11,keyasint,omitempty"` // Request/response summary
	Update      *UpdateEvent      `cbor:"12,keyasint,omitempty"` // Decoded state push
	StateChange *StateChangeEvent `cbor:"13,keyasint,omitempty"` // Pool/listener/coordinator state
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of datagram flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming datagram.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing datagram.
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

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the datagram layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the message encoding layer (header + JSON body).
	LayerWire Layer = 1
	// LayerClient is the command/polling layer.
	LayerClient Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerClient:
		return "CLIENT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage indicates a protocol message (command, response or push).
	CategoryMessage Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryError indicates an error event.
	CategoryError Category = 2
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

// DatagramEvent captures raw datagram data at the transport layer.
type DatagramEvent struct {
	// Size is the datagram size in bytes (including the 10-byte header).
	Size int `cbor:"1,keyasint"`

	// Data is the raw datagram bytes (may be truncated for large datagrams).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// ExchangeEvent summarizes one command/response round trip.
type ExchangeEvent struct {
	// Object is the command target (eps, ep, spotremote).
	Object string `cbor:"1,keyasint"`

	// Command is the header command type of the request.
	Command wire.CommandType `cbor:"2,keyasint"`

	// Sequence is the message id used for the request.
	Sequence uint32 `cbor:"3,keyasint"`

	// Code is the hub response code (absent when no response arrived).
	Code *int `cbor:"4,keyasint,omitempty"`

	// Attempt numbers retries of the same command, starting at 1.
	Attempt int `cbor:"5,keyasint,omitempty"`

	// RTT is the duration from send to response receipt.
	// Stored as nanoseconds.
	RTT *time.Duration `cbor:"6,keyasint,omitempty"`
}

// UpdateEvent captures a decoded state push from the hub.
type UpdateEvent struct {
	// Me is the device identifier the update refers to.
	Me string `cbor:"1,keyasint"`

	// Idx is the sub-channel index.
	Idx string `cbor:"2,keyasint,omitempty"`

	// ValueType is the protocol value type code.
	ValueType int `cbor:"3,keyasint,omitempty"`

	// Value is the reported value.
	Value float64 `cbor:"4,keyasint,omitempty"`
}

// StateChangeEvent captures pool, listener and coordinator lifecycle events.
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
	// StateEntityPool indicates a connection pool state change.
	StateEntityPool StateEntity = 0
	// StateEntityListener indicates a listener socket state change.
	StateEntityListener StateEntity = 1
	// StateEntityCoordinator indicates a polling coordinator state change.
	StateEntityCoordinator StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityPool:
		return "POOL"
	case StateEntityListener:
		return "LISTENER"
	case StateEntityCoordinator:
		return "COORDINATOR"
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

	// Code is the hub response code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
