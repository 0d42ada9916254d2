package log

import (
	"time"

	"github.com/vitalink-protocol/vitalink-go/pkg/gatt"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the connection instance (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Device is the stable device identity (address).
	Device string `cbor:"6,keyasint,omitempty"`

	// DeviceName is the advertised device name.
	DeviceName string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Channel     *ChannelEvent     `cbor:"8,keyasint,omitempty"`  // Channel operations
	StateChange *StateChangeEvent `cbor:"9,keyasint,omitempty"`  // Scan/connection/session state
	Observation *ObservationEvent `cbor:"10,keyasint,omitempty"` // Battery/identification observations
	Error       *ErrorEventData   `cbor:"11,keyasint,omitempty"` // Errors at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming update or read result.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing write or subscribe request.
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
	// LayerTransport is the link layer (scan, connect, disconnect).
	LayerTransport Layer = 0
	// LayerGatt is the data-channel layer (reads, writes, notifications).
	LayerGatt Layer = 1
	// LayerSession is the orchestration layer (initialization, dispatch).
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerGatt:
		return "GATT"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryChannel indicates a channel operation (read/write/subscribe/notify).
	CategoryChannel Category = 0
	// CategoryState indicates a state change.
	CategoryState Category = 1
	// CategoryObservation indicates an observability-only value record.
	CategoryObservation Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryChannel:
		return "CHANNEL"
	case CategoryState:
		return "STATE"
	case CategoryObservation:
		return "OBSERVATION"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ChannelEvent captures one operation on a data channel.
type ChannelEvent struct {
	// Op is the channel operation performed.
	Op ChannelOp `cbor:"1,keyasint"`

	// Channel is the data-channel identifier.
	Channel gatt.ChannelID `cbor:"2,keyasint"`

	// Size is the payload size in bytes, if any payload was carried.
	Size int `cbor:"3,keyasint,omitempty"`
}

// ChannelOp indicates the kind of channel operation.
type ChannelOp uint8

const (
	// ChannelOpRead indicates a characteristic read.
	ChannelOpRead ChannelOp = 0
	// ChannelOpWrite indicates a characteristic write.
	ChannelOpWrite ChannelOp = 1
	// ChannelOpSubscribe indicates a subscription activation.
	ChannelOpSubscribe ChannelOp = 2
	// ChannelOpNotify indicates a received value update.
	ChannelOpNotify ChannelOp = 3
)

// String returns the channel operation name.
func (o ChannelOp) String() string {
	switch o {
	case ChannelOpRead:
		return "READ"
	case ChannelOpWrite:
		return "WRITE"
	case ChannelOpSubscribe:
		return "SUBSCRIBE"
	case ChannelOpNotify:
		return "NOTIFY"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures scan, connection and session lifecycle events.
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
	// StateEntityScan indicates a scan controller state change.
	StateEntityScan StateEntity = 0
	// StateEntityConnection indicates a connection state change.
	StateEntityConnection StateEntity = 1
	// StateEntitySession indicates a session state change.
	StateEntitySession StateEntity = 2
)

// String returns the state entity name.
func (s StateEntity) String() string {
	switch s {
	case StateEntityScan:
		return "SCAN"
	case StateEntityConnection:
		return "CONNECTION"
	case StateEntitySession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// ObservationEvent records a decoded value kept for observability only.
// Battery levels and identification fields produce observations, never
// domain events.
type ObservationEvent struct {
	// Kind of observation.
	Kind ObservationKind `cbor:"1,keyasint"`

	// Channel the value was read or notified on.
	Channel gatt.ChannelID `cbor:"2,keyasint"`

	// Text holds string-valued observations (identification fields).
	Text string `cbor:"3,keyasint,omitempty"`

	// Value holds numeric observations (battery percentage).
	Value uint64 `cbor:"4,keyasint,omitempty"`
}

// ObservationKind indicates the kind of observed value.
type ObservationKind uint8

const (
	// ObservationBatteryLevel is a battery percentage.
	ObservationBatteryLevel ObservationKind = 0
	// ObservationManufacturer is a manufacturer name string.
	ObservationManufacturer ObservationKind = 1
	// ObservationModel is a model number string.
	ObservationModel ObservationKind = 2
)

// String returns the observation kind name.
func (k ObservationKind) String() string {
	switch k {
	case ObservationBatteryLevel:
		return "BATTERY_LEVEL"
	case ObservationManufacturer:
		return "MANUFACTURER"
	case ObservationModel:
		return "MODEL"
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

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`

	// Channel is the data channel involved, if the error is channel-scoped.
	Channel *gatt.ChannelID `cbor:"4,keyasint,omitempty"`
}
