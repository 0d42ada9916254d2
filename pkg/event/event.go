// Package event defines the typed domain events published by the
// orchestration core and the publish/subscribe bus that delivers them
// to consumers.
package event

import (
	"time"

	"github.com/vitalink-protocol/vitalink-go/pkg/decode"
)

// Type keys an event class on the bus.
type Type uint

const (
	// TypeBloodPressure keys blood pressure measurement events.
	TypeBloodPressure Type = iota

	// TypeTemperature keys temperature measurement events.
	TypeTemperature

	// TypeHeartRate keys heart rate measurement events.
	TypeHeartRate
)

// String returns the event type name.
func (t Type) String() string {
	switch t {
	case TypeBloodPressure:
		return "BLOOD_PRESSURE_MEASUREMENT"
	case TypeTemperature:
		return "TEMPERATURE_MEASUREMENT"
	case TypeHeartRate:
		return "HEART_RATE_MEASUREMENT"
	default:
		return "UNKNOWN"
	}
}

// BloodPressureMeasurement is a decoded blood pressure reading from one
// device notification.
type BloodPressureMeasurement struct {
	decode.BloodPressure

	// Device is the stable identity of the originating device.
	Device string

	// DeviceName is the advertised device name.
	DeviceName string

	// ReceivedAt is the local receive time of the notification.
	ReceivedAt time.Time
}

// TemperatureMeasurement is a decoded temperature reading from one
// device notification.
type TemperatureMeasurement struct {
	decode.Temperature

	Device     string
	DeviceName string
	ReceivedAt time.Time
}

// HeartRateMeasurement is a decoded heart rate reading from one device
// notification.
type HeartRateMeasurement struct {
	decode.HeartRate

	Device     string
	DeviceName string
	ReceivedAt time.Time
}
