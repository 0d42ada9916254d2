package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"
)

// Decode errors.
var (
	ErrTruncated   = errors.New("payload truncated")
	ErrInvalidUTF8 = errors.New("payload is not valid UTF-8")
	ErrBadDateTime = errors.New("invalid date-time field")
)

// PressureUnit is the unit of a blood pressure measurement.
type PressureUnit uint8

const (
	// UnitMmHg indicates values in millimetres of mercury.
	UnitMmHg PressureUnit = iota

	// UnitKPa indicates values in kilopascals.
	UnitKPa
)

// String returns the unit symbol.
func (u PressureUnit) String() string {
	if u == UnitKPa {
		return "kPa"
	}
	return "mmHg"
}

// TemperatureUnit is the unit of a temperature measurement.
type TemperatureUnit uint8

const (
	// UnitCelsius indicates degrees Celsius.
	UnitCelsius TemperatureUnit = iota

	// UnitFahrenheit indicates degrees Fahrenheit.
	UnitFahrenheit
)

// String returns the unit symbol.
func (u TemperatureUnit) String() string {
	if u == UnitFahrenheit {
		return "°F"
	}
	return "°C"
}

// BloodPressure is a decoded blood pressure measurement payload.
type BloodPressure struct {
	Systolic     float64
	Diastolic    float64
	MeanArterial float64
	Unit         PressureUnit

	// Timestamp is the device-reported measurement time, if present.
	Timestamp *time.Time

	// PulseRate is the pulse rate in beats per minute, if present.
	PulseRate *float64
}

// Blood pressure measurement flag bits.
const (
	bpFlagUnitKPa   = 1 << 0
	bpFlagTimestamp = 1 << 1
	bpFlagPulseRate = 1 << 2
)

// BloodPressureMeasurement decodes a Blood Pressure Measurement payload.
func BloodPressureMeasurement(data []byte) (BloodPressure, error) {
	var m BloodPressure

	if len(data) < 7 {
		return m, fmt.Errorf("blood pressure measurement: %w (%d bytes)", ErrTruncated, len(data))
	}

	flags := data[0]
	m.Unit = UnitMmHg
	if flags&bpFlagUnitKPa != 0 {
		m.Unit = UnitKPa
	}

	m.Systolic = SFloat(binary.LittleEndian.Uint16(data[1:3]))
	m.Diastolic = SFloat(binary.LittleEndian.Uint16(data[3:5]))
	m.MeanArterial = SFloat(binary.LittleEndian.Uint16(data[5:7]))
	offset := 7

	if flags&bpFlagTimestamp != 0 {
		if len(data) < offset+7 {
			return BloodPressure{}, fmt.Errorf("blood pressure timestamp: %w", ErrTruncated)
		}
		ts, err := DateTime(data[offset : offset+7])
		if err != nil {
			return BloodPressure{}, err
		}
		m.Timestamp = &ts
		offset += 7
	}

	if flags&bpFlagPulseRate != 0 {
		if len(data) < offset+2 {
			return BloodPressure{}, fmt.Errorf("blood pressure pulse rate: %w", ErrTruncated)
		}
		rate := SFloat(binary.LittleEndian.Uint16(data[offset : offset+2]))
		m.PulseRate = &rate
	}

	return m, nil
}

// Temperature is a decoded temperature measurement payload.
type Temperature struct {
	Value float64
	Unit  TemperatureUnit

	// Timestamp is the device-reported measurement time, if present.
	Timestamp *time.Time
}

// Temperature measurement flag bits.
const (
	tempFlagUnitFahrenheit = 1 << 0
	tempFlagTimestamp      = 1 << 1
)

// TemperatureMeasurement decodes a Temperature Measurement payload.
func TemperatureMeasurement(data []byte) (Temperature, error) {
	var m Temperature

	if len(data) < 5 {
		return m, fmt.Errorf("temperature measurement: %w (%d bytes)", ErrTruncated, len(data))
	}

	flags := data[0]
	m.Unit = UnitCelsius
	if flags&tempFlagUnitFahrenheit != 0 {
		m.Unit = UnitFahrenheit
	}

	m.Value = Float(binary.LittleEndian.Uint32(data[1:5]))

	if flags&tempFlagTimestamp != 0 {
		if len(data) < 12 {
			return Temperature{}, fmt.Errorf("temperature timestamp: %w", ErrTruncated)
		}
		ts, err := DateTime(data[5:12])
		if err != nil {
			return Temperature{}, err
		}
		m.Timestamp = &ts
	}

	return m, nil
}

// SensorContact reports the heart rate sensor's skin contact status.
type SensorContact uint8

const (
	// ContactNotSupported means the sensor does not report contact status.
	ContactNotSupported SensorContact = iota

	// ContactNotDetected means contact status is supported but no contact
	// is currently detected.
	ContactNotDetected

	// ContactDetected means skin contact is detected.
	ContactDetected
)

// String returns the contact status name.
func (s SensorContact) String() string {
	switch s {
	case ContactNotDetected:
		return "NOT_DETECTED"
	case ContactDetected:
		return "DETECTED"
	default:
		return "NOT_SUPPORTED"
	}
}

// HeartRate is a decoded heart rate measurement payload.
type HeartRate struct {
	BPM     int
	Contact SensorContact
}

// Heart rate measurement flag bits.
const (
	hrFlagValue16Bit       = 1 << 0
	hrFlagContactDetected  = 1 << 1
	hrFlagContactSupported = 1 << 2
)

// HeartRateMeasurement decodes a Heart Rate Measurement payload.
func HeartRateMeasurement(data []byte) (HeartRate, error) {
	var m HeartRate

	if len(data) < 2 {
		return m, fmt.Errorf("heart rate measurement: %w (%d bytes)", ErrTruncated, len(data))
	}

	flags := data[0]

	if flags&hrFlagContactSupported != 0 {
		if flags&hrFlagContactDetected != 0 {
			m.Contact = ContactDetected
		} else {
			m.Contact = ContactNotDetected
		}
	}

	if flags&hrFlagValue16Bit != 0 {
		if len(data) < 3 {
			return HeartRate{}, fmt.Errorf("heart rate value: %w", ErrTruncated)
		}
		m.BPM = int(binary.LittleEndian.Uint16(data[1:3]))
	} else {
		m.BPM = int(data[1])
	}

	return m, nil
}

// DateTime decodes a 7-byte date-time field into a local time.
func DateTime(data []byte) (time.Time, error) {
	if len(data) < 7 {
		return time.Time{}, fmt.Errorf("date-time: %w (%d bytes)", ErrTruncated, len(data))
	}

	year := int(binary.LittleEndian.Uint16(data[0:2]))
	month := int(data[2])
	day := int(data[3])

	if year == 0 || month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: year=%d month=%d day=%d", ErrBadDateTime, year, month, day)
	}
	if data[4] > 23 || data[5] > 59 || data[6] > 59 {
		return time.Time{}, fmt.Errorf("%w: %02d:%02d:%02d", ErrBadDateTime, data[4], data[5], data[6])
	}

	return time.Date(year, time.Month(month), day,
		int(data[4]), int(data[5]), int(data[6]), 0, time.Local), nil
}

// EncodeDateTime encodes a time as a 7-byte date-time field, as written
// to the current time channel.
func EncodeDateTime(t time.Time) []byte {
	buf := make([]byte, 7)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(t.Year()))
	buf[2] = byte(t.Month())
	buf[3] = byte(t.Day())
	buf[4] = byte(t.Hour())
	buf[5] = byte(t.Minute())
	buf[6] = byte(t.Second())
	return buf
}

// BatteryLevel decodes a battery level payload into a percentage.
func BatteryLevel(data []byte) (uint8, error) {
	if len(data) < 1 {
		return 0, fmt.Errorf("battery level: %w", ErrTruncated)
	}
	if data[0] > 100 {
		return 0, fmt.Errorf("battery level %d out of range", data[0])
	}
	return data[0], nil
}

// String decodes a UTF-8 string field, trimming a trailing NUL if present.
func String(data []byte) (string, error) {
	if n := len(data); n > 0 && data[n-1] == 0 {
		data = data[:n-1]
	}
	if !utf8.Valid(data) {
		return "", ErrInvalidUTF8
	}
	return string(data), nil
}
