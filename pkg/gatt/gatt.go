package gatt

// CapabilityID identifies a capability (a SIG-assigned 16-bit service UUID).
type CapabilityID uint16

// Capability identifiers for the supported profiles.
const (
	// CapDeviceInformation is the Device Information service.
	CapDeviceInformation CapabilityID = 0x180A

	// CapCurrentTime is the Current Time service.
	CapCurrentTime CapabilityID = 0x1805

	// CapBattery is the Battery service.
	CapBattery CapabilityID = 0x180F

	// CapBloodPressure is the Blood Pressure service.
	CapBloodPressure CapabilityID = 0x1810

	// CapHealthThermometer is the Health Thermometer service.
	CapHealthThermometer CapabilityID = 0x1809

	// CapHeartRate is the Heart Rate service.
	CapHeartRate CapabilityID = 0x180D
)

// String returns a human-readable capability name.
func (c CapabilityID) String() string {
	switch c {
	case CapDeviceInformation:
		return "DEVICE_INFORMATION"
	case CapCurrentTime:
		return "CURRENT_TIME"
	case CapBattery:
		return "BATTERY"
	case CapBloodPressure:
		return "BLOOD_PRESSURE"
	case CapHealthThermometer:
		return "HEALTH_THERMOMETER"
	case CapHeartRate:
		return "HEART_RATE"
	default:
		return "UNKNOWN"
	}
}

// ChannelID identifies a data channel (a SIG-assigned 16-bit characteristic UUID).
type ChannelID uint16

// Channel identifiers for the supported profiles.
const (
	// ChanManufacturerName is the Manufacturer Name String characteristic.
	ChanManufacturerName ChannelID = 0x2A29

	// ChanModelNumber is the Model Number String characteristic.
	ChanModelNumber ChannelID = 0x2A24

	// ChanCurrentTime is the Current Time characteristic.
	ChanCurrentTime ChannelID = 0x2A2B

	// ChanBatteryLevel is the Battery Level characteristic.
	ChanBatteryLevel ChannelID = 0x2A19

	// ChanBloodPressureMeasurement is the Blood Pressure Measurement characteristic.
	ChanBloodPressureMeasurement ChannelID = 0x2A35

	// ChanTemperatureMeasurement is the Temperature Measurement characteristic.
	ChanTemperatureMeasurement ChannelID = 0x2A1C

	// ChanHeartRateMeasurement is the Heart Rate Measurement characteristic.
	ChanHeartRateMeasurement ChannelID = 0x2A37
)

// String returns a human-readable channel name.
func (c ChannelID) String() string {
	switch c {
	case ChanManufacturerName:
		return "MANUFACTURER_NAME"
	case ChanModelNumber:
		return "MODEL_NUMBER"
	case ChanCurrentTime:
		return "CURRENT_TIME"
	case ChanBatteryLevel:
		return "BATTERY_LEVEL"
	case ChanBloodPressureMeasurement:
		return "BLOOD_PRESSURE_MEASUREMENT"
	case ChanTemperatureMeasurement:
		return "TEMPERATURE_MEASUREMENT"
	case ChanHeartRateMeasurement:
		return "HEART_RATE_MEASUREMENT"
	default:
		return "UNKNOWN"
	}
}

// DecodeRule selects the payload layout for a channel.
type DecodeRule uint8

const (
	// RuleUTF8 decodes a UTF-8 string field.
	RuleUTF8 DecodeRule = iota

	// RuleUint8 decodes a single unsigned byte.
	RuleUint8

	// RuleDateTime decodes a 7-byte date-time field.
	RuleDateTime

	// RuleBloodPressure decodes a blood pressure measurement.
	RuleBloodPressure

	// RuleTemperature decodes a temperature measurement.
	RuleTemperature

	// RuleHeartRate decodes a heart rate measurement.
	RuleHeartRate
)

// String returns the decode rule name.
func (r DecodeRule) String() string {
	switch r {
	case RuleUTF8:
		return "UTF8"
	case RuleUint8:
		return "UINT8"
	case RuleDateTime:
		return "DATE_TIME"
	case RuleBloodPressure:
		return "BLOOD_PRESSURE"
	case RuleTemperature:
		return "TEMPERATURE"
	case RuleHeartRate:
		return "HEART_RATE"
	default:
		return "UNKNOWN"
	}
}

// Access is a bitmask of the operations a channel supports.
type Access uint8

const (
	// AccessRead allows reading the channel value.
	AccessRead Access = 1 << iota

	// AccessWrite allows writing the channel value.
	AccessWrite

	// AccessNotify allows subscribing to value updates.
	AccessNotify
)

// CanRead reports whether the channel supports reads.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite reports whether the channel supports writes.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

// CanNotify reports whether the channel supports subscriptions.
func (a Access) CanNotify() bool { return a&AccessNotify != 0 }

// Channel describes one data channel within a capability.
type Channel struct {
	ID     ChannelID
	Rule   DecodeRule
	Access Access
}

// Capability describes one registry entry: a capability and the channels
// it exposes, in the order they are set up during session initialization.
type Capability struct {
	ID       CapabilityID
	Channels []Channel
}

// registry lists the supported capabilities in the fixed initialization
// priority order: identification, clock, battery, blood pressure,
// temperature, heart rate.
var registry = []Capability{
	{
		ID: CapDeviceInformation,
		Channels: []Channel{
			{ID: ChanManufacturerName, Rule: RuleUTF8, Access: AccessRead},
			{ID: ChanModelNumber, Rule: RuleUTF8, Access: AccessRead},
		},
	},
	{
		ID: CapCurrentTime,
		Channels: []Channel{
			{ID: ChanCurrentTime, Rule: RuleDateTime, Access: AccessRead | AccessWrite | AccessNotify},
		},
	},
	{
		ID: CapBattery,
		Channels: []Channel{
			{ID: ChanBatteryLevel, Rule: RuleUint8, Access: AccessRead | AccessNotify},
		},
	},
	{
		ID: CapBloodPressure,
		Channels: []Channel{
			{ID: ChanBloodPressureMeasurement, Rule: RuleBloodPressure, Access: AccessNotify},
		},
	},
	{
		ID: CapHealthThermometer,
		Channels: []Channel{
			{ID: ChanTemperatureMeasurement, Rule: RuleTemperature, Access: AccessNotify},
		},
	},
	{
		ID: CapHeartRate,
		Channels: []Channel{
			{ID: ChanHeartRateMeasurement, Rule: RuleHeartRate, Access: AccessNotify},
		},
	},
}

// Index structures built once at package init.
var (
	byCapability = make(map[CapabilityID]Capability, len(registry))
	byChannel    = make(map[ChannelID]channelEntry, len(registry)*2)
)

type channelEntry struct {
	channel Channel
	owner   CapabilityID
}

func init() {
	for _, cap := range registry {
		byCapability[cap.ID] = cap
		for _, ch := range cap.Channels {
			byChannel[ch.ID] = channelEntry{channel: ch, owner: cap.ID}
		}
	}
}

// Capabilities returns all registry entries in initialization priority order.
func Capabilities() []Capability {
	out := make([]Capability, len(registry))
	copy(out, registry)
	return out
}

// CapabilityIDs returns the identifiers of all supported capabilities in
// priority order. Used as the default discovery filter.
func CapabilityIDs() []CapabilityID {
	ids := make([]CapabilityID, len(registry))
	for i, cap := range registry {
		ids[i] = cap.ID
	}
	return ids
}

// Lookup returns the registry entry for a capability.
func Lookup(id CapabilityID) (Capability, bool) {
	cap, ok := byCapability[id]
	return cap, ok
}

// LookupChannel returns a channel's registry entry and its owning capability.
func LookupChannel(id ChannelID) (Channel, CapabilityID, bool) {
	e, ok := byChannel[id]
	return e.channel, e.owner, ok
}
