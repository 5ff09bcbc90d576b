package device

import (
	"encoding/json"
	"fmt"
	"time"
)

// Device represents a controllable or monitorable endpoint reachable
// through exactly one protocol.
type Device struct {
	// Identity
	ID              string `json:"id"`
	Name            string `json:"name"`
	Manufacturer    string `json:"manufacturer,omitempty"`
	Model           string `json:"model,omitempty"`
	FirmwareVersion string `json:"firmware_version,omitempty"`

	// Classification
	Type     DeviceType `json:"type"`
	Protocol Protocol   `json:"protocol"`

	// Capabilities
	Capabilities []Capability `json:"capabilities"`

	// Location label (free-form, no room hierarchy)
	Room string `json:"room,omitempty"`

	// Connection
	ConnectionState ConnectionState `json:"connection_state"`
	LastConnected   *time.Time      `json:"last_connected,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates a complete independent copy of the Device.
// Slice fields are cloned so modifications to the copy do not affect
// the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	if d.Capabilities != nil {
		cpy.Capabilities = make([]Capability, len(d.Capabilities))
		copy(cpy.Capabilities, d.Capabilities)
	}

	if d.LastConnected != nil {
		t := *d.LastConnected
		cpy.LastConnected = &t
	}

	return &cpy
}

// HasCapability reports whether the device supports the given capability.
func (d *Device) HasCapability(c Capability) bool {
	for _, have := range d.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// DeviceState is the last-observed property snapshot for a device.
//
// One logical current state exists per device; history is not retained
// by the core (the optional recorder ships numeric values to InfluxDB).
type DeviceState struct {
	DeviceID   string     `json:"device_id"`
	Timestamp  time.Time  `json:"timestamp"`
	Properties Properties `json:"properties"`
	Online     bool       `json:"online"`
}

// DeepCopy creates an independent copy of the state snapshot.
func (s *DeviceState) DeepCopy() *DeviceState {
	if s == nil {
		return nil
	}
	cpy := *s
	cpy.Properties = s.Properties.DeepCopy()
	return &cpy
}

// Properties maps property names to typed values.
//
// Examples:
//   - Light: {"power": true, "brightness": 75}
//   - Thermostat: {"temperature": 21.5, "targetTemperature": 22.0}
//   - Lock: {"locked": true}
type Properties map[string]Value

// DeepCopy clones the property map. Value is a value type, so a
// per-key copy is sufficient.
func (p Properties) DeepCopy() Properties {
	if p == nil {
		return nil
	}
	cpy := make(Properties, len(p))
	for k, v := range p {
		cpy[k] = v
	}
	return cpy
}

// ValueKind discriminates the closed set of property value types.
type ValueKind int

// Value kinds.
const (
	KindString ValueKind = iota
	KindNumber
	KindBool
)

// Value is a dynamically-typed property value restricted to a closed
// set of kinds (string, number, boolean). Keeping the set closed makes
// trigger comparison operators type-safe.
type Value struct {
	Kind ValueKind
	Str  string
	Num  float64
	Bool bool
}

// StringValue wraps a string as a Value.
func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

// NumberValue wraps a number as a Value.
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Num: n} }

// BoolValue wraps a boolean as a Value.
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// AsNumber returns the numeric value and whether the value is numeric.
func (v Value) AsNumber() (float64, bool) {
	if v.Kind == KindNumber {
		return v.Num, true
	}
	return 0, false
}

// AsBool returns the boolean value and whether the value is boolean.
func (v Value) AsBool() (bool, bool) {
	if v.Kind == KindBool {
		return v.Bool, true
	}
	return false, false
}

// Equal reports whether two values have the same kind and content.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == other.Str
	case KindNumber:
		return v.Num == other.Num
	case KindBool:
		return v.Bool == other.Bool
	default:
		return false
	}
}

// String renders the value for logging and string-encoded comparisons.
func (v Value) String() string {
	switch v.Kind {
	case KindString:
		return v.Str
	case KindNumber:
		return fmt.Sprintf("%g", v.Num)
	case KindBool:
		return fmt.Sprintf("%t", v.Bool)
	default:
		return ""
	}
}

// MarshalJSON encodes the value as a bare JSON scalar.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindBool:
		return json.Marshal(v.Bool)
	default:
		return nil, fmt.Errorf("%w: unknown value kind %d", ErrInvalidState, v.Kind)
	}
}

// UnmarshalJSON decodes a bare JSON scalar into a typed value.
// Non-scalar JSON (objects, arrays, null) is rejected.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch val := raw.(type) {
	case string:
		*v = StringValue(val)
	case float64:
		*v = NumberValue(val)
	case bool:
		*v = BoolValue(val)
	default:
		return fmt.Errorf("%w: unsupported value type %T", ErrInvalidState, raw)
	}
	return nil
}

// DeviceType represents the specific kind of device.
type DeviceType string //nolint:revive // device.DeviceType is clearer than device.Type in calling code

// Device types.
const (
	DeviceTypeLight      DeviceType = "light"
	DeviceTypeSwitch     DeviceType = "switch"
	DeviceTypeOutlet     DeviceType = "outlet"
	DeviceTypeThermostat DeviceType = "thermostat"
	DeviceTypeLock       DeviceType = "lock"
	DeviceTypeCamera     DeviceType = "camera"
	DeviceTypeSpeaker    DeviceType = "speaker"
	DeviceTypeDisplay    DeviceType = "display"
	DeviceTypeSensor     DeviceType = "sensor"
	DeviceTypeFan        DeviceType = "fan"
	DeviceTypeAppliance  DeviceType = "appliance"
	DeviceTypeTV         DeviceType = "tv"
	DeviceTypeVacuum     DeviceType = "vacuum"
	DeviceTypeIrrigation DeviceType = "irrigation"
	DeviceTypeBlind      DeviceType = "blind"
	DeviceTypeOther      DeviceType = "other"
)

// AllDeviceTypes returns all valid device type values.
func AllDeviceTypes() []DeviceType {
	return []DeviceType{
		DeviceTypeLight, DeviceTypeSwitch, DeviceTypeOutlet,
		DeviceTypeThermostat, DeviceTypeLock, DeviceTypeCamera,
		DeviceTypeSpeaker, DeviceTypeDisplay, DeviceTypeSensor,
		DeviceTypeFan, DeviceTypeAppliance, DeviceTypeTV,
		DeviceTypeVacuum, DeviceTypeIrrigation, DeviceTypeBlind,
		DeviceTypeOther,
	}
}

// Protocol represents the transport a device is reachable through.
type Protocol string

// Protocol constants.
const (
	ProtocolWiFi      Protocol = "wifi"
	ProtocolBluetooth Protocol = "bluetooth"
	ProtocolZigbee    Protocol = "zigbee"
	ProtocolZWave     Protocol = "zwave"
	ProtocolThread    Protocol = "thread"
	ProtocolMatter    Protocol = "matter"
)

// AllProtocols returns all valid protocol values.
func AllProtocols() []Protocol {
	return []Protocol{
		ProtocolWiFi, ProtocolBluetooth, ProtocolZigbee,
		ProtocolZWave, ProtocolThread, ProtocolMatter,
	}
}

// Capability represents an enumerated verb a device supports.
type Capability string

// Capability constants.
const (
	CapPower       Capability = "power"
	CapBrightness  Capability = "brightness"
	CapColor       Capability = "color"
	CapColorTemp   Capability = "color_temperature"
	CapTemperature Capability = "temperature_control"
	CapLock        Capability = "lock_unlock"
	CapVolume      Capability = "volume"
	CapMedia       Capability = "media_playback"
	CapPanTilt     Capability = "pan_tilt"
	CapMotion      Capability = "motion_detect"
	CapContact     Capability = "contact_state"
	CapHumidity    Capability = "humidity_read"
	CapEnergy      Capability = "energy_read"
	CapCustom      Capability = "custom"
)

// AllCapabilities returns all valid capability values.
func AllCapabilities() []Capability {
	return []Capability{
		CapPower, CapBrightness, CapColor, CapColorTemp,
		CapTemperature, CapLock, CapVolume, CapMedia,
		CapPanTilt, CapMotion, CapContact, CapHumidity,
		CapEnergy, CapCustom,
	}
}

// ConnectionState represents the device connection lifecycle.
type ConnectionState string

// Connection states.
const (
	ConnectionDiscovered   ConnectionState = "discovered"
	ConnectionConnecting   ConnectionState = "connecting"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionError        ConnectionState = "error"
)

// AllConnectionStates returns all valid connection state values.
func AllConnectionStates() []ConnectionState {
	return []ConnectionState{
		ConnectionDiscovered, ConnectionConnecting, ConnectionConnected,
		ConnectionDisconnected, ConnectionError,
	}
}
