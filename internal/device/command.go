package device

import (
	"encoding/json"
	"fmt"
	"time"
)

// CommandType identifies the kind of command in the closed command set.
type CommandType string

// Command types.
const (
	CommandPower      CommandType = "power"
	CommandBrightness CommandType = "brightness"
	CommandColor      CommandType = "color"
	CommandColorTemp  CommandType = "color_temperature"
	CommandSetTemp    CommandType = "set_temperature"
	CommandLock       CommandType = "lock"
	CommandVolume     CommandType = "volume"
	CommandMedia      CommandType = "media"
	CommandPanTilt    CommandType = "pan_tilt"
	CommandCustom     CommandType = "custom"
)

// Command is a typed instruction for a device. The closed set of
// variants maps one-to-one onto device capabilities; adapters translate
// each variant into protocol-specific payloads.
type Command interface {
	// Type returns the command discriminator.
	Type() CommandType

	// Validate checks parameter ranges before the command is dispatched.
	Validate() error

	// Apply writes the expected post-command property values into props.
	// Used to build optimistic state updates after a successful dispatch.
	Apply(props Properties)
}

// PowerCommand turns a device on or off.
type PowerCommand struct {
	On bool `json:"on"`
}

func (PowerCommand) Type() CommandType { return CommandPower }
func (PowerCommand) Validate() error   { return nil }
func (c PowerCommand) Apply(props Properties) {
	props["power"] = BoolValue(c.On)
}

// BrightnessCommand sets a dimming level from 0 to 100.
type BrightnessCommand struct {
	Level int `json:"level"`
}

func (BrightnessCommand) Type() CommandType { return CommandBrightness }
func (c BrightnessCommand) Validate() error {
	if c.Level < 0 || c.Level > 100 {
		return fmt.Errorf("%w: brightness level %d out of range 0-100", ErrInvalidCommand, c.Level)
	}
	return nil
}
// Apply writes only the brightness property. Whether dimming implies
// power-on is a device behaviour; devices that couple the two report
// the power change through their bridge as a separate state update.
func (c BrightnessCommand) Apply(props Properties) {
	props["brightness"] = NumberValue(float64(c.Level))
}

// ColorCommand sets an RGB colour.
type ColorCommand struct {
	Red   int `json:"red"`
	Green int `json:"green"`
	Blue  int `json:"blue"`
}

func (ColorCommand) Type() CommandType { return CommandColor }
func (c ColorCommand) Validate() error {
	for _, v := range []int{c.Red, c.Green, c.Blue} {
		if v < 0 || v > 255 {
			return fmt.Errorf("%w: colour channel %d out of range 0-255", ErrInvalidCommand, v)
		}
	}
	return nil
}
func (c ColorCommand) Apply(props Properties) {
	props["color"] = StringValue(fmt.Sprintf("#%02x%02x%02x", c.Red, c.Green, c.Blue))
}

// ColorTemperatureCommand sets a white colour temperature in kelvin.
type ColorTemperatureCommand struct {
	Kelvin int `json:"kelvin"`
}

func (ColorTemperatureCommand) Type() CommandType { return CommandColorTemp }
func (c ColorTemperatureCommand) Validate() error {
	if c.Kelvin < 1000 || c.Kelvin > 10000 {
		return fmt.Errorf("%w: colour temperature %dK out of range 1000-10000", ErrInvalidCommand, c.Kelvin)
	}
	return nil
}
func (c ColorTemperatureCommand) Apply(props Properties) {
	props["colorTemperature"] = NumberValue(float64(c.Kelvin))
}

// SetTemperatureCommand sets a thermostat target in degrees Celsius.
type SetTemperatureCommand struct {
	Target float64 `json:"target"`
}

func (SetTemperatureCommand) Type() CommandType { return CommandSetTemp }
func (c SetTemperatureCommand) Validate() error {
	if c.Target < 5 || c.Target > 35 {
		return fmt.Errorf("%w: target temperature %.1f out of range 5-35", ErrInvalidCommand, c.Target)
	}
	return nil
}
func (c SetTemperatureCommand) Apply(props Properties) {
	props["targetTemperature"] = NumberValue(c.Target)
}

// LockCommand locks or unlocks a lock. Locks report the final state
// back through their bridge; Apply records the requested state, and
// the confirmed state arrives as a normal state update.
type LockCommand struct {
	Lock bool `json:"lock"`
}

func (LockCommand) Type() CommandType { return CommandLock }
func (LockCommand) Validate() error   { return nil }
func (c LockCommand) Apply(props Properties) {
	props["locked"] = BoolValue(c.Lock)
}

// VolumeCommand sets an audio level from 0 to 100.
type VolumeCommand struct {
	Level int `json:"level"`
}

func (VolumeCommand) Type() CommandType { return CommandVolume }
func (c VolumeCommand) Validate() error {
	if c.Level < 0 || c.Level > 100 {
		return fmt.Errorf("%w: volume level %d out of range 0-100", ErrInvalidCommand, c.Level)
	}
	return nil
}
func (c VolumeCommand) Apply(props Properties) {
	props["volume"] = NumberValue(float64(c.Level))
}

// MediaAction is a playback transport action.
type MediaAction string

// Media actions.
const (
	MediaPlay     MediaAction = "play"
	MediaPause    MediaAction = "pause"
	MediaStop     MediaAction = "stop"
	MediaNext     MediaAction = "next"
	MediaPrevious MediaAction = "previous"
)

// MediaCommand controls media playback.
type MediaCommand struct {
	Action MediaAction `json:"action"`
}

func (MediaCommand) Type() CommandType { return CommandMedia }
func (c MediaCommand) Validate() error {
	switch c.Action {
	case MediaPlay, MediaPause, MediaStop, MediaNext, MediaPrevious:
		return nil
	}
	return fmt.Errorf("%w: unknown media action %q", ErrInvalidCommand, c.Action)
}
func (c MediaCommand) Apply(props Properties) {
	props["mediaAction"] = StringValue(string(c.Action))
}

// PanTiltCommand aims a camera. Angles are degrees.
type PanTiltCommand struct {
	Pan  float64 `json:"pan"`
	Tilt float64 `json:"tilt"`
}

func (PanTiltCommand) Type() CommandType { return CommandPanTilt }
func (c PanTiltCommand) Validate() error {
	if c.Pan < -180 || c.Pan > 180 {
		return fmt.Errorf("%w: pan %.1f out of range -180..180", ErrInvalidCommand, c.Pan)
	}
	if c.Tilt < -90 || c.Tilt > 90 {
		return fmt.Errorf("%w: tilt %.1f out of range -90..90", ErrInvalidCommand, c.Tilt)
	}
	return nil
}
func (c PanTiltCommand) Apply(props Properties) {
	props["pan"] = NumberValue(c.Pan)
	props["tilt"] = NumberValue(c.Tilt)
}

// CustomCommand carries a vendor-specific verb with free-form parameters.
type CustomCommand struct {
	Name   string     `json:"name"`
	Params Properties `json:"params,omitempty"`
}

func (CustomCommand) Type() CommandType { return CommandCustom }
func (c CustomCommand) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("%w: custom command requires a name", ErrInvalidCommand)
	}
	return nil
}
func (c CustomCommand) Apply(props Properties) {
	for k, v := range c.Params {
		props[k] = v
	}
}

// commandEnvelope is the wire form of a Command: a type discriminator
// plus the variant's own fields inlined.
type commandEnvelope struct {
	Type    CommandType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalCommand encodes a command into its tagged JSON envelope.
func MarshalCommand(cmd Command) ([]byte, error) {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshalling command payload: %w", err)
	}
	return json.Marshal(commandEnvelope{Type: cmd.Type(), Payload: payload})
}

// UnmarshalCommand decodes a tagged JSON envelope into a typed command.
// Returns ErrInvalidCommand for unknown types or malformed payloads.
func UnmarshalCommand(data []byte) (Command, error) {
	var env commandEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	var cmd Command
	switch env.Type {
	case CommandPower:
		cmd = &PowerCommand{}
	case CommandBrightness:
		cmd = &BrightnessCommand{}
	case CommandColor:
		cmd = &ColorCommand{}
	case CommandColorTemp:
		cmd = &ColorTemperatureCommand{}
	case CommandSetTemp:
		cmd = &SetTemperatureCommand{}
	case CommandLock:
		cmd = &LockCommand{}
	case CommandVolume:
		cmd = &VolumeCommand{}
	case CommandMedia:
		cmd = &MediaCommand{}
	case CommandPanTilt:
		cmd = &PanTiltCommand{}
	case CommandCustom:
		cmd = &CustomCommand{}
	default:
		return nil, fmt.Errorf("%w: unknown command type %q", ErrInvalidCommand, env.Type)
	}

	if len(env.Payload) > 0 {
		if err := json.Unmarshal(env.Payload, cmd); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
		}
	}

	return deref(cmd), nil
}

// deref returns the value form of a decoded command pointer so callers
// compare and switch on value types.
func deref(cmd Command) Command {
	switch c := cmd.(type) {
	case *PowerCommand:
		return *c
	case *BrightnessCommand:
		return *c
	case *ColorCommand:
		return *c
	case *ColorTemperatureCommand:
		return *c
	case *SetTemperatureCommand:
		return *c
	case *LockCommand:
		return *c
	case *VolumeCommand:
		return *c
	case *MediaCommand:
		return *c
	case *PanTiltCommand:
		return *c
	case *CustomCommand:
		return *c
	default:
		return cmd
	}
}

// RequiredCapability maps a command type to the capability a device
// must declare before the command is dispatched to it.
func RequiredCapability(ct CommandType) (Capability, bool) {
	switch ct {
	case CommandPower:
		return CapPower, true
	case CommandBrightness:
		return CapBrightness, true
	case CommandColor:
		return CapColor, true
	case CommandColorTemp:
		return CapColorTemp, true
	case CommandSetTemp:
		return CapTemperature, true
	case CommandLock:
		return CapLock, true
	case CommandVolume:
		return CapVolume, true
	case CommandMedia:
		return CapMedia, true
	case CommandPanTilt:
		return CapPanTilt, true
	case CommandCustom:
		return CapCustom, true
	}
	return "", false
}

// Command result error codes, aligned with their HTTP equivalents so
// the REST layer can pass them straight through.
const (
	CodeNone             = 0
	CodeNotFound         = 404
	CodePermissionDenied = 403
	CodeNotConnected     = 409
	CodeAdapterFailure   = 500
	CodeUnsupported      = 501
	CodeTimeout          = 504
)

// CommandResult reports the outcome of a single command dispatch.
type CommandResult struct {
	Success     bool        `json:"success"`
	Message     string      `json:"message,omitempty"`
	DeviceID    string      `json:"device_id"`
	CommandType CommandType `json:"command_type"`
	Timestamp   time.Time   `json:"timestamp"`
	ErrorCode   int         `json:"error_code,omitempty"`
}

// SuccessResult builds a successful command result.
func SuccessResult(deviceID string, ct CommandType) CommandResult {
	return CommandResult{
		Success:     true,
		DeviceID:    deviceID,
		CommandType: ct,
		Timestamp:   time.Now().UTC(),
	}
}

// FailureResult builds a failed command result with an error code.
func FailureResult(deviceID string, ct CommandType, code int, msg string) CommandResult {
	return CommandResult{
		Success:     false,
		Message:     msg,
		DeviceID:    deviceID,
		CommandType: ct,
		Timestamp:   time.Now().UTC(),
		ErrorCode:   code,
	}
}
