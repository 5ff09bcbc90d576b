package device

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength = 100

	// Size limits to keep adapter-supplied payloads bounded.
	maxCapabilities   = 50
	maxStateKeys      = 100
	maxStringValueLen = 1024
)

// Pre-computed validation sets for O(1) lookups instead of O(n) linear search.
var (
	validProtocols        map[Protocol]struct{}
	validDeviceTypes      map[DeviceType]struct{}
	validCapabilities     map[Capability]struct{}
	validConnectionStates map[ConnectionState]struct{}
)

func init() {
	// Build validation sets once at startup
	validProtocols = make(map[Protocol]struct{}, len(AllProtocols()))
	for _, p := range AllProtocols() {
		validProtocols[p] = struct{}{}
	}

	validDeviceTypes = make(map[DeviceType]struct{}, len(AllDeviceTypes()))
	for _, t := range AllDeviceTypes() {
		validDeviceTypes[t] = struct{}{}
	}

	validCapabilities = make(map[Capability]struct{}, len(AllCapabilities()))
	for _, c := range AllCapabilities() {
		validCapabilities[c] = struct{}{}
	}

	validConnectionStates = make(map[ConnectionState]struct{}, len(AllConnectionStates()))
	for _, s := range AllConnectionStates() {
		validConnectionStates[s] = struct{}{}
	}
}

// ValidateDevice performs comprehensive validation on a device.
// Returns an error describing the first validation failure found.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateName(d.Name); err != nil {
		return err
	}

	if err := ValidateDeviceType(d.Type); err != nil {
		return err
	}

	if err := ValidateProtocol(d.Protocol); err != nil {
		return err
	}

	if err := ValidateCapabilities(d.Capabilities); err != nil {
		return err
	}

	if d.ConnectionState != "" && !IsValidConnectionState(d.ConnectionState) {
		return fmt.Errorf("%w: %q", ErrInvalidConnectionState, d.ConnectionState)
	}

	return nil
}

// ValidateState checks a state snapshot's device reference and size limits.
func ValidateState(s *DeviceState) error {
	if s == nil || s.DeviceID == "" {
		return fmt.Errorf("%w: missing device id", ErrInvalidState)
	}
	if len(s.Properties) > maxStateKeys {
		return fmt.Errorf("%w: state exceeds max keys (%d)", ErrInvalidState, maxStateKeys)
	}
	for k, v := range s.Properties {
		if len(k) > maxStringValueLen {
			return fmt.Errorf("%w: property key too long", ErrInvalidState)
		}
		if v.Kind == KindString && len(v.Str) > maxStringValueLen {
			return fmt.Errorf("%w: property %q string value too long", ErrInvalidState, k)
		}
	}
	return nil
}

// ValidateName checks if a device name is valid.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateProtocol checks if a protocol is valid.
// Uses O(1) map lookup for efficiency.
func ValidateProtocol(protocol Protocol) error {
	if _, ok := validProtocols[protocol]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidProtocol, protocol)
}

// ValidateDeviceType checks if a device type is valid.
// Uses O(1) map lookup for efficiency.
func ValidateDeviceType(deviceType DeviceType) error {
	if _, ok := validDeviceTypes[deviceType]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidDeviceType, deviceType)
}

// ValidateCapabilities checks if all capabilities are valid.
// Uses O(1) map lookup for each capability.
func ValidateCapabilities(caps []Capability) error {
	if len(caps) > maxCapabilities {
		return fmt.Errorf("%w: too many capabilities (max %d)", ErrInvalidCapability, maxCapabilities)
	}
	for _, c := range caps {
		if _, ok := validCapabilities[c]; !ok {
			return fmt.Errorf("%w: %q", ErrInvalidCapability, c)
		}
	}
	return nil
}

// IsValidConnectionState reports whether a connection state is recognised.
func IsValidConnectionState(cs ConnectionState) bool {
	_, ok := validConnectionStates[cs]
	return ok
}

// GenerateID creates a new UUID for a device.
func GenerateID() string {
	return uuid.New().String()
}
