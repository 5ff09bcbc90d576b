package scene

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hearthgrid/hearth-core/internal/device"
)

const (
	maxNameLength = 100
	maxDevices    = 100
)

// ValidateScene checks a scene for structural validity.
func ValidateScene(s *Scene) error {
	if s == nil {
		return fmt.Errorf("%w: scene is nil", ErrInvalidScene)
	}
	if err := ValidateName(s.Name); err != nil {
		return err
	}
	if len(s.DeviceStates) == 0 {
		return fmt.Errorf("%w: scene has no device states", ErrInvalidScene)
	}
	if len(s.DeviceStates) > maxDevices {
		return fmt.Errorf("%w: scene exceeds max devices (%d)", ErrInvalidScene, maxDevices)
	}
	for id, props := range s.DeviceStates {
		if id == "" {
			return fmt.Errorf("%w: empty device id", ErrInvalidScene)
		}
		state := &device.DeviceState{DeviceID: id, Properties: props}
		if err := device.ValidateState(state); err != nil {
			return fmt.Errorf("%w: device %s: %v", ErrInvalidScene, id, err)
		}
	}
	return nil
}

// ValidateName checks a scene name.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// GenerateID returns a new unique scene ID.
func GenerateID() string {
	return uuid.New().String()
}
