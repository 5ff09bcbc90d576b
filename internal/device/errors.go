package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID does not exist.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrDeviceExists is returned when creating a device with an ID that already exists.
	ErrDeviceExists = errors.New("device: already exists")

	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("device: invalid")

	// ErrInvalidProtocol is returned when a protocol value is not recognised.
	ErrInvalidProtocol = errors.New("device: invalid protocol")

	// ErrInvalidDeviceType is returned when a device type is not recognised.
	ErrInvalidDeviceType = errors.New("device: invalid type")

	// ErrInvalidCapability is returned when a capability is not recognised.
	ErrInvalidCapability = errors.New("device: invalid capability")

	// ErrInvalidConnectionState is returned when a connection state is not recognised.
	ErrInvalidConnectionState = errors.New("device: invalid connection state")

	// ErrInvalidState is returned when a state snapshot or property value is malformed.
	ErrInvalidState = errors.New("device: invalid state")

	// ErrInvalidName is returned when a device name is empty or too long.
	ErrInvalidName = errors.New("device: invalid name")

	// ErrInvalidCommand is returned when a command envelope cannot be decoded.
	ErrInvalidCommand = errors.New("device: invalid command")

	// ErrGroupNotFound is returned when a device group ID does not exist.
	ErrGroupNotFound = errors.New("device group: not found")

	// ErrInvalidGroup is returned when device group validation fails.
	ErrInvalidGroup = errors.New("device group: invalid")
)
