// Package adapter defines the contract between the orchestrator and
// protocol integrations. One adapter serves one protocol; the
// orchestrator owns the mapping from protocol to adapter and never
// talks to transports directly.
package adapter

import (
	"context"
	"errors"

	"github.com/hearthgrid/hearth-core/internal/device"
)

// Adapter errors. Implementations wrap these so the orchestrator can
// classify failures without knowing the transport.
var (
	// ErrDeviceUnreachable is returned when the device does not answer.
	ErrDeviceUnreachable = errors.New("adapter: device unreachable")

	// ErrNotConnected is returned for operations that need an
	// established session when there is none.
	ErrNotConnected = errors.New("adapter: not connected")

	// ErrUnsupported is returned when the adapter cannot express the
	// requested command for this device.
	ErrUnsupported = errors.New("adapter: unsupported operation")
)

// Adapter integrates one protocol's devices.
//
// All methods honour context cancellation and deadlines; the
// orchestrator applies per-protocol discovery timeouts and per-command
// deadlines through ctx. Implementations must be safe for concurrent
// use, since discovery and commands overlap.
type Adapter interface {
	// Protocol returns the single protocol this adapter serves.
	Protocol() device.Protocol

	// Discover scans for devices and returns everything found,
	// including devices the registry already knows.
	Discover(ctx context.Context) ([]device.Device, error)

	// Connect establishes a session with a device.
	Connect(ctx context.Context, d *device.Device) error

	// Disconnect tears down the session with a device. Disconnecting
	// a device without a session is not an error.
	Disconnect(ctx context.Context, d *device.Device) error

	// Execute dispatches a command to a connected device. The result
	// reports protocol-level success or failure; a non-nil error means
	// the adapter itself could not attempt the dispatch.
	Execute(ctx context.Context, d *device.Device, cmd device.Command) (device.CommandResult, error)

	// QueryState fetches the device's current property snapshot.
	QueryState(ctx context.Context, d *device.Device) (*device.DeviceState, error)
}
