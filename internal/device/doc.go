// Package device defines the core device model for Hearth: devices,
// their typed state snapshots, the closed command set, and the
// registry that tracks them.
//
// # Model
//
// A Device is a controllable or monitorable endpoint reachable through
// exactly one protocol (wifi, zigbee, matter, ...). Its observable
// state is a DeviceState snapshot: a map of property names to typed
// Values (string, number or boolean) plus an online flag. Commands are
// a closed tagged union (PowerCommand, BrightnessCommand, LockCommand,
// ...) so adapters and the automation engine can switch exhaustively.
//
// # Registry
//
// The Registry is the in-memory source of truth for known devices and
// their last-observed states. It is safe for concurrent use and hands
// out deep copies, so callers never share memory with the cache. When
// constructed with a Repository, mutations are written through to
// SQLite; with a nil Repository the registry is purely volatile.
//
// # Usage
//
//	registry := device.NewRegistry(repo)
//	if err := registry.Load(ctx); err != nil {
//	    return err
//	}
//
//	d, _ := registry.Upsert(ctx, &device.Device{
//	    Name:     "Living Room Light",
//	    Type:     device.DeviceTypeLight,
//	    Protocol: device.ProtocolZigbee,
//	    Capabilities: []device.Capability{device.CapPower, device.CapBrightness},
//	})
package device
