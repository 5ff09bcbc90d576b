package scene

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
	"github.com/hearthgrid/hearth-core/internal/events"
)

// CommandExecutor dispatches device commands. Implemented by the
// orchestrator; narrowed here to avoid a package cycle.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, deviceID string, cmd device.Command) device.CommandResult
}

// Manager activates scenes by translating each device's desired
// property map into commands and dispatching them sequentially.
//
// Activation never rolls back: devices that accepted their commands
// keep the new state even when a later device fails. The scene's last
// execution time updates only after a fully successful run.
type Manager struct {
	store    *Store
	bus      *events.Bus
	executor CommandExecutor
	logger   Logger
}

// NewManager creates a scene manager.
func NewManager(store *Store, bus *events.Bus, executor CommandExecutor) *Manager {
	return &Manager{
		store:    store,
		bus:      bus,
		executor: executor,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// Activate runs a scene. Devices are processed in sorted ID order so
// activation is deterministic. Returns ErrSceneNotFound for unknown
// IDs; command failures are reported in the result, not as an error.
func (m *Manager) Activate(ctx context.Context, sceneID string) (*ActivationResult, error) {
	sc, ok := m.store.Get(sceneID)
	if !ok {
		return nil, ErrSceneNotFound
	}

	result := &ActivationResult{
		SceneID:     sc.ID,
		SceneName:   sc.Name,
		Success:     true,
		Devices:     make(map[string]device.CommandResult, len(sc.DeviceStates)),
		ActivatedAt: time.Now().UTC(),
	}

	deviceIDs := make([]string, 0, len(sc.DeviceStates))
	for id := range sc.DeviceStates {
		deviceIDs = append(deviceIDs, id)
	}
	sort.Strings(deviceIDs)

	for _, deviceID := range deviceIDs {
		commands := stateMapToCommands(sc.DeviceStates[deviceID])
		if len(commands) == 0 {
			m.logger.Warn("scene entry has no actionable properties",
				"scene_id", sc.ID,
				"device_id", deviceID,
			)
			continue
		}

		for _, cmd := range commands {
			res := m.executor.ExecuteCommand(ctx, deviceID, cmd)
			result.Devices[deviceID] = res
			if !res.Success {
				result.Success = false
				break // Remaining commands for this device are skipped, later devices still run
			}
		}
	}

	if result.Success {
		result.Message = fmt.Sprintf("activated %d devices", len(result.Devices))
		if err := m.store.markExecuted(ctx, sc.ID, result.ActivatedAt); err != nil {
			m.logger.Error("recording scene execution failed", "scene_id", sc.ID, "error", err)
		}
	} else {
		failed := 0
		for _, res := range result.Devices {
			if !res.Success {
				failed++
			}
		}
		result.Message = fmt.Sprintf("%d of %d devices failed", failed, len(result.Devices))
	}

	m.bus.Publish(events.NewSceneActivated(sc.ID, sc.Name, result.Success))
	m.logger.Info("scene activated",
		"scene_id", sc.ID,
		"scene_name", sc.Name,
		"success", result.Success,
	)

	return result, nil
}

// ActivateScene adapts Activate to the error-only contract the
// automation engine expects from its scene activator. A partially
// failed activation becomes an error carrying the result message.
func (m *Manager) ActivateScene(ctx context.Context, sceneID string) error {
	result, err := m.Activate(ctx, sceneID)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("scene %s: %s", sceneID, result.Message)
	}
	return nil
}

// stateMapToCommands translates a desired property map into commands.
// Properties with no command mapping, or values of the wrong kind, are
// skipped silently; a scene may describe more state than any one
// protocol can set.
func stateMapToCommands(props device.Properties) []device.Command {
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var commands []device.Command
	for _, key := range keys {
		value := props[key]
		switch key {
		case "power":
			if on, ok := value.AsBool(); ok {
				commands = append(commands, device.PowerCommand{On: on})
			}
		case "brightness":
			if level, ok := value.AsNumber(); ok {
				commands = append(commands, device.BrightnessCommand{Level: int(level)})
			}
		case "colorTemperature":
			if kelvin, ok := value.AsNumber(); ok {
				commands = append(commands, device.ColorTemperatureCommand{Kelvin: int(kelvin)})
			}
		case "targetTemperature":
			if target, ok := value.AsNumber(); ok {
				commands = append(commands, device.SetTemperatureCommand{Target: target})
			}
		case "locked":
			if locked, ok := value.AsBool(); ok {
				commands = append(commands, device.LockCommand{Lock: locked})
			}
		case "volume":
			if level, ok := value.AsNumber(); ok {
				commands = append(commands, device.VolumeCommand{Level: int(level)})
			}
		case "mediaAction":
			if value.Kind == device.KindString {
				commands = append(commands, device.MediaCommand{Action: device.MediaAction(value.Str)})
			}
		}
	}
	return commands
}
