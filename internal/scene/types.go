package scene

import (
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
)

// Scene is a named snapshot of desired device properties. Activating a
// scene translates each device's property map into commands and
// dispatches them.
type Scene struct {
	ID           string                       `json:"id"`
	Name         string                       `json:"name"`
	DeviceStates map[string]device.Properties `json:"deviceStates"`
	Icon         string                       `json:"icon,omitempty"`
	Favorite     bool                         `json:"favorite"`
	LastExecuted *time.Time                   `json:"lastExecuted,omitempty"`
	CreatedAt    time.Time                    `json:"createdAt"`
	UpdatedAt    time.Time                    `json:"updatedAt"`
}

// DeepCopy returns an independent copy of the scene.
func (s *Scene) DeepCopy() *Scene {
	if s == nil {
		return nil
	}

	cpy := *s

	if s.DeviceStates != nil {
		cpy.DeviceStates = make(map[string]device.Properties, len(s.DeviceStates))
		for id, props := range s.DeviceStates {
			cpy.DeviceStates[id] = props.DeepCopy()
		}
	}
	if s.LastExecuted != nil {
		t := *s.LastExecuted
		cpy.LastExecuted = &t
	}

	return &cpy
}

// ActivationResult reports the outcome of a scene activation. Success
// is true only when every device command succeeded; partial failures
// leave the devices that did succeed in their new state.
type ActivationResult struct {
	SceneID     string                          `json:"sceneId"`
	SceneName   string                          `json:"sceneName"`
	Success     bool                            `json:"success"`
	Message     string                          `json:"message"`
	Devices     map[string]device.CommandResult `json:"devices"`
	ActivatedAt time.Time                       `json:"activatedAt"`
}
