package events

import (
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
)

// EventType identifies an event variant on the wire and in logs.
type EventType string

// Event types.
const (
	TypeDeviceDiscovered    EventType = "device_discovered"
	TypeDeviceConnected     EventType = "device_connected"
	TypeDeviceDisconnected  EventType = "device_disconnected"
	TypeDeviceStateChanged  EventType = "device_state_changed"
	TypeDeviceUpdated       EventType = "device_updated"
	TypeDeviceError         EventType = "device_error"
	TypeDiscoveryFailed     EventType = "discovery_failed"
	TypeSystemStateChanged  EventType = "system_state_changed"
	TypeSystemInitialized   EventType = "system_initialized"
	TypeSystemShutdown      EventType = "system_shutdown"
	TypePermissionDenied    EventType = "permission_denied"
	TypeAutomationTriggered EventType = "automation_triggered"
	TypeSceneActivated      EventType = "scene_activated"
)

// Event is the closed set of things that happen inside the hub.
// Every variant carries its occurrence time; consumers switch on the
// concrete type or on Type().
type Event interface {
	Type() EventType
	OccurredAt() time.Time
}

// meta carries the fields shared by all events.
type meta struct {
	Time time.Time `json:"time"`
}

func (m meta) OccurredAt() time.Time { return m.Time }

func now() meta { return meta{Time: time.Now().UTC()} }

// DeviceDiscovered fires once per device found during a discovery run,
// including already-known devices that were seen again.
type DeviceDiscovered struct {
	meta
	Device device.Device `json:"device"`
}

func (DeviceDiscovered) Type() EventType { return TypeDeviceDiscovered }

// NewDeviceDiscovered builds a DeviceDiscovered event.
func NewDeviceDiscovered(d device.Device) DeviceDiscovered {
	return DeviceDiscovered{meta: now(), Device: d}
}

// DeviceConnected fires when a device session is established.
type DeviceConnected struct {
	meta
	DeviceID string `json:"device_id"`
}

func (DeviceConnected) Type() EventType { return TypeDeviceConnected }

// NewDeviceConnected builds a DeviceConnected event.
func NewDeviceConnected(id string) DeviceConnected {
	return DeviceConnected{meta: now(), DeviceID: id}
}

// DeviceDisconnected fires when a device session ends, cleanly or not.
type DeviceDisconnected struct {
	meta
	DeviceID string `json:"device_id"`
	Reason   string `json:"reason,omitempty"`
}

func (DeviceDisconnected) Type() EventType { return TypeDeviceDisconnected }

// NewDeviceDisconnected builds a DeviceDisconnected event.
func NewDeviceDisconnected(id, reason string) DeviceDisconnected {
	return DeviceDisconnected{meta: now(), DeviceID: id, Reason: reason}
}

// DeviceStateChanged fires per changed property, carrying the previous
// value so rule triggers can detect edges.
type DeviceStateChanged struct {
	meta
	DeviceID string       `json:"device_id"`
	Property string       `json:"property"`
	Previous device.Value `json:"previous"`
	Current  device.Value `json:"current"`
	// HadPrevious is false for the first observation of a property.
	HadPrevious bool `json:"had_previous"`
}

func (DeviceStateChanged) Type() EventType { return TypeDeviceStateChanged }

// NewDeviceStateChanged builds a DeviceStateChanged event.
func NewDeviceStateChanged(deviceID, property string, previous, current device.Value, hadPrevious bool) DeviceStateChanged {
	return DeviceStateChanged{
		meta:        now(),
		DeviceID:    deviceID,
		Property:    property,
		Previous:    previous,
		Current:     current,
		HadPrevious: hadPrevious,
	}
}

// DeviceUpdated fires when a device's full snapshot (metadata or state)
// has been refreshed. Emitted after the per-property state changes.
type DeviceUpdated struct {
	meta
	Device device.Device       `json:"device"`
	State  *device.DeviceState `json:"state,omitempty"`
}

func (DeviceUpdated) Type() EventType { return TypeDeviceUpdated }

// NewDeviceUpdated builds a DeviceUpdated event.
func NewDeviceUpdated(d device.Device, s *device.DeviceState) DeviceUpdated {
	return DeviceUpdated{meta: now(), Device: d, State: s}
}

// DeviceError fires when an adapter operation against a device fails.
type DeviceError struct {
	meta
	DeviceID string `json:"device_id"`
	Message  string `json:"message"`
}

func (DeviceError) Type() EventType { return TypeDeviceError }

// NewDeviceError builds a DeviceError event.
func NewDeviceError(id, msg string) DeviceError {
	return DeviceError{meta: now(), DeviceID: id, Message: msg}
}

// DiscoveryFailed fires when one protocol's discovery run errors or
// exceeds its timeout. Sibling protocols are unaffected.
type DiscoveryFailed struct {
	meta
	Protocol string `json:"protocol"`
	Message  string `json:"message"`
}

func (DiscoveryFailed) Type() EventType { return TypeDiscoveryFailed }

// NewDiscoveryFailed builds a DiscoveryFailed event.
func NewDiscoveryFailed(protocol, msg string) DiscoveryFailed {
	return DiscoveryFailed{meta: now(), Protocol: protocol, Message: msg}
}

// SystemStateChanged fires on every orchestrator state transition,
// before any device events caused by the same operation.
type SystemStateChanged struct {
	meta
	Previous string `json:"previous"`
	Current  string `json:"current"`
}

func (SystemStateChanged) Type() EventType { return TypeSystemStateChanged }

// NewSystemStateChanged builds a SystemStateChanged event.
func NewSystemStateChanged(previous, current string) SystemStateChanged {
	return SystemStateChanged{meta: now(), Previous: previous, Current: current}
}

// SystemInitialized fires once, when startup completes.
type SystemInitialized struct {
	meta
	HubID string `json:"hub_id"`
}

func (SystemInitialized) Type() EventType { return TypeSystemInitialized }

// NewSystemInitialized builds a SystemInitialized event.
func NewSystemInitialized(hubID string) SystemInitialized {
	return SystemInitialized{meta: now(), HubID: hubID}
}

// SystemShutdown fires when shutdown begins.
type SystemShutdown struct {
	meta
	Reason string `json:"reason,omitempty"`
}

func (SystemShutdown) Type() EventType { return TypeSystemShutdown }

// NewSystemShutdown builds a SystemShutdown event.
func NewSystemShutdown(reason string) SystemShutdown {
	return SystemShutdown{meta: now(), Reason: reason}
}

// PermissionDenied fires when the permission gate rejects a command.
type PermissionDenied struct {
	meta
	DeviceID    string             `json:"device_id"`
	CommandType device.CommandType `json:"command_type"`
}

func (PermissionDenied) Type() EventType { return TypePermissionDenied }

// NewPermissionDenied builds a PermissionDenied event.
func NewPermissionDenied(deviceID string, ct device.CommandType) PermissionDenied {
	return PermissionDenied{meta: now(), DeviceID: deviceID, CommandType: ct}
}

// AutomationTriggered fires when a rule's actions have been executed.
type AutomationTriggered struct {
	meta
	RuleID   string `json:"rule_id"`
	RuleName string `json:"rule_name"`
	Success  bool   `json:"success"`
}

func (AutomationTriggered) Type() EventType { return TypeAutomationTriggered }

// NewAutomationTriggered builds an AutomationTriggered event.
func NewAutomationTriggered(ruleID, ruleName string, success bool) AutomationTriggered {
	return AutomationTriggered{meta: now(), RuleID: ruleID, RuleName: ruleName, Success: success}
}

// SceneActivated fires when a scene activation finishes, successful or
// not.
type SceneActivated struct {
	meta
	SceneID   string `json:"scene_id"`
	SceneName string `json:"scene_name"`
	Success   bool   `json:"success"`
}

func (SceneActivated) Type() EventType { return TypeSceneActivated }

// NewSceneActivated builds a SceneActivated event.
func NewSceneActivated(sceneID, sceneName string, success bool) SceneActivated {
	return SceneActivated{meta: now(), SceneID: sceneID, SceneName: sceneName, Success: success}
}
