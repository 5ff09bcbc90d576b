package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hearthgrid/hearth-core/internal/adapter"
	"github.com/hearthgrid/hearth-core/internal/automation"
	"github.com/hearthgrid/hearth-core/internal/device"
	"github.com/hearthgrid/hearth-core/internal/events"
	"github.com/hearthgrid/hearth-core/internal/scene"
)

// Logger defines the logging interface used by the Orchestrator.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// DefaultDiscoveryTimeout bounds each protocol's discovery call when
// the caller does not supply a timeout.
const DefaultDiscoveryTimeout = 10 * time.Second

// Config carries hub-level orchestrator settings.
type Config struct {
	// HubID identifies this hub in lifecycle events. Generated when
	// empty.
	HubID string

	// Disabled forces the hub into the disabled state at initialize.
	Disabled bool

	// DiscoveryTimeout is the per-protocol discovery bound. Zero means
	// DefaultDiscoveryTimeout.
	DiscoveryTimeout time.Duration
}

// Orchestrator is the hub's state machine and coordinator. It owns the
// device registry, drives protocol adapters, gates sensitive commands
// through the permission collaborator, and publishes every observable
// fact to the event bus.
//
// All failure modes of the public surface are returned as typed results
// or wrapped sentinel errors; only unexpected adapter faults transition
// the system state to error, and the orchestrator always recovers to
// idle after emitting the error event.
type Orchestrator struct {
	cfg      Config
	registry *device.Registry
	bus      *events.Bus
	gate     PermissionGate
	rules    *automation.Store
	scenes   *scene.Store
	logger   Logger

	// Attached after construction so the engine and manager can point
	// back at this orchestrator without a package cycle.
	engine   *automation.Engine
	sceneMgr *scene.Manager

	adapterMu sync.RWMutex
	adapters  map[device.Protocol]adapter.Adapter

	mu    sync.Mutex
	state SystemState
}

// New creates an orchestrator in the initializing state. A nil gate
// defaults to AllowAllGate.
func New(cfg Config, registry *device.Registry, bus *events.Bus, gate PermissionGate, rules *automation.Store, scenes *scene.Store) *Orchestrator {
	if cfg.HubID == "" {
		cfg.HubID = device.GenerateID()
	}
	if cfg.DiscoveryTimeout <= 0 {
		cfg.DiscoveryTimeout = DefaultDiscoveryTimeout
	}
	if gate == nil {
		gate = AllowAllGate{}
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: registry,
		bus:      bus,
		gate:     gate,
		rules:    rules,
		scenes:   scenes,
		logger:   noopLogger{},
		adapters: make(map[device.Protocol]adapter.Adapter),
		state:    StateInitializing,
	}
}

// SetLogger sets the logger for the orchestrator.
func (o *Orchestrator) SetLogger(logger Logger) {
	o.logger = logger
}

// AttachAutomation wires the rule engine and scene manager after
// construction. Both point back at this orchestrator as their command
// executor.
func (o *Orchestrator) AttachAutomation(engine *automation.Engine, mgr *scene.Manager) {
	o.engine = engine
	o.sceneMgr = mgr
}

// RegisterAdapter registers a protocol adapter. Later registrations
// for the same protocol replace earlier ones.
func (o *Orchestrator) RegisterAdapter(a adapter.Adapter) {
	o.adapterMu.Lock()
	o.adapters[a.Protocol()] = a
	o.adapterMu.Unlock()

	o.logger.Info("adapter registered", "protocol", string(a.Protocol()))
}

// State returns the current system state. Changes are observable as
// system events on the bus.
func (o *Orchestrator) State() SystemState {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// setState transitions the state machine and publishes the change.
func (o *Orchestrator) setState(next SystemState) {
	o.mu.Lock()
	prev := o.state
	o.state = next
	o.mu.Unlock()

	if prev != next {
		o.bus.Publish(events.NewSystemStateChanged(prev.String(), next.String()))
		o.logger.Debug("system state changed", "from", prev.String(), "to", next.String())
	}
}

// Initialize brings the hub to the idle state, or to disabled when
// configuration or the permission gate forbids startup. Callable again
// from disabled to re-initialize.
func (o *Orchestrator) Initialize(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateInitializing && o.state != StateDisabled {
		o.mu.Unlock()
		return fmt.Errorf("%w: already initialized", ErrNotIdle)
	}
	o.mu.Unlock()

	if o.cfg.Disabled {
		o.setState(StateDisabled)
		o.logger.Warn("hub disabled by configuration")
		return fmt.Errorf("%w: disabled by configuration", ErrSystemDisabled)
	}

	decision, err := o.gate.Evaluate(ctx, ActionInitialize, map[string]string{"hub_id": o.cfg.HubID})
	if err != nil || !decision.Allowed {
		o.setState(StateDisabled)
		reason := decision.Reason
		if err != nil {
			reason = err.Error()
		}
		o.logger.Warn("hub disabled, initialization not permitted", "reason", reason)
		return fmt.Errorf("%w: %s", ErrSystemDisabled, reason)
	}

	o.setState(StateIdle)
	o.bus.Publish(events.NewSystemInitialized(o.cfg.HubID))
	o.logger.Info("hub initialized", "hub_id", o.cfg.HubID)
	return nil
}

// Shutdown disconnects every device best-effort, clears the registry,
// and leaves the hub disabled. Individual disconnect failures are
// reported as device error events and do not abort the sequence.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	if o.state == StateDisabled || o.state == StateShuttingDown {
		o.mu.Unlock()
		return fmt.Errorf("%w: already shut down", ErrSystemDisabled)
	}
	o.mu.Unlock()

	o.setState(StateShuttingDown)
	o.bus.Publish(events.NewSystemShutdown("hub shutdown requested"))

	for _, d := range o.registry.All() {
		if d.ConnectionState != device.ConnectionConnected && d.ConnectionState != device.ConnectionConnecting {
			continue
		}
		a, ok := o.adapterFor(d.Protocol)
		if !ok {
			continue
		}
		dev := d
		if err := a.Disconnect(ctx, &dev); err != nil {
			o.bus.Publish(events.NewDeviceError(d.ID, fmt.Sprintf("disconnect during shutdown: %v", err)))
			o.logger.Warn("shutdown disconnect failed", "device_id", d.ID, "error", err)
			continue
		}
		o.bus.Publish(events.NewDeviceDisconnected(d.ID, "hub shutdown"))
	}

	o.registry.Clear()
	o.setState(StateDisabled)
	o.logger.Info("hub shut down", "hub_id", o.cfg.HubID)
	return nil
}

// discoverOutcome carries one protocol's discovery result.
type discoverOutcome struct {
	protocol device.Protocol
	devices  []device.Device
	err      error
}

// Discover runs discovery across the requested protocols, each bounded
// by the configured timeout. A protocol exceeding the bound is
// abandoned without affecting its siblings; protocols without a
// registered adapter are skipped. Discovered devices are upserted and
// announced before the call returns.
func (o *Orchestrator) Discover(ctx context.Context, protocols []device.Protocol, timeout time.Duration) ([]device.Device, error) {
	if timeout <= 0 {
		timeout = o.cfg.DiscoveryTimeout
	}

	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: cannot discover in state %s", ErrNotIdle, o.state)
	}
	o.state = StateDiscovering
	o.mu.Unlock()
	o.bus.Publish(events.NewSystemStateChanged(StateIdle.String(), StateDiscovering.String()))
	defer o.setState(StateIdle)

	results := make(chan discoverOutcome, len(protocols))
	launched := 0
	for _, p := range protocols {
		a, ok := o.adapterFor(p)
		if !ok {
			o.logger.Warn("no adapter for protocol, skipping discovery", "protocol", string(p))
			continue
		}
		launched++

		go func(p device.Protocol, a adapter.Adapter) {
			pctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			done := make(chan discoverOutcome, 1)
			go func() {
				devs, err := a.Discover(pctx)
				done <- discoverOutcome{protocol: p, devices: devs, err: err}
			}()

			select {
			case out := <-done:
				results <- out
			case <-pctx.Done():
				// Adapter abandoned; a late result is discarded
				results <- discoverOutcome{protocol: p, err: pctx.Err()}
			}
		}(p, a)
	}

	var discovered []device.Device
	for i := 0; i < launched; i++ {
		out := <-results
		if out.err != nil {
			if errors.Is(out.err, context.DeadlineExceeded) {
				o.logger.Warn("discovery timed out", "protocol", string(out.protocol))
			} else {
				o.logger.Error("discovery failed", "protocol", string(out.protocol), "error", out.err)
			}
			o.bus.Publish(events.NewDiscoveryFailed(string(out.protocol), out.err.Error()))
			continue
		}

		for j := range out.devices {
			d := out.devices[j]
			d.Protocol = out.protocol
			stored, err := o.registry.Upsert(ctx, &d)
			if err != nil {
				o.logger.Error("discovered device rejected", "name", d.Name, "error", err)
				continue
			}
			discovered = append(discovered, *stored)
			o.bus.Publish(events.NewDeviceDiscovered(*stored))
		}
	}

	o.logger.Info("discovery finished", "protocols", len(protocols), "devices", len(discovered))
	return discovered, nil
}

// GetDevices returns all known devices.
func (o *Orchestrator) GetDevices() []device.Device {
	return o.registry.All()
}

// GetDevice returns a device by ID.
func (o *Orchestrator) GetDevice(id string) (*device.Device, bool) {
	return o.registry.Get(id)
}

// FindDevices returns devices whose name contains the query,
// case-insensitively.
func (o *Orchestrator) FindDevices(query string) []device.Device {
	return o.registry.FindByName(query)
}

// GetDeviceState returns the last recorded state snapshot for a device.
func (o *Orchestrator) GetDeviceState(id string) (*device.DeviceState, bool) {
	return o.registry.CurrentState(id)
}

// RemoveDevice deletes a device from the registry.
func (o *Orchestrator) RemoveDevice(ctx context.Context, id string) error {
	return o.registry.Remove(ctx, id)
}

// GetDeviceStats returns registry counts by type, protocol, and
// connection state.
func (o *Orchestrator) GetDeviceStats() device.Stats {
	return o.registry.GetStats()
}

// CreateDeviceGroup stores a named group of known devices.
func (o *Orchestrator) CreateDeviceGroup(name string, deviceIDs []string) (*device.DeviceGroup, error) {
	return o.registry.CreateGroup(&device.DeviceGroup{Name: name, DeviceIDs: deviceIDs})
}

// GetDeviceGroup returns a group by ID.
func (o *Orchestrator) GetDeviceGroup(id string) (*device.DeviceGroup, bool) {
	return o.registry.GetGroup(id)
}

// GetDeviceGroups returns all groups.
func (o *Orchestrator) GetDeviceGroups() []device.DeviceGroup {
	return o.registry.Groups()
}

// RemoveDeviceGroup deletes a group, leaving its members untouched.
func (o *Orchestrator) RemoveDeviceGroup(id string) error {
	return o.registry.RemoveGroup(id)
}

// ControlDeviceGroup fans a command out to every group member in
// stored order. Each member's outcome is reported individually;
// one member failing does not stop the rest.
func (o *Orchestrator) ControlDeviceGroup(ctx context.Context, groupID string, cmd device.Command) (*device.GroupCommandResult, error) {
	g, ok := o.registry.GetGroup(groupID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", device.ErrGroupNotFound, groupID)
	}

	result := &device.GroupCommandResult{
		GroupID:     g.ID,
		CommandType: cmd.Type(),
		Success:     true,
		Devices:     make(map[string]device.CommandResult, len(g.DeviceIDs)),
		Timestamp:   time.Now().UTC(),
	}
	for _, deviceID := range g.DeviceIDs {
		res := o.ExecuteCommand(ctx, deviceID, cmd)
		result.Devices[deviceID] = res
		if !res.Success {
			result.Success = false
		}
	}

	o.logger.Info("group command executed",
		"group_id", g.ID,
		"command", string(cmd.Type()),
		"members", len(g.DeviceIDs),
		"success", result.Success,
	)
	return result, nil
}

// Connect establishes an adapter session with a device. Unknown
// devices and unsupported protocols fail locally without touching the
// state machine; adapter faults transition through the error state.
func (o *Orchestrator) Connect(ctx context.Context, deviceID string) error {
	d, ok := o.registry.Get(deviceID)
	if !ok {
		return fmt.Errorf("%w: %s", device.ErrDeviceNotFound, deviceID)
	}
	a, ok := o.adapterFor(d.Protocol)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedProtocol, d.Protocol)
	}

	restore, err := o.enterBusy()
	if err != nil {
		return err
	}

	if err := o.registry.SetConnectionState(ctx, deviceID, device.ConnectionConnecting); err != nil {
		o.exitBusy(restore)
		return err
	}

	if err := a.Connect(ctx, d); err != nil {
		_ = o.registry.SetConnectionState(ctx, deviceID, device.ConnectionError)
		o.faultRecover(deviceID, fmt.Sprintf("connect failed: %v", err))
		return fmt.Errorf("%w: %v", ErrAdapterFailure, err)
	}

	if err := o.registry.SetConnectionState(ctx, deviceID, device.ConnectionConnected); err != nil {
		o.exitBusy(restore)
		return err
	}
	o.bus.Publish(events.NewDeviceConnected(deviceID))
	o.exitBusy(restore)

	o.logger.Info("device connected", "device_id", deviceID)
	return nil
}

// Disconnect tears down a device's adapter session.
func (o *Orchestrator) Disconnect(ctx context.Context, deviceID string) error {
	d, ok := o.registry.Get(deviceID)
	if !ok {
		return fmt.Errorf("%w: %s", device.ErrDeviceNotFound, deviceID)
	}
	a, ok := o.adapterFor(d.Protocol)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedProtocol, d.Protocol)
	}

	restore, err := o.enterBusy()
	if err != nil {
		return err
	}

	if err := a.Disconnect(ctx, d); err != nil {
		o.faultRecover(deviceID, fmt.Sprintf("disconnect failed: %v", err))
		return fmt.Errorf("%w: %v", ErrAdapterFailure, err)
	}

	if err := o.registry.SetConnectionState(ctx, deviceID, device.ConnectionDisconnected); err != nil {
		o.exitBusy(restore)
		return err
	}
	o.bus.Publish(events.NewDeviceDisconnected(deviceID, "requested"))
	o.exitBusy(restore)

	o.logger.Info("device disconnected", "device_id", deviceID)
	return nil
}

// ExecuteCommand dispatches a command to a device. Every failure mode
// comes back as a typed result, never an error: unknown device,
// unsupported command, not connected, permission denial, adapter
// failure, timeout. On success the registry is updated before the
// state-change and device-update events are published, in that order.
func (o *Orchestrator) ExecuteCommand(ctx context.Context, deviceID string, cmd device.Command) device.CommandResult {
	d, ok := o.registry.Get(deviceID)
	if !ok {
		return device.FailureResult(deviceID, cmd.Type(), device.CodeNotFound, "device not found")
	}

	if needed, ok := device.RequiredCapability(cmd.Type()); ok && !d.HasCapability(needed) {
		return device.FailureResult(deviceID, cmd.Type(), device.CodeUnsupported,
			fmt.Sprintf("device lacks capability %s", needed))
	}
	if _, ok := o.adapterFor(d.Protocol); !ok {
		return device.FailureResult(deviceID, cmd.Type(), device.CodeUnsupported,
			fmt.Sprintf("no adapter for protocol %s", d.Protocol))
	}

	if d.ConnectionState != device.ConnectionConnected {
		return device.FailureResult(deviceID, cmd.Type(), device.CodeNotConnected,
			fmt.Sprintf("device is %s", d.ConnectionState))
	}

	if err := cmd.Validate(); err != nil {
		return device.FailureResult(deviceID, cmd.Type(), device.CodeUnsupported, err.Error())
	}

	if res, ok := o.checkPermission(ctx, d, cmd); !ok {
		return res
	}

	restore, err := o.enterBusy()
	if err != nil {
		return device.FailureResult(deviceID, cmd.Type(), device.CodeNotConnected, err.Error())
	}

	a, _ := o.adapterFor(d.Protocol)
	result, execErr := a.Execute(ctx, d, cmd)
	if execErr != nil {
		o.faultRecover(deviceID, fmt.Sprintf("command %s failed: %v", cmd.Type(), execErr))
		code := device.CodeAdapterFailure
		if errors.Is(execErr, context.DeadlineExceeded) {
			code = device.CodeTimeout
		}
		return device.FailureResult(deviceID, cmd.Type(), code, execErr.Error())
	}
	if !result.Success {
		o.bus.Publish(events.NewDeviceError(deviceID, result.Message))
		o.exitBusy(restore)
		return result
	}

	o.applyCommandState(ctx, d, cmd)
	o.exitBusy(restore)

	o.logger.Info("command executed", "device_id", deviceID, "command", string(cmd.Type()))
	return result
}

// checkPermission runs the gate, including the extra confirmation step
// for unlocking a lock. The failed result is returned with ok=false.
func (o *Orchestrator) checkPermission(ctx context.Context, d *device.Device, cmd device.Command) (device.CommandResult, bool) {
	attrs := map[string]string{
		"device_id":    d.ID,
		"device_type":  string(d.Type),
		"command_type": string(cmd.Type()),
	}

	decision, err := o.gate.Evaluate(ctx, ActionDeviceCommand, attrs)
	if err != nil || !decision.Allowed {
		reason := decision.Reason
		if err != nil {
			reason = err.Error()
		}
		o.bus.Publish(events.NewPermissionDenied(d.ID, cmd.Type()))
		o.logger.Warn("command denied", "device_id", d.ID, "reason", reason)
		return device.FailureResult(d.ID, cmd.Type(), device.CodePermissionDenied, reason), false
	}

	// Unlocking always requires an explicit confirmation step
	if lock, isLock := cmd.(device.LockCommand); isLock && !lock.Lock && d.Type == device.DeviceTypeLock {
		prompt := fmt.Sprintf("Unlock %s?", d.Name)
		confirmed, err := o.gate.RequestConfirmation(ctx, "unlock:"+d.ID, prompt)
		if err != nil || !confirmed {
			o.bus.Publish(events.NewPermissionDenied(d.ID, cmd.Type()))
			o.logger.Warn("unlock not confirmed", "device_id", d.ID)
			return device.FailureResult(d.ID, cmd.Type(), device.CodePermissionDenied, "unlock not confirmed"), false
		}
	}

	return device.CommandResult{}, true
}

// applyCommandState records the command's effect and publishes the
// state-change events followed by the device-update event consumed by
// the automation engine. Registry first, then events.
func (o *Orchestrator) applyCommandState(ctx context.Context, d *device.Device, cmd device.Command) {
	var previous device.Properties
	if prev, ok := o.registry.CurrentState(d.ID); ok {
		previous = prev.Properties
	}

	next := previous.DeepCopy()
	if next == nil {
		next = make(device.Properties)
	}
	cmd.Apply(next)

	newState := &device.DeviceState{
		DeviceID:   d.ID,
		Timestamp:  time.Now().UTC(),
		Properties: next,
		Online:     true,
	}
	if err := o.registry.RecordState(ctx, newState); err != nil {
		o.logger.Error("recording state failed", "device_id", d.ID, "error", err)
		return
	}

	for key, value := range next {
		prevValue, had := previous[key]
		if had && prevValue.Equal(value) {
			continue
		}
		o.bus.Publish(events.NewDeviceStateChanged(d.ID, key, prevValue, value, had))
	}
	o.bus.Publish(events.NewDeviceUpdated(*d, newState))
}

// ControlDevice sets a single property to a target value by mapping it
// onto the matching command. Unknown properties are an unsupported
// result, not an error.
func (o *Orchestrator) ControlDevice(ctx context.Context, deviceID, property string, value device.Value) device.CommandResult {
	cmd, ok := commandForProperty(property, value)
	if !ok {
		return device.FailureResult(deviceID, device.CommandCustom, device.CodeUnsupported,
			fmt.Sprintf("no command for property %q", property))
	}
	return o.ExecuteCommand(ctx, deviceID, cmd)
}

// commandForProperty maps a writable property to its command variant.
func commandForProperty(property string, value device.Value) (device.Command, bool) {
	switch property {
	case "power":
		if on, ok := value.AsBool(); ok {
			return device.PowerCommand{On: on}, true
		}
	case "brightness":
		if level, ok := value.AsNumber(); ok {
			return device.BrightnessCommand{Level: int(level)}, true
		}
	case "colorTemperature":
		if kelvin, ok := value.AsNumber(); ok {
			return device.ColorTemperatureCommand{Kelvin: int(kelvin)}, true
		}
	case "targetTemperature":
		if target, ok := value.AsNumber(); ok {
			return device.SetTemperatureCommand{Target: target}, true
		}
	case "locked":
		if locked, ok := value.AsBool(); ok {
			return device.LockCommand{Lock: locked}, true
		}
	case "volume":
		if level, ok := value.AsNumber(); ok {
			return device.VolumeCommand{Level: int(level)}, true
		}
	case "mediaAction":
		if value.Kind == device.KindString {
			return device.MediaCommand{Action: device.MediaAction(value.Str)}, true
		}
	}
	return nil, false
}

// QueryState reads a device's live state through its adapter and
// refreshes the registry snapshot.
func (o *Orchestrator) QueryState(ctx context.Context, deviceID string) (*device.DeviceState, error) {
	d, ok := o.registry.Get(deviceID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", device.ErrDeviceNotFound, deviceID)
	}
	a, ok := o.adapterFor(d.Protocol)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProtocol, d.Protocol)
	}

	state, err := a.QueryState(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAdapterFailure, err)
	}
	if state == nil {
		return nil, fmt.Errorf("%w: adapter returned no state", ErrAdapterFailure)
	}

	state.DeviceID = d.ID
	if err := o.registry.RecordState(ctx, state); err != nil {
		return nil, err
	}

	refreshed, _ := o.registry.CurrentState(d.ID)
	return refreshed, nil
}

// SubscribeEvents returns a live event subscription preloaded with the
// replay backlog.
func (o *Orchestrator) SubscribeEvents(buffer int) *events.Subscription {
	return o.bus.Subscribe(buffer)
}

// CreateRule stores a new automation rule.
func (o *Orchestrator) CreateRule(ctx context.Context, r *automation.Rule) (*automation.Rule, error) {
	return o.rules.Create(ctx, r)
}

// UpdateRule replaces a rule and clears its trigger edge history.
func (o *Orchestrator) UpdateRule(ctx context.Context, r *automation.Rule) (*automation.Rule, error) {
	updated, err := o.rules.Update(ctx, r)
	if err != nil {
		return nil, err
	}
	if o.engine != nil {
		o.engine.ResetEdgeState(updated.ID)
	}
	return updated, nil
}

// DeleteRule removes a rule and clears its trigger edge history.
func (o *Orchestrator) DeleteRule(ctx context.Context, id string) error {
	if err := o.rules.Delete(ctx, id); err != nil {
		return err
	}
	if o.engine != nil {
		o.engine.ResetEdgeState(id)
	}
	return nil
}

// GetRule returns a rule by ID.
func (o *Orchestrator) GetRule(id string) (*automation.Rule, bool) {
	return o.rules.Get(id)
}

// GetRules returns all rules.
func (o *Orchestrator) GetRules() []automation.Rule {
	return o.rules.List()
}

// TriggerRule executes a rule's actions immediately, bypassing trigger
// evaluation.
func (o *Orchestrator) TriggerRule(ctx context.Context, id string) (*automation.RuleExecutionResult, error) {
	if o.engine == nil {
		return nil, automation.ErrEngineNotRunning
	}
	return o.engine.ExecuteRule(ctx, id)
}

// CreateScene stores a new scene.
func (o *Orchestrator) CreateScene(ctx context.Context, sc *scene.Scene) (*scene.Scene, error) {
	return o.scenes.Create(ctx, sc)
}

// UpdateScene replaces a scene.
func (o *Orchestrator) UpdateScene(ctx context.Context, sc *scene.Scene) (*scene.Scene, error) {
	return o.scenes.Update(ctx, sc)
}

// DeleteScene removes a scene.
func (o *Orchestrator) DeleteScene(ctx context.Context, id string) error {
	return o.scenes.Delete(ctx, id)
}

// GetScene returns a scene by ID.
func (o *Orchestrator) GetScene(id string) (*scene.Scene, bool) {
	return o.scenes.Get(id)
}

// GetScenes returns all scenes.
func (o *Orchestrator) GetScenes() []scene.Scene {
	return o.scenes.List()
}

// ActivateScene plays a scene through the scene manager.
func (o *Orchestrator) ActivateScene(ctx context.Context, id string) (*scene.ActivationResult, error) {
	if o.sceneMgr == nil {
		return nil, fmt.Errorf("%w: scene manager not attached", ErrNotInitialized)
	}
	return o.sceneMgr.Activate(ctx, id)
}

// adapterFor looks up the adapter registered for a protocol.
func (o *Orchestrator) adapterFor(p device.Protocol) (adapter.Adapter, bool) {
	o.adapterMu.RLock()
	defer o.adapterMu.RUnlock()
	a, ok := o.adapters[p]
	return a, ok
}

// enterBusy transitions idle to busy. Nested adapter-touching calls
// during an automation cascade keep the current state; restore reports
// whether exitBusy should flip back to idle.
func (o *Orchestrator) enterBusy() (restore bool, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.state {
	case StateDisabled:
		return false, ErrSystemDisabled
	case StateShuttingDown:
		return false, ErrShuttingDown
	case StateInitializing:
		return false, ErrNotInitialized
	case StateIdle:
		o.state = StateBusy
		o.publishStateChangeLocked(StateIdle, StateBusy)
		return true, nil
	default:
		return false, nil
	}
}

// exitBusy returns busy to idle when this call owned the transition.
func (o *Orchestrator) exitBusy(restore bool) {
	if !restore {
		return
	}
	o.mu.Lock()
	if o.state == StateBusy {
		o.state = StateIdle
		o.publishStateChangeLocked(StateBusy, StateIdle)
	}
	o.mu.Unlock()
}

// faultRecover handles an adapter fault: transient error state, error
// event, then recovery to idle. The orchestrator never stays wedged.
func (o *Orchestrator) faultRecover(deviceID, message string) {
	o.mu.Lock()
	prev := o.state
	o.state = StateError
	o.publishStateChangeLocked(prev, StateError)
	o.mu.Unlock()

	o.bus.Publish(events.NewDeviceError(deviceID, message))
	o.logger.Error("adapter fault", "device_id", deviceID, "message", message)

	o.mu.Lock()
	if o.state == StateError {
		o.state = StateIdle
		o.publishStateChangeLocked(StateError, StateIdle)
	}
	o.mu.Unlock()
}

// publishStateChangeLocked publishes a state change while o.mu is
// held. Publish never blocks, so this cannot deadlock the bus.
func (o *Orchestrator) publishStateChangeLocked(from, to SystemState) {
	if from == to {
		return
	}
	o.bus.Publish(events.NewSystemStateChanged(from.String(), to.String()))
}
