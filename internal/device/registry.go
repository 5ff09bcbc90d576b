package device

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
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

// Registry is the in-memory source of truth for known devices and their
// last-observed states.
//
// Lookups are served entirely from memory. When a Repository is
// provided, mutations are written through to it so devices survive a
// restart; with a nil Repository the registry is purely volatile.
//
// All public methods are thread-safe. Returned devices and states are
// deep copies, so callers can modify them without affecting the cache.
type Registry struct {
	repo   Repository // May be nil (no persistence)
	logger Logger

	mu      sync.RWMutex
	devices map[string]*Device
	states  map[string]*DeviceState
	groups  map[string]*DeviceGroup
}

// NewRegistry creates a device registry. A nil repository disables
// persistence; the registry remains fully functional in memory.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:    repo,
		logger:  noopLogger{},
		devices: make(map[string]*Device),
		states:  make(map[string]*DeviceState),
		groups:  make(map[string]*DeviceGroup),
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Load populates the cache from the repository. Devices come back in
// the disconnected state regardless of how the previous run ended,
// since no adapter session survives a restart.
//
// Load is a no-op when the registry has no repository.
func (r *Registry) Load(ctx context.Context) error {
	if r.repo == nil {
		return nil
	}

	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = make(map[string]*Device, len(devices))
	for i := range devices {
		d := devices[i].DeepCopy()
		if d.ConnectionState == ConnectionConnected || d.ConnectionState == ConnectionConnecting {
			d.ConnectionState = ConnectionDisconnected
		}
		r.devices[d.ID] = d
	}

	r.logger.Info("device registry loaded", "count", len(devices))
	return nil
}

// Upsert adds a device or merges it into an existing entry.
//
// On re-discovery of a known device the descriptive fields (name,
// manufacturer, model, firmware, capabilities, room) are refreshed
// while the live connection state and timestamps are preserved. The
// returned device is the merged copy.
func (r *Registry) Upsert(ctx context.Context, d *Device) (*Device, error) {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	if err := ValidateDevice(d); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	r.mu.Lock()
	merged := d.DeepCopy()
	if existing, ok := r.devices[d.ID]; ok {
		merged.ConnectionState = existing.ConnectionState
		merged.LastConnected = existing.LastConnected
		merged.CreatedAt = existing.CreatedAt
	} else {
		if merged.ConnectionState == "" {
			merged.ConnectionState = ConnectionDiscovered
		}
		merged.CreatedAt = now
	}
	merged.UpdatedAt = now
	r.devices[merged.ID] = merged
	result := merged.DeepCopy()
	r.mu.Unlock()

	if r.repo != nil {
		if err := r.repo.Save(ctx, result); err != nil {
			return nil, fmt.Errorf("persisting device %s: %w", result.ID, err)
		}
	}

	r.logger.Debug("device upserted", "id", result.ID, "name", result.Name)
	return result, nil
}

// Get retrieves a device by ID. The second return value reports
// whether the device exists.
func (r *Registry) Get(id string) (*Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return nil, false
	}
	return d.DeepCopy(), true
}

// All returns every known device.
func (r *Registry) All() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		devices = append(devices, *d.DeepCopy())
	}
	return devices
}

// FindByName returns devices whose name contains the query,
// case-insensitively.
func (r *Registry) FindByName(query string) []Device {
	q := strings.ToLower(query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	var devices []Device
	for _, d := range r.devices {
		if strings.Contains(strings.ToLower(d.Name), q) {
			devices = append(devices, *d.DeepCopy())
		}
	}
	return devices
}

// FindByType returns all devices of the given type.
func (r *Registry) FindByType(t DeviceType) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var devices []Device
	for _, d := range r.devices {
		if d.Type == t {
			devices = append(devices, *d.DeepCopy())
		}
	}
	return devices
}

// FindByProtocol returns all devices reachable through the given protocol.
func (r *Registry) FindByProtocol(p Protocol) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var devices []Device
	for _, d := range r.devices {
		if d.Protocol == p {
			devices = append(devices, *d.DeepCopy())
		}
	}
	return devices
}

// FindByCapability returns all devices that support the given capability.
func (r *Registry) FindByCapability(c Capability) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var devices []Device
	for _, d := range r.devices {
		if d.HasCapability(c) {
			devices = append(devices, *d.DeepCopy())
		}
	}
	return devices
}

// RecordState stores the latest state snapshot for a device,
// replacing any previous snapshot. Unknown device IDs are accepted;
// state can arrive from a bridge before discovery completes.
func (r *Registry) RecordState(ctx context.Context, state *DeviceState) error {
	if state == nil || state.DeviceID == "" {
		return fmt.Errorf("%w: missing device id", ErrInvalidState)
	}

	snapshot := state.DeepCopy()
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}

	r.mu.Lock()
	r.states[snapshot.DeviceID] = snapshot
	r.mu.Unlock()

	if r.repo != nil {
		if _, ok := r.Get(snapshot.DeviceID); ok {
			if err := r.repo.SaveState(ctx, snapshot.DeviceID, snapshot.Properties, snapshot.Timestamp); err != nil {
				return fmt.Errorf("persisting state for %s: %w", snapshot.DeviceID, err)
			}
		}
	}

	r.logger.Debug("device state recorded", "id", snapshot.DeviceID)
	return nil
}

// CurrentState returns the last-observed state snapshot for a device.
// The second return value reports whether any snapshot exists.
func (r *Registry) CurrentState(id string) (*DeviceState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.states[id]
	if !ok {
		return nil, false
	}
	return s.DeepCopy(), true
}

// SetConnectionState transitions a device's connection state.
// LastConnected is stamped when the device reaches the connected state.
// Returns ErrDeviceNotFound for unknown IDs.
func (r *Registry) SetConnectionState(ctx context.Context, id string, cs ConnectionState) error {
	if !IsValidConnectionState(cs) {
		return fmt.Errorf("%w: %s", ErrInvalidConnectionState, cs)
	}

	now := time.Now().UTC()

	r.mu.Lock()
	cached, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return ErrDeviceNotFound
	}

	// Atomic replacement so concurrent readers never see a half-updated device
	updated := cached.DeepCopy()
	updated.ConnectionState = cs
	updated.UpdatedAt = now
	if cs == ConnectionConnected {
		updated.LastConnected = &now
	}
	r.devices[id] = updated
	var lastConnected *time.Time
	if updated.LastConnected != nil {
		t := *updated.LastConnected
		lastConnected = &t
	}
	r.mu.Unlock()

	if r.repo != nil {
		if err := r.repo.UpdateConnectionState(ctx, id, cs, lastConnected); err != nil {
			return fmt.Errorf("persisting connection state for %s: %w", id, err)
		}
	}

	r.logger.Debug("device connection state changed", "id", id, "state", cs)
	return nil
}

// Remove deletes a device, its state snapshot, and its group
// memberships. Returns ErrDeviceNotFound for unknown IDs.
func (r *Registry) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	_, ok := r.devices[id]
	if !ok {
		r.mu.Unlock()
		return ErrDeviceNotFound
	}
	delete(r.devices, id)
	delete(r.states, id)
	r.pruneGroupMemberLocked(id)
	r.mu.Unlock()

	if r.repo != nil {
		if err := r.repo.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting device %s: %w", id, err)
		}
	}

	r.logger.Info("device removed", "id", id)
	return nil
}

// Clear empties the in-memory cache. Persisted devices are untouched;
// they are restored on the next Load. Used during shutdown.
func (r *Registry) Clear() {
	r.mu.Lock()
	count := len(r.devices)
	r.devices = make(map[string]*Device)
	r.states = make(map[string]*DeviceState)
	r.groups = make(map[string]*DeviceGroup)
	r.mu.Unlock()

	r.logger.Info("device registry cleared", "count", count)
}

// Count returns the number of known devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Stats returns registry statistics for monitoring.
type Stats struct {
	TotalDevices      int
	ByType            map[DeviceType]int
	ByProtocol        map[Protocol]int
	ByConnectionState map[ConnectionState]int
}

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalDevices:      len(r.devices),
		ByType:            make(map[DeviceType]int),
		ByProtocol:        make(map[Protocol]int),
		ByConnectionState: make(map[ConnectionState]int),
	}

	for _, d := range r.devices {
		stats.ByType[d.Type]++
		stats.ByProtocol[d.Protocol]++
		stats.ByConnectionState[d.ConnectionState]++
	}

	return stats
}
