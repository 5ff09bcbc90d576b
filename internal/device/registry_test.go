package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	devices map[string]*Device
	states  map[string]Properties
	// For testing error paths
	saveErr   error
	deleteErr error
	stateErr  error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		devices: make(map[string]*Device),
		states:  make(map[string]Properties),
	}
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if d, ok := m.devices[id]; ok {
		return d.DeepCopy(), nil
	}
	return nil, ErrDeviceNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	devices := make([]Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, *d.DeepCopy())
	}
	return devices, nil
}

func (m *MockRepository) Save(_ context.Context, device *Device) error {
	if m.saveErr != nil {
		return m.saveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.devices[device.ID] = device.DeepCopy()
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.devices[id]; !exists {
		return ErrDeviceNotFound
	}
	delete(m.devices, id)
	return nil
}

func (m *MockRepository) UpdateConnectionState(_ context.Context, id string, cs ConnectionState, lastConnected *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.devices[id]
	if !ok {
		return ErrDeviceNotFound
	}
	d.ConnectionState = cs
	d.LastConnected = lastConnected
	return nil
}

func (m *MockRepository) SaveState(_ context.Context, id string, props Properties, _ time.Time) error {
	if m.stateErr != nil {
		return m.stateErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.states[id] = props.DeepCopy()
	return nil
}

// testDevice returns a valid device for tests.
func testDevice(id string) *Device {
	return &Device{
		ID:           id,
		Name:         "Living Room Light",
		Manufacturer: "Acme",
		Model:        "Bulb 900",
		Type:         DeviceTypeLight,
		Protocol:     ProtocolZigbee,
		Capabilities: []Capability{CapPower, CapBrightness},
		Room:         "living-room",
	}
}

func TestUpsertNewDevice(t *testing.T) {
	registry := NewRegistry(NewMockRepository())
	ctx := context.Background()

	d, err := registry.Upsert(ctx, testDevice("light-1"))
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if d.ConnectionState != ConnectionDiscovered {
		t.Errorf("ConnectionState = %v, want %v", d.ConnectionState, ConnectionDiscovered)
	}
	if d.CreatedAt.IsZero() || d.UpdatedAt.IsZero() {
		t.Error("timestamps not set on insert")
	}
	if registry.Count() != 1 {
		t.Errorf("Count() = %d, want 1", registry.Count())
	}
}

func TestUpsertGeneratesID(t *testing.T) {
	registry := NewRegistry(nil)

	d := testDevice("")
	got, err := registry.Upsert(context.Background(), d)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if got.ID == "" {
		t.Error("Upsert() did not generate an ID")
	}
}

func TestUpsertInvalidDevice(t *testing.T) {
	registry := NewRegistry(nil)

	d := testDevice("light-1")
	d.Name = ""
	if _, err := registry.Upsert(context.Background(), d); !errors.Is(err, ErrInvalidName) {
		t.Errorf("Upsert() error = %v, want ErrInvalidName", err)
	}
}

func TestUpsertMergePreservesConnection(t *testing.T) {
	registry := NewRegistry(nil)
	ctx := context.Background()

	if _, err := registry.Upsert(ctx, testDevice("light-1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := registry.SetConnectionState(ctx, "light-1", ConnectionConnected); err != nil {
		t.Fatalf("SetConnectionState() error = %v", err)
	}

	// Re-discovery delivers refreshed metadata
	rediscovered := testDevice("light-1")
	rediscovered.Name = "Living Room Light v2"
	rediscovered.FirmwareVersion = "2.0.1"

	merged, err := registry.Upsert(ctx, rediscovered)
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if merged.Name != "Living Room Light v2" {
		t.Errorf("Name = %q, want refreshed name", merged.Name)
	}
	if merged.ConnectionState != ConnectionConnected {
		t.Errorf("ConnectionState = %v, want %v (preserved)", merged.ConnectionState, ConnectionConnected)
	}
	if merged.LastConnected == nil {
		t.Error("LastConnected lost on merge")
	}
}

func TestGetReturnsDeepCopy(t *testing.T) {
	registry := NewRegistry(nil)
	ctx := context.Background()

	if _, err := registry.Upsert(ctx, testDevice("light-1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	first, ok := registry.Get("light-1")
	if !ok {
		t.Fatal("Get() device missing")
	}
	first.Name = "Mutated"
	first.Capabilities[0] = CapCustom

	second, _ := registry.Get("light-1")
	if second.Name != "Living Room Light" {
		t.Error("cache mutated through returned device")
	}
	if second.Capabilities[0] != CapPower {
		t.Error("cache capabilities mutated through returned device")
	}
}

func TestGetUnknownDevice(t *testing.T) {
	registry := NewRegistry(nil)

	if _, ok := registry.Get("nope"); ok {
		t.Error("Get() = true for unknown device")
	}
}

func TestLoadResetsConnectionState(t *testing.T) {
	repo := NewMockRepository()
	d := testDevice("light-1")
	d.ConnectionState = ConnectionConnected
	now := time.Now().UTC()
	d.LastConnected = &now
	repo.devices["light-1"] = d

	registry := NewRegistry(repo)
	if err := registry.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	got, ok := registry.Get("light-1")
	if !ok {
		t.Fatal("Get() device missing after Load")
	}
	if got.ConnectionState != ConnectionDisconnected {
		t.Errorf("ConnectionState = %v, want %v after restart", got.ConnectionState, ConnectionDisconnected)
	}
	if got.LastConnected == nil {
		t.Error("LastConnected should survive restart")
	}
}

func TestLoadWithoutRepository(t *testing.T) {
	registry := NewRegistry(nil)
	if err := registry.Load(context.Background()); err != nil {
		t.Errorf("Load() error = %v, want nil with no repository", err)
	}
}

func TestSetConnectionState(t *testing.T) {
	registry := NewRegistry(nil)
	ctx := context.Background()

	if _, err := registry.Upsert(ctx, testDevice("light-1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := registry.SetConnectionState(ctx, "light-1", ConnectionConnected); err != nil {
		t.Fatalf("SetConnectionState() error = %v", err)
	}

	got, _ := registry.Get("light-1")
	if got.ConnectionState != ConnectionConnected {
		t.Errorf("ConnectionState = %v, want %v", got.ConnectionState, ConnectionConnected)
	}
	if got.LastConnected == nil {
		t.Error("LastConnected not stamped on connect")
	}
}

func TestSetConnectionStateUnknownDevice(t *testing.T) {
	registry := NewRegistry(nil)

	err := registry.SetConnectionState(context.Background(), "nope", ConnectionConnected)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("SetConnectionState() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSetConnectionStateInvalid(t *testing.T) {
	registry := NewRegistry(nil)

	err := registry.SetConnectionState(context.Background(), "light-1", ConnectionState("warp"))
	if !errors.Is(err, ErrInvalidConnectionState) {
		t.Errorf("SetConnectionState() error = %v, want ErrInvalidConnectionState", err)
	}
}

func TestRecordStateAndCurrentState(t *testing.T) {
	registry := NewRegistry(nil)
	ctx := context.Background()

	state := &DeviceState{
		DeviceID: "light-1",
		Online:   true,
		Properties: Properties{
			"power":      BoolValue(true),
			"brightness": NumberValue(80),
		},
	}
	if err := registry.RecordState(ctx, state); err != nil {
		t.Fatalf("RecordState() error = %v", err)
	}

	got, ok := registry.CurrentState("light-1")
	if !ok {
		t.Fatal("CurrentState() missing after RecordState")
	}
	if got.Timestamp.IsZero() {
		t.Error("Timestamp not defaulted")
	}
	if v, okv := got.Properties["brightness"].AsNumber(); !okv || v != 80 {
		t.Errorf("brightness = %v, want 80", got.Properties["brightness"])
	}

	// Later snapshot replaces the earlier one
	if err := registry.RecordState(ctx, &DeviceState{
		DeviceID:   "light-1",
		Online:     true,
		Properties: Properties{"power": BoolValue(false)},
	}); err != nil {
		t.Fatalf("RecordState() error = %v", err)
	}

	got, _ = registry.CurrentState("light-1")
	if _, exists := got.Properties["brightness"]; exists {
		t.Error("old snapshot properties leaked into replacement")
	}
}

func TestRecordStateMissingDeviceID(t *testing.T) {
	registry := NewRegistry(nil)

	err := registry.RecordState(context.Background(), &DeviceState{})
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("RecordState() error = %v, want ErrInvalidState", err)
	}
}

func TestFindByType(t *testing.T) {
	registry := NewRegistry(nil)
	ctx := context.Background()

	light := testDevice("light-1")
	lock := testDevice("lock-1")
	lock.Name = "Front Door"
	lock.Type = DeviceTypeLock
	lock.Capabilities = []Capability{CapLock}

	for _, d := range []*Device{light, lock} {
		if _, err := registry.Upsert(ctx, d); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	lights := registry.FindByType(DeviceTypeLight)
	if len(lights) != 1 || lights[0].ID != "light-1" {
		t.Errorf("FindByType(light) = %v, want [light-1]", lights)
	}
}

func TestFindByName(t *testing.T) {
	registry := NewRegistry(nil)

	if _, err := registry.Upsert(context.Background(), testDevice("light-1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if got := registry.FindByName("LIVING ROOM"); len(got) != 1 {
		t.Errorf("FindByName() matched %d devices, want 1 (case-insensitive substring)", len(got))
	}
	if got := registry.FindByName("bedroom"); len(got) != 0 {
		t.Errorf("FindByName() matched %d devices, want 0", len(got))
	}
}

func TestFindByCapability(t *testing.T) {
	registry := NewRegistry(nil)

	if _, err := registry.Upsert(context.Background(), testDevice("light-1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if got := registry.FindByCapability(CapBrightness); len(got) != 1 {
		t.Errorf("FindByCapability(brightness) matched %d, want 1", len(got))
	}
	if got := registry.FindByCapability(CapLock); len(got) != 0 {
		t.Errorf("FindByCapability(lock) matched %d, want 0", len(got))
	}
}

func TestRemove(t *testing.T) {
	repo := NewMockRepository()
	registry := NewRegistry(repo)
	ctx := context.Background()

	if _, err := registry.Upsert(ctx, testDevice("light-1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := registry.Remove(ctx, "light-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if registry.Count() != 0 {
		t.Errorf("Count() = %d after Remove, want 0", registry.Count())
	}
	if _, err := repo.GetByID(ctx, "light-1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Error("device not deleted from repository")
	}

	if err := registry.Remove(ctx, "light-1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Remove() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestClear(t *testing.T) {
	registry := NewRegistry(nil)
	ctx := context.Background()

	if _, err := registry.Upsert(ctx, testDevice("light-1")); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := registry.RecordState(ctx, &DeviceState{DeviceID: "light-1"}); err != nil {
		t.Fatalf("RecordState() error = %v", err)
	}

	registry.Clear()

	if registry.Count() != 0 {
		t.Errorf("Count() = %d after Clear, want 0", registry.Count())
	}
	if _, ok := registry.CurrentState("light-1"); ok {
		t.Error("state survived Clear")
	}
}

func TestGetStats(t *testing.T) {
	registry := NewRegistry(nil)
	ctx := context.Background()

	light := testDevice("light-1")
	lock := testDevice("lock-1")
	lock.Type = DeviceTypeLock
	lock.Protocol = ProtocolZWave

	for _, d := range []*Device{light, lock} {
		if _, err := registry.Upsert(ctx, d); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	stats := registry.GetStats()
	if stats.TotalDevices != 2 {
		t.Errorf("TotalDevices = %d, want 2", stats.TotalDevices)
	}
	if stats.ByType[DeviceTypeLight] != 1 || stats.ByType[DeviceTypeLock] != 1 {
		t.Errorf("ByType = %v", stats.ByType)
	}
	if stats.ByProtocol[ProtocolZWave] != 1 {
		t.Errorf("ByProtocol = %v", stats.ByProtocol)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry := NewRegistry(nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("device-%d", n)
			d := testDevice(id)
			if _, err := registry.Upsert(ctx, d); err != nil {
				t.Errorf("Upsert(%s) error = %v", id, err)
				return
			}
			_ = registry.SetConnectionState(ctx, id, ConnectionConnected)
			_ = registry.RecordState(ctx, &DeviceState{
				DeviceID:   id,
				Online:     true,
				Properties: Properties{"power": BoolValue(true)},
			})
		}(i)

		wg.Add(1)
		go func() {
			defer wg.Done()
			registry.All()
			registry.Count()
			registry.GetStats()
		}()
	}
	wg.Wait()

	if registry.Count() != 10 {
		t.Errorf("Count() = %d, want 10", registry.Count())
	}
}
