package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu      sync.Mutex
	rules   map[string]*Rule
	saveErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{rules: make(map[string]*Rule)}
}

func (m *MockRepository) GetByID(_ context.Context, id string) (*Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.rules[id]; ok {
		return r.DeepCopy(), nil
	}
	return nil, ErrRuleNotFound
}

func (m *MockRepository) List(_ context.Context) ([]Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rules := make([]Rule, 0, len(m.rules))
	for _, r := range m.rules {
		rules = append(rules, *r.DeepCopy())
	}
	return rules, nil
}

func (m *MockRepository) Save(_ context.Context, rule *Rule) error {
	if m.saveErr != nil {
		return m.saveErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.rules[rule.ID] = rule.DeepCopy()
	return nil
}

func (m *MockRepository) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[id]; !ok {
		return ErrRuleNotFound
	}
	delete(m.rules, id)
	return nil
}

func testRule(name string) *Rule {
	return &Rule{
		Name:    name,
		Enabled: true,
		Triggers: TriggerList{
			DeviceStateTrigger{
				DeviceID: "sensor-1",
				Property: "temperature",
				Operator: OpGreater,
				Value:    device.NumberValue(23),
			},
		},
		Actions: ActionList{
			DeviceCommandAction{DeviceID: "fan-1", Command: device.PowerCommand{On: true}},
		},
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore(NewMockRepository())
	ctx := context.Background()

	created, err := store.Create(ctx, testRule("Cooling"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.ID == "" {
		t.Error("Create() did not generate an ID")
	}
	if created.CreatedAt.IsZero() {
		t.Error("Create() did not set timestamps")
	}

	got, ok := store.Get(created.ID)
	if !ok {
		t.Fatal("Get() missing after Create")
	}
	if got.Name != "Cooling" || len(got.Triggers) != 1 || len(got.Actions) != 1 {
		t.Errorf("Get() = %+v, want stored rule", got)
	}
}

func TestStoreCreateInvalid(t *testing.T) {
	store := NewStore(nil)

	r := testRule("Broken")
	r.Triggers = nil
	if _, err := store.Create(context.Background(), r); !errors.Is(err, ErrInvalidRule) {
		t.Errorf("Create() error = %v, want ErrInvalidRule", err)
	}
}

func TestStoreUpdate(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	created, err := store.Create(ctx, testRule("Cooling"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	created.Name = "Cooling v2"
	created.Enabled = false
	updated, err := store.Update(ctx, created)
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Cooling v2" || updated.Enabled {
		t.Errorf("Update() = %+v", updated)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Error("Update() changed CreatedAt")
	}

	missing := testRule("Ghost")
	missing.ID = "nope"
	if _, err := store.Update(ctx, missing); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Update() error = %v, want ErrRuleNotFound", err)
	}
}

func TestStoreDeleteRoundtrip(t *testing.T) {
	store := NewStore(NewMockRepository())
	ctx := context.Background()

	created, err := store.Create(ctx, testRule("Cooling"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok := store.Get(created.ID); ok {
		t.Error("Get() = true after Delete")
	}
	if err := store.Delete(ctx, created.ID); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Delete() error = %v, want ErrRuleNotFound", err)
	}
}

func TestStoreEnabled(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	on := testRule("On")
	off := testRule("Off")
	off.Enabled = false

	for _, r := range []*Rule{on, off} {
		if _, err := store.Create(ctx, r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	enabled := store.Enabled()
	if len(enabled) != 1 || enabled[0].Name != "On" {
		t.Errorf("Enabled() = %v, want just the enabled rule", enabled)
	}
}

func TestStoreLoad(t *testing.T) {
	repo := NewMockRepository()
	r := testRule("Persisted")
	r.ID = "rule-1"
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	repo.rules["rule-1"] = r

	store := NewStore(repo)
	if err := store.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if store.Count() != 1 {
		t.Errorf("Count() = %d after Load, want 1", store.Count())
	}
}

func TestStoreListSorted(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	for _, name := range []string{"Zebra", "Alpha"} {
		if _, err := store.Create(ctx, testRule(name)); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	list := store.List()
	if len(list) != 2 || list[0].Name != "Alpha" {
		t.Errorf("List() order = %v, want sorted by name", list)
	}
}
