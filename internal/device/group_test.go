package device

import (
	"context"
	"errors"
	"testing"
)

func groupFixture(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(nil)
	for _, id := range []string{"light-1", "light-2", "light-3"} {
		d := &Device{
			ID:           id,
			Name:         "Lamp " + id,
			Type:         DeviceTypeLight,
			Protocol:     ProtocolWiFi,
			Capabilities: []Capability{CapPower},
		}
		if _, err := r.Upsert(context.Background(), d); err != nil {
			t.Fatalf("Upsert(%s) error = %v", id, err)
		}
	}
	return r
}

func TestCreateGroup(t *testing.T) {
	r := groupFixture(t)

	g, err := r.CreateGroup(&DeviceGroup{Name: "Living Room", DeviceIDs: []string{"light-1", "light-2"}})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if g.ID == "" {
		t.Error("CreateGroup() left a blank id")
	}
	if g.CreatedAt.IsZero() || g.UpdatedAt.IsZero() {
		t.Error("CreateGroup() did not stamp timestamps")
	}

	got, ok := r.GetGroup(g.ID)
	if !ok {
		t.Fatal("GetGroup() = false after create")
	}
	if len(got.DeviceIDs) != 2 || got.DeviceIDs[0] != "light-1" || got.DeviceIDs[1] != "light-2" {
		t.Errorf("DeviceIDs = %v, want member order preserved", got.DeviceIDs)
	}
}

func TestCreateGroupValidation(t *testing.T) {
	r := groupFixture(t)

	tests := []struct {
		name  string
		group *DeviceGroup
		want  error
	}{
		{"empty name", &DeviceGroup{DeviceIDs: []string{"light-1"}}, ErrInvalidGroup},
		{"no members", &DeviceGroup{Name: "Empty"}, ErrInvalidGroup},
		{"unknown member", &DeviceGroup{Name: "Ghosts", DeviceIDs: []string{"light-1", "ghost"}}, ErrDeviceNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.CreateGroup(tt.group); !errors.Is(err, tt.want) {
				t.Errorf("CreateGroup() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCreateGroupDeduplicatesMembers(t *testing.T) {
	r := groupFixture(t)

	g, err := r.CreateGroup(&DeviceGroup{Name: "Dupes", DeviceIDs: []string{"light-1", "light-2", "light-1"}})
	if err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}
	if len(g.DeviceIDs) != 2 {
		t.Errorf("DeviceIDs = %v, want duplicates collapsed", g.DeviceIDs)
	}
}

func TestGroupsAndRemoveGroup(t *testing.T) {
	r := groupFixture(t)

	a, _ := r.CreateGroup(&DeviceGroup{Name: "A", DeviceIDs: []string{"light-1"}})
	if _, err := r.CreateGroup(&DeviceGroup{Name: "B", DeviceIDs: []string{"light-2"}}); err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	if got := r.Groups(); len(got) != 2 {
		t.Errorf("Groups() = %d, want 2", len(got))
	}

	if err := r.RemoveGroup(a.ID); err != nil {
		t.Fatalf("RemoveGroup() error = %v", err)
	}
	if _, ok := r.GetGroup(a.ID); ok {
		t.Error("GetGroup() = true after remove")
	}
	if err := r.RemoveGroup(a.ID); !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("second RemoveGroup() error = %v, want ErrGroupNotFound", err)
	}
}

func TestRemoveDevicePrunesGroupMembership(t *testing.T) {
	r := groupFixture(t)

	pair, _ := r.CreateGroup(&DeviceGroup{Name: "Pair", DeviceIDs: []string{"light-1", "light-2"}})
	solo, _ := r.CreateGroup(&DeviceGroup{Name: "Solo", DeviceIDs: []string{"light-1"}})

	if err := r.Remove(context.Background(), "light-1"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}

	got, ok := r.GetGroup(pair.ID)
	if !ok {
		t.Fatal("group with remaining members was deleted")
	}
	if len(got.DeviceIDs) != 1 || got.DeviceIDs[0] != "light-2" {
		t.Errorf("DeviceIDs = %v, want removed device pruned", got.DeviceIDs)
	}

	// A group emptied by the removal disappears
	if _, ok := r.GetGroup(solo.ID); ok {
		t.Error("empty group survived its last member's removal")
	}
}

func TestClearDropsGroups(t *testing.T) {
	r := groupFixture(t)
	if _, err := r.CreateGroup(&DeviceGroup{Name: "All", DeviceIDs: []string{"light-1"}}); err != nil {
		t.Fatalf("CreateGroup() error = %v", err)
	}

	r.Clear()
	if got := r.Groups(); len(got) != 0 {
		t.Errorf("Groups() = %d after Clear, want 0", len(got))
	}
}

func TestGroupDeepCopyIsolation(t *testing.T) {
	r := groupFixture(t)
	g, _ := r.CreateGroup(&DeviceGroup{Name: "Iso", DeviceIDs: []string{"light-1", "light-2"}})

	got, _ := r.GetGroup(g.ID)
	got.DeviceIDs[0] = "tampered"

	again, _ := r.GetGroup(g.ID)
	if again.DeviceIDs[0] != "light-1" {
		t.Error("member slice shared between cache and caller")
	}
}
