package automation

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the rules table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Create rules table matching the bootstrap schema
	schema := `
		CREATE TABLE rules (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			enabled    INTEGER NOT NULL DEFAULT 1,
			triggers   TEXT NOT NULL DEFAULT '[]',
			actions    TEXT NOT NULL DEFAULT '[]',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func repoTestRule(id, name string) *Rule {
	now := time.Now().UTC().Truncate(time.Millisecond)
	return &Rule{
		ID:      id,
		Name:    name,
		Enabled: true,
		Triggers: TriggerList{
			DeviceStateTrigger{
				DeviceID: "sensor-1",
				Property: "temperature",
				Operator: OpGreater,
				Value:    device.NumberValue(23),
			},
			TimeTrigger{Hour: 7, Minute: 30, Days: []time.Weekday{time.Monday}},
		},
		Actions: ActionList{
			DeviceCommandAction{DeviceID: "fan-1", Command: device.PowerCommand{On: true}},
			SceneAction{SceneID: "scene-cool"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRepositorySaveAndGetByID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	rule := repoTestRule("rule-1", "Cooling")
	if err := repo.Save(ctx, rule); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.GetByID(ctx, "rule-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Cooling" || !got.Enabled {
		t.Errorf("GetByID() = %+v", got)
	}
	if !got.CreatedAt.Equal(rule.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, rule.CreatedAt)
	}

	if len(got.Triggers) != 2 {
		t.Fatalf("Triggers = %d, want 2", len(got.Triggers))
	}
	dst, ok := got.Triggers[0].(DeviceStateTrigger)
	if !ok || dst.Property != "temperature" || !dst.Value.Equal(device.NumberValue(23)) {
		t.Errorf("trigger 0 = %+v", got.Triggers[0])
	}
	tt, ok := got.Triggers[1].(TimeTrigger)
	if !ok || tt.Hour != 7 || len(tt.Days) != 1 {
		t.Errorf("trigger 1 = %+v", got.Triggers[1])
	}

	if len(got.Actions) != 2 {
		t.Fatalf("Actions = %d, want 2", len(got.Actions))
	}
	dca, ok := got.Actions[0].(DeviceCommandAction)
	if !ok || dca.DeviceID != "fan-1" {
		t.Errorf("action 0 = %+v", got.Actions[0])
	}
	if _, ok := dca.Command.(device.PowerCommand); !ok {
		t.Errorf("nested command = %T, want PowerCommand", dca.Command)
	}
}

func TestRepositoryGetByIDNotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("GetByID() error = %v, want ErrRuleNotFound", err)
	}
}

func TestRepositorySaveUpsert(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	rule := repoTestRule("rule-1", "Cooling")
	if err := repo.Save(ctx, rule); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	rule.Name = "Cooling v2"
	rule.Enabled = false
	rule.UpdatedAt = rule.UpdatedAt.Add(time.Minute)
	if err := repo.Save(ctx, rule); err != nil {
		t.Fatalf("Save() upsert error = %v", err)
	}

	got, err := repo.GetByID(ctx, "rule-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Name != "Cooling v2" || got.Enabled {
		t.Errorf("upsert result = %+v", got)
	}
	if !got.CreatedAt.Equal(rule.CreatedAt) {
		t.Error("upsert changed created_at")
	}
}

func TestRepositoryList(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	for _, r := range []*Rule{
		repoTestRule("rule-z", "Zebra"),
		repoTestRule("rule-a", "Alpha"),
	} {
		if err := repo.Save(ctx, r); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}

	rules, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("List() = %d rules, want 2", len(rules))
	}
	if rules[0].Name != "Alpha" || rules[1].Name != "Zebra" {
		t.Errorf("List() order = %q, %q, want name order", rules[0].Name, rules[1].Name)
	}
}

func TestRepositoryDelete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Save(ctx, repoTestRule("rule-1", "Cooling")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	if err := repo.Delete(ctx, "rule-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, "rule-1"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrRuleNotFound", err)
	}
	if err := repo.Delete(ctx, "rule-1"); !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("Delete() missing error = %v, want ErrRuleNotFound", err)
	}
}
