package automation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
	"github.com/hearthgrid/hearth-core/internal/events"
)

// mockExecutor records dispatched commands and returns canned results.
type mockExecutor struct {
	mu       sync.Mutex
	commands []string // device IDs in dispatch order
	failFor  map[string]bool
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{failFor: make(map[string]bool)}
}

func (m *mockExecutor) ExecuteCommand(_ context.Context, deviceID string, cmd device.Command) device.CommandResult {
	m.mu.Lock()
	m.commands = append(m.commands, deviceID)
	fail := m.failFor[deviceID]
	m.mu.Unlock()

	if fail {
		return device.FailureResult(deviceID, cmd.Type(), device.CodeAdapterFailure, "adapter failed")
	}
	return device.SuccessResult(deviceID, cmd.Type())
}

func (m *mockExecutor) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.commands)
}

// mockSceneActivator records activations.
type mockSceneActivator struct {
	mu        sync.Mutex
	activated []string
	err       error
}

func (m *mockSceneActivator) ActivateScene(_ context.Context, sceneID string) error {
	m.mu.Lock()
	m.activated = append(m.activated, sceneID)
	m.mu.Unlock()
	return m.err
}

// sensorUpdate builds the device-update event the engine consumes.
func sensorUpdate(deviceID string, temp float64) events.DeviceUpdated {
	return events.NewDeviceUpdated(
		device.Device{ID: deviceID, Name: "Sensor", Type: device.DeviceTypeSensor, Protocol: device.ProtocolZigbee},
		&device.DeviceState{
			DeviceID:   deviceID,
			Online:     true,
			Properties: device.Properties{"temperature": device.NumberValue(temp)},
		},
	)
}

func setupEngine(t *testing.T) (*Engine, *Store, *mockExecutor, *events.Bus) {
	t.Helper()
	store := NewStore(nil)
	bus := events.NewBus()
	t.Cleanup(bus.Close)
	exec := newMockExecutor()
	engine := NewEngine(store, bus, exec, &mockSceneActivator{})
	return engine, store, exec, bus
}

func TestEdgeTriggerFiresOnceOnCrossing(t *testing.T) {
	engine, store, exec, _ := setupEngine(t)
	ctx := context.Background()

	rule := testRule("Cooling")
	if _, err := store.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Below threshold: not satisfied, no fire
	engine.evaluateDeviceTriggers(ctx, sensorUpdate("sensor-1", 22.5))
	if exec.count() != 0 {
		t.Fatalf("fired below threshold, commands = %d", exec.count())
	}

	// Crossing into satisfaction: exactly one fire
	engine.evaluateDeviceTriggers(ctx, sensorUpdate("sensor-1", 23.5))
	if exec.count() != 1 {
		t.Fatalf("crossing fired %d times, want 1", exec.count())
	}

	// Staying satisfied: no re-fire
	engine.evaluateDeviceTriggers(ctx, sensorUpdate("sensor-1", 23.5))
	engine.evaluateDeviceTriggers(ctx, sensorUpdate("sensor-1", 25))
	if exec.count() != 1 {
		t.Errorf("re-fired while still satisfied, commands = %d", exec.count())
	}

	// Falling below then crossing again: second fire
	engine.evaluateDeviceTriggers(ctx, sensorUpdate("sensor-1", 20))
	engine.evaluateDeviceTriggers(ctx, sensorUpdate("sensor-1", 24))
	if exec.count() != 2 {
		t.Errorf("second crossing fired %d total, want 2", exec.count())
	}
}

func TestDisabledRuleDoesNotFire(t *testing.T) {
	engine, store, exec, _ := setupEngine(t)
	ctx := context.Background()

	rule := testRule("Disabled")
	rule.Enabled = false
	if _, err := store.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	engine.evaluateDeviceTriggers(ctx, sensorUpdate("sensor-1", 30))
	if exec.count() != 0 {
		t.Errorf("disabled rule fired, commands = %d", exec.count())
	}
}

func TestTriggerIgnoresOtherDevices(t *testing.T) {
	engine, store, exec, _ := setupEngine(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, testRule("Cooling")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	engine.evaluateDeviceTriggers(ctx, sensorUpdate("sensor-other", 30))
	if exec.count() != 0 {
		t.Errorf("rule fired for unrelated device")
	}
}

func TestMissingPropertyNotSatisfied(t *testing.T) {
	engine, store, exec, _ := setupEngine(t)
	ctx := context.Background()

	if _, err := store.Create(ctx, testRule("Cooling")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	update := events.NewDeviceUpdated(
		device.Device{ID: "sensor-1"},
		&device.DeviceState{DeviceID: "sensor-1", Properties: device.Properties{"humidity": device.NumberValue(40)}},
	)
	engine.evaluateDeviceTriggers(ctx, update)
	if exec.count() != 0 {
		t.Errorf("rule fired without the triggering property")
	}
}

func TestExecuteRuleAggregatesOutcomes(t *testing.T) {
	engine, store, exec, _ := setupEngine(t)
	ctx := context.Background()

	rule := testRule("Multi")
	rule.Actions = ActionList{
		DeviceCommandAction{DeviceID: "light-ok", Command: device.PowerCommand{On: true}},
		DeviceCommandAction{DeviceID: "light-bad", Command: device.PowerCommand{On: true}},
		DeviceCommandAction{DeviceID: "light-ok2", Command: device.PowerCommand{On: true}},
	}
	created, err := store.Create(ctx, rule)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	exec.failFor["light-bad"] = true

	result, err := engine.ExecuteRule(ctx, created.ID)
	if err != nil {
		t.Fatalf("ExecuteRule() error = %v", err)
	}

	if result.Success {
		t.Error("Success = true with a failed action")
	}
	if len(result.Actions) != 3 {
		t.Fatalf("Actions = %d, want 3 (all attempted)", len(result.Actions))
	}
	// Failure does not stop later actions
	if exec.count() != 3 {
		t.Errorf("dispatched %d commands, want 3", exec.count())
	}
	if result.Actions[0].Success != true || result.Actions[1].Success != false || result.Actions[2].Success != true {
		t.Errorf("per-action outcomes = %+v", result.Actions)
	}
}

func TestExecuteRuleUnknownID(t *testing.T) {
	engine, _, _, _ := setupEngine(t)

	_, err := engine.ExecuteRule(context.Background(), "nope")
	if !errors.Is(err, ErrRuleNotFound) {
		t.Errorf("ExecuteRule() error = %v, want ErrRuleNotFound", err)
	}
}

func TestExecuteRulePublishesAutomationEvent(t *testing.T) {
	engine, store, exec, bus := setupEngine(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testRule("Notify"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	exec.failFor["fan-1"] = true // Event fires win or lose

	sub := bus.Subscribe(0)
	defer sub.Unsubscribe()

	if _, err := engine.ExecuteRule(ctx, created.ID); err != nil {
		t.Fatalf("ExecuteRule() error = %v", err)
	}

	select {
	case e := <-sub.C:
		at, ok := e.(events.AutomationTriggered)
		if !ok {
			t.Fatalf("event = %T, want AutomationTriggered", e)
		}
		if at.RuleID != created.ID || at.Success {
			t.Errorf("event = %+v", at)
		}
	case <-time.After(time.Second):
		t.Fatal("no automation event published")
	}
}

func TestSceneActionActivation(t *testing.T) {
	store := NewStore(nil)
	bus := events.NewBus()
	defer bus.Close()
	exec := newMockExecutor()
	scenes := &mockSceneActivator{}
	engine := NewEngine(store, bus, exec, scenes)
	ctx := context.Background()

	rule := testRule("Evening")
	rule.Actions = ActionList{SceneAction{SceneID: "scene-evening"}}
	created, err := store.Create(ctx, rule)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	result, err := engine.ExecuteRule(ctx, created.ID)
	if err != nil {
		t.Fatalf("ExecuteRule() error = %v", err)
	}
	if !result.Success {
		t.Errorf("result = %+v, want success", result)
	}
	if len(scenes.activated) != 1 || scenes.activated[0] != "scene-evening" {
		t.Errorf("activated = %v", scenes.activated)
	}
}

func TestTimeTriggerFiresOncePerMinute(t *testing.T) {
	engine, store, exec, _ := setupEngine(t)
	ctx := context.Background()

	rule := testRule("Wakeup")
	rule.Triggers = TriggerList{TimeTrigger{Hour: 7, Minute: 0}}
	if _, err := store.Create(ctx, rule); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	at := time.Date(2026, 8, 31, 7, 0, 10, 0, time.UTC)
	engine.evaluateTimeTriggers(ctx, at)
	if exec.count() != 1 {
		t.Fatalf("first tick fired %d times, want 1", exec.count())
	}

	// Second tick inside the same minute: no re-fire
	engine.evaluateTimeTriggers(ctx, at.Add(30*time.Second))
	if exec.count() != 1 {
		t.Errorf("same-minute tick re-fired, commands = %d", exec.count())
	}

	// Next day, same time: fires again
	engine.evaluateTimeTriggers(ctx, at.AddDate(0, 0, 1))
	if exec.count() != 2 {
		t.Errorf("next-day tick fired %d total, want 2", exec.count())
	}
}

func TestRunConsumesBusEvents(t *testing.T) {
	engine, store, exec, bus := setupEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := store.Create(ctx, testRule("Cooling")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	// Wait for the loop to subscribe
	deadline := time.After(2 * time.Second)
	for bus.SubscriberCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("engine never subscribed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	bus.Publish(sensorUpdate("sensor-1", 24))

	deadline = time.After(2 * time.Second)
	for exec.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("rule did not fire from bus event")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop on cancel")
	}
}

func TestRunIgnoresPreStartUpdates(t *testing.T) {
	engine, store, exec, bus := setupEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := store.Create(ctx, testRule("Cooling")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	// Satisfying updates published before the engine starts sit in the
	// replay backlog and must not fire the rule.
	bus.Publish(sensorUpdate("sensor-1", 30))
	bus.Publish(sensorUpdate("sensor-1", 31))

	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for bus.SubscriberCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("engine never subscribed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	time.Sleep(50 * time.Millisecond)
	if exec.count() != 0 {
		t.Fatalf("stale backlog fired %d commands, want 0", exec.count())
	}

	// A live update still fires
	bus.Publish(sensorUpdate("sensor-1", 32))
	deadline = time.After(2 * time.Second)
	for exec.count() == 0 {
		select {
		case <-deadline:
			t.Fatal("live update did not fire the rule")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not stop on cancel")
	}
}

func TestResetEdgeState(t *testing.T) {
	engine, store, exec, _ := setupEngine(t)
	ctx := context.Background()

	created, err := store.Create(ctx, testRule("Cooling"))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	engine.evaluateDeviceTriggers(ctx, sensorUpdate("sensor-1", 24))
	if exec.count() != 1 {
		t.Fatalf("initial crossing fired %d times, want 1", exec.count())
	}

	// After a reset the same satisfied update counts as a fresh edge
	engine.ResetEdgeState(created.ID)
	engine.evaluateDeviceTriggers(ctx, sensorUpdate("sensor-1", 24))
	if exec.count() != 2 {
		t.Errorf("post-reset update fired %d total, want 2", exec.count())
	}
}
