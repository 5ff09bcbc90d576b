package automation

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
	"github.com/hearthgrid/hearth-core/internal/events"
)

// CommandExecutor dispatches device commands. Implemented by the
// orchestrator; narrowed here to avoid a package cycle.
type CommandExecutor interface {
	ExecuteCommand(ctx context.Context, deviceID string, cmd device.Command) device.CommandResult
}

// SceneActivator activates scenes by ID. Implemented by the
// orchestrator.
type SceneActivator interface {
	ActivateScene(ctx context.Context, sceneID string) error
}

// DefaultTick is the wall-clock evaluation interval for time triggers.
const DefaultTick = 60 * time.Second

// Engine evaluates rule triggers and executes rule actions.
//
// Device-state triggers are evaluated against the device-update stream
// from the event bus; time triggers against a wall-clock ticker.
// Device-state evaluation is edge-triggered: a rule fires when a
// trigger's condition transitions from unsatisfied to satisfied, and
// not again until the condition has been unsatisfied in between. Time
// triggers fire at most once per matching minute.
type Engine struct {
	store    *Store
	bus      *events.Bus
	executor CommandExecutor
	scenes   SceneActivator
	logger   Logger
	tick     time.Duration

	// nowFn is replaceable in tests
	nowFn func() time.Time

	mu        sync.Mutex
	running   bool
	satisfied map[string]bool   // Edge state per rule trigger
	lastFired map[string]string // Last fired minute per time trigger
}

// NewEngine creates a rule engine. The scene activator may be nil when
// scene actions are not wired; such actions then fail locally.
func NewEngine(store *Store, bus *events.Bus, executor CommandExecutor, scenes SceneActivator) *Engine {
	return &Engine{
		store:     store,
		bus:       bus,
		executor:  executor,
		scenes:    scenes,
		logger:    noopLogger{},
		tick:      DefaultTick,
		nowFn:     time.Now,
		satisfied: make(map[string]bool),
		lastFired: make(map[string]string),
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetTick overrides the time-trigger evaluation interval.
func (e *Engine) SetTick(d time.Duration) {
	if d > 0 {
		e.tick = d
	}
}

// Run consumes the event stream and the wall clock until ctx is
// cancelled. Blocks; run it in its own goroutine.
func (e *Engine) Run(ctx context.Context) {
	e.mu.Lock()
	e.running = true
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	// Live subscription only: replayed pre-start updates must not
	// fire rules off stale history.
	sub := e.bus.SubscribeLive(0)
	defer sub.Unsubscribe()

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	e.logger.Info("automation engine started", "tick", e.tick.String())

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("automation engine stopped")
			return
		case ev, ok := <-sub.C:
			if !ok {
				e.logger.Info("automation engine stopped, event bus closed")
				return
			}
			if update, isUpdate := ev.(events.DeviceUpdated); isUpdate {
				e.evaluateDeviceTriggers(ctx, update)
			}
		case <-ticker.C:
			e.evaluateTimeTriggers(ctx, e.nowFn())
		}
	}
}

// Running reports whether the evaluation loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// evaluateDeviceTriggers checks all device-state triggers against a
// device update and fires rules whose condition just became satisfied.
func (e *Engine) evaluateDeviceTriggers(ctx context.Context, update events.DeviceUpdated) {
	if update.State == nil {
		return
	}

	for _, rule := range e.store.Enabled() {
		for i, trig := range rule.Triggers {
			dst, ok := trig.(DeviceStateTrigger)
			if !ok || dst.DeviceID != update.Device.ID {
				continue
			}

			current, has := update.State.Properties[dst.Property]
			nowSatisfied := has && dst.Operator.Compare(current, dst.Value)

			key := edgeKey(rule.ID, i)
			e.mu.Lock()
			wasSatisfied := e.satisfied[key]
			e.satisfied[key] = nowSatisfied
			e.mu.Unlock()

			if nowSatisfied && !wasSatisfied {
				e.logger.Debug("device trigger fired",
					"rule_id", rule.ID,
					"device_id", dst.DeviceID,
					"property", dst.Property,
				)
				if _, err := e.ExecuteRule(ctx, rule.ID); err != nil {
					e.logger.Error("rule execution failed", "rule_id", rule.ID, "error", err)
				}
			}
		}
	}
}

// evaluateTimeTriggers fires time triggers matching the given instant,
// at most once per minute per trigger.
func (e *Engine) evaluateTimeTriggers(ctx context.Context, now time.Time) {
	minute := now.Format("2006-01-02T15:04")

	for _, rule := range e.store.Enabled() {
		for i, trig := range rule.Triggers {
			tt, ok := trig.(TimeTrigger)
			if !ok || !tt.Matches(now) {
				continue
			}

			key := edgeKey(rule.ID, i)
			e.mu.Lock()
			already := e.lastFired[key] == minute
			if !already {
				e.lastFired[key] = minute
			}
			e.mu.Unlock()

			if already {
				continue
			}

			e.logger.Debug("time trigger fired", "rule_id", rule.ID, "at", minute)
			if _, err := e.ExecuteRule(ctx, rule.ID); err != nil {
				e.logger.Error("rule execution failed", "rule_id", rule.ID, "error", err)
			}
		}
	}
}

// ExecuteRule runs a rule's actions immediately, bypassing trigger
// evaluation. All actions execute even after earlier failures; the
// result aggregates per-action outcomes. An automation event is
// published win or lose. Returns ErrRuleNotFound for unknown IDs.
func (e *Engine) ExecuteRule(ctx context.Context, ruleID string) (*RuleExecutionResult, error) {
	rule, ok := e.store.Get(ruleID)
	if !ok {
		return nil, ErrRuleNotFound
	}

	result := &RuleExecutionResult{
		RuleID:     rule.ID,
		RuleName:   rule.Name,
		Success:    true,
		Actions:    make([]ActionOutcome, 0, len(rule.Actions)),
		ExecutedAt: time.Now().UTC(),
	}

	for i, action := range rule.Actions {
		outcome := e.executeAction(ctx, i, action)
		result.Actions = append(result.Actions, outcome)
		if !outcome.Success {
			result.Success = false
		}
	}

	if result.Success {
		result.Message = fmt.Sprintf("executed %d actions", len(result.Actions))
	} else {
		failed := 0
		for _, o := range result.Actions {
			if !o.Success {
				failed++
			}
		}
		result.Message = fmt.Sprintf("%d of %d actions failed", failed, len(result.Actions))
	}

	e.bus.Publish(events.NewAutomationTriggered(rule.ID, rule.Name, result.Success))
	e.logger.Info("rule executed",
		"rule_id", rule.ID,
		"rule_name", rule.Name,
		"success", result.Success,
	)

	return result, nil
}

// executeAction runs one action and reports its outcome.
func (e *Engine) executeAction(ctx context.Context, index int, action Action) ActionOutcome {
	outcome := ActionOutcome{Index: index, Type: action.ActionType()}

	switch act := action.(type) {
	case DeviceCommandAction:
		res := e.executor.ExecuteCommand(ctx, act.DeviceID, act.Command)
		outcome.Success = res.Success
		outcome.Message = res.Message
	case SceneAction:
		if e.scenes == nil {
			outcome.Message = "scene activation not available"
			break
		}
		if err := e.scenes.ActivateScene(ctx, act.SceneID); err != nil {
			outcome.Message = err.Error()
			break
		}
		outcome.Success = true
	default:
		outcome.Message = fmt.Sprintf("unknown action variant %T", action)
	}

	return outcome
}

// ResetEdgeState forgets the trigger edge history for a rule. Called
// after a rule is updated so the new trigger set starts clean.
func (e *Engine) ResetEdgeState(ruleID string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for key := range e.satisfied {
		if ruleMatchesKey(ruleID, key) {
			delete(e.satisfied, key)
		}
	}
	for key := range e.lastFired {
		if ruleMatchesKey(ruleID, key) {
			delete(e.lastFired, key)
		}
	}
}

func edgeKey(ruleID string, triggerIndex int) string {
	return ruleID + "#" + strconv.Itoa(triggerIndex)
}

func ruleMatchesKey(ruleID, key string) bool {
	return len(key) > len(ruleID) && key[:len(ruleID)] == ruleID && key[len(ruleID)] == '#'
}
