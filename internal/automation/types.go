package automation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
)

// Rule is a stored trigger-set plus action-set, evaluated continuously
// while enabled.
type Rule struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`

	// Any satisfied trigger fires the rule
	Triggers TriggerList `json:"triggers"`

	// Actions execute sequentially, all of them, even after a failure
	Actions ActionList `json:"actions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy creates an independent copy of the rule. Trigger and action
// variants are immutable value structs, so copying the slices suffices.
func (r *Rule) DeepCopy() *Rule {
	if r == nil {
		return nil
	}

	cpy := *r
	if r.Triggers != nil {
		cpy.Triggers = make(TriggerList, len(r.Triggers))
		copy(cpy.Triggers, r.Triggers)
	}
	if r.Actions != nil {
		cpy.Actions = make(ActionList, len(r.Actions))
		copy(cpy.Actions, r.Actions)
	}
	return &cpy
}

// TriggerType discriminates trigger variants.
type TriggerType string

// Trigger types.
const (
	TriggerTime        TriggerType = "time"
	TriggerDeviceState TriggerType = "device_state"
)

// Trigger is a condition that can fire a rule: a time-of-day match or
// a device-state comparison.
type Trigger interface {
	TriggerType() TriggerType
}

// TimeTrigger fires when the wall clock reaches hour:minute on one of
// the listed weekdays. An empty Days list means every day.
type TimeTrigger struct {
	Hour   int            `json:"hour"`
	Minute int            `json:"minute"`
	Days   []time.Weekday `json:"days,omitempty"`
}

func (TimeTrigger) TriggerType() TriggerType { return TriggerTime }

// Matches reports whether the trigger fires at the given instant.
func (t TimeTrigger) Matches(at time.Time) bool {
	if at.Hour() != t.Hour || at.Minute() != t.Minute {
		return false
	}
	if len(t.Days) == 0 {
		return true
	}
	for _, d := range t.Days {
		if at.Weekday() == d {
			return true
		}
	}
	return false
}

// CompareOp is a comparison operator for device-state triggers.
type CompareOp string

// Comparison operators.
const (
	OpGreater      CompareOp = "gt"
	OpLess         CompareOp = "lt"
	OpEqual        CompareOp = "eq"
	OpNotEqual     CompareOp = "ne"
	OpGreaterEqual CompareOp = "gte"
	OpLessEqual    CompareOp = "lte"
	OpContains     CompareOp = "contains"
)

// Compare applies the operator to a current value against a threshold.
// Ordering operators require both values to be numeric, contains
// requires both to be strings; a kind mismatch is simply not satisfied,
// never an error.
func (op CompareOp) Compare(current, threshold device.Value) bool {
	switch op {
	case OpEqual:
		return current.Equal(threshold)
	case OpNotEqual:
		return !current.Equal(threshold)
	case OpContains:
		if current.Kind != device.KindString || threshold.Kind != device.KindString {
			return false
		}
		return strings.Contains(current.Str, threshold.Str)
	}

	a, aok := current.AsNumber()
	b, bok := threshold.AsNumber()
	if !aok || !bok {
		return false
	}

	switch op {
	case OpGreater:
		return a > b
	case OpLess:
		return a < b
	case OpGreaterEqual:
		return a >= b
	case OpLessEqual:
		return a <= b
	default:
		return false
	}
}

// DeviceStateTrigger fires when a device property crosses into the
// satisfied range. Evaluation is edge-triggered: the action fires on
// the transition into satisfaction, not on every update while
// satisfied.
type DeviceStateTrigger struct {
	DeviceID string       `json:"device_id"`
	Property string       `json:"property"`
	Operator CompareOp    `json:"operator"`
	Value    device.Value `json:"value"`
}

func (DeviceStateTrigger) TriggerType() TriggerType { return TriggerDeviceState }

// ActionType discriminates action variants.
type ActionType string

// Action types.
const (
	ActionDeviceCommand ActionType = "device_command"
	ActionScene         ActionType = "scene"
)

// Action is an effect a rule performs when fired.
type Action interface {
	ActionType() ActionType
}

// DeviceCommandAction sends one command to one device.
type DeviceCommandAction struct {
	DeviceID string         `json:"device_id"`
	Command  device.Command `json:"command"`
}

func (DeviceCommandAction) ActionType() ActionType { return ActionDeviceCommand }

// SceneAction activates a scene.
type SceneAction struct {
	SceneID string `json:"scene_id"`
}

func (SceneAction) ActionType() ActionType { return ActionScene }

// ActionOutcome records the result of one action within a rule
// execution.
type ActionOutcome struct {
	Index   int        `json:"index"`
	Type    ActionType `json:"type"`
	Success bool       `json:"success"`
	Message string     `json:"message,omitempty"`
}

// RuleExecutionResult aggregates per-action outcomes for one firing.
type RuleExecutionResult struct {
	RuleID     string          `json:"rule_id"`
	RuleName   string          `json:"rule_name"`
	Success    bool            `json:"success"`
	Message    string          `json:"message,omitempty"`
	Actions    []ActionOutcome `json:"actions"`
	ExecutedAt time.Time       `json:"executed_at"`
}

// triggerEnvelope is the tagged wire form of a Trigger.
type triggerEnvelope struct {
	Type    TriggerType     `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// TriggerList is a JSON-round-trippable slice of trigger variants.
type TriggerList []Trigger

// MarshalJSON encodes each trigger in its tagged envelope.
func (l TriggerList) MarshalJSON() ([]byte, error) {
	envs := make([]triggerEnvelope, 0, len(l))
	for _, t := range l {
		payload, err := json.Marshal(t)
		if err != nil {
			return nil, fmt.Errorf("marshalling trigger: %w", err)
		}
		envs = append(envs, triggerEnvelope{Type: t.TriggerType(), Payload: payload})
	}
	return json.Marshal(envs)
}

// UnmarshalJSON decodes tagged envelopes into typed triggers.
func (l *TriggerList) UnmarshalJSON(data []byte) error {
	var envs []triggerEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTrigger, err)
	}

	out := make(TriggerList, 0, len(envs))
	for _, env := range envs {
		switch env.Type {
		case TriggerTime:
			var t TimeTrigger
			if err := json.Unmarshal(env.Payload, &t); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidTrigger, err)
			}
			out = append(out, t)
		case TriggerDeviceState:
			var t DeviceStateTrigger
			if err := json.Unmarshal(env.Payload, &t); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidTrigger, err)
			}
			out = append(out, t)
		default:
			return fmt.Errorf("%w: unknown trigger type %q", ErrInvalidTrigger, env.Type)
		}
	}
	*l = out
	return nil
}

// actionEnvelope is the tagged wire form of an Action.
type actionEnvelope struct {
	Type    ActionType      `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// deviceCommandActionWire flattens the nested command envelope.
type deviceCommandActionWire struct {
	DeviceID string          `json:"device_id"`
	Command  json.RawMessage `json:"command"`
}

// ActionList is a JSON-round-trippable slice of action variants.
type ActionList []Action

// MarshalJSON encodes each action in its tagged envelope.
func (l ActionList) MarshalJSON() ([]byte, error) {
	envs := make([]actionEnvelope, 0, len(l))
	for _, a := range l {
		var payload []byte
		var err error
		switch act := a.(type) {
		case DeviceCommandAction:
			var cmdJSON []byte
			cmdJSON, err = device.MarshalCommand(act.Command)
			if err == nil {
				payload, err = json.Marshal(deviceCommandActionWire{DeviceID: act.DeviceID, Command: cmdJSON})
			}
		default:
			payload, err = json.Marshal(a)
		}
		if err != nil {
			return nil, fmt.Errorf("marshalling action: %w", err)
		}
		envs = append(envs, actionEnvelope{Type: a.ActionType(), Payload: payload})
	}
	return json.Marshal(envs)
}

// UnmarshalJSON decodes tagged envelopes into typed actions.
func (l *ActionList) UnmarshalJSON(data []byte) error {
	var envs []actionEnvelope
	if err := json.Unmarshal(data, &envs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidAction, err)
	}

	out := make(ActionList, 0, len(envs))
	for _, env := range envs {
		switch env.Type {
		case ActionDeviceCommand:
			var wire deviceCommandActionWire
			if err := json.Unmarshal(env.Payload, &wire); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidAction, err)
			}
			cmd, err := device.UnmarshalCommand(wire.Command)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidAction, err)
			}
			out = append(out, DeviceCommandAction{DeviceID: wire.DeviceID, Command: cmd})
		case ActionScene:
			var a SceneAction
			if err := json.Unmarshal(env.Payload, &a); err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidAction, err)
			}
			out = append(out, a)
		default:
			return fmt.Errorf("%w: unknown action type %q", ErrInvalidAction, env.Type)
		}
	}
	*l = out
	return nil
}
