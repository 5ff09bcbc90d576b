package automation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength = 100
	maxTriggers   = 20
	maxActions    = 50
)

// validOperators is built once for O(1) lookups.
var validOperators = map[CompareOp]struct{}{
	OpGreater:      {},
	OpLess:         {},
	OpEqual:        {},
	OpNotEqual:     {},
	OpGreaterEqual: {},
	OpLessEqual:    {},
	OpContains:     {},
}

// ValidateRule performs comprehensive validation on a rule.
// Returns an error describing the first validation failure found.
func ValidateRule(r *Rule) error {
	if r == nil {
		return ErrInvalidRule
	}

	name := strings.TrimSpace(r.Name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidRule)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidRule, maxNameLength)
	}

	if len(r.Triggers) == 0 {
		return fmt.Errorf("%w: at least one trigger is required", ErrInvalidRule)
	}
	if len(r.Triggers) > maxTriggers {
		return fmt.Errorf("%w: too many triggers (max %d)", ErrInvalidRule, maxTriggers)
	}
	for i, t := range r.Triggers {
		if err := ValidateTrigger(t); err != nil {
			return fmt.Errorf("trigger %d: %w", i, err)
		}
	}

	if len(r.Actions) == 0 {
		return fmt.Errorf("%w: at least one action is required", ErrInvalidRule)
	}
	if len(r.Actions) > maxActions {
		return fmt.Errorf("%w: too many actions (max %d)", ErrInvalidRule, maxActions)
	}
	for i, a := range r.Actions {
		if err := ValidateAction(a); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}

	return nil
}

// ValidateTrigger checks a single trigger variant.
func ValidateTrigger(t Trigger) error {
	switch trig := t.(type) {
	case TimeTrigger:
		if trig.Hour < 0 || trig.Hour > 23 {
			return fmt.Errorf("%w: hour %d out of range 0-23", ErrInvalidTrigger, trig.Hour)
		}
		if trig.Minute < 0 || trig.Minute > 59 {
			return fmt.Errorf("%w: minute %d out of range 0-59", ErrInvalidTrigger, trig.Minute)
		}
		for _, d := range trig.Days {
			if d < 0 || d > 6 {
				return fmt.Errorf("%w: weekday %d out of range", ErrInvalidTrigger, d)
			}
		}
		return nil
	case DeviceStateTrigger:
		if trig.DeviceID == "" {
			return fmt.Errorf("%w: device id is required", ErrInvalidTrigger)
		}
		if trig.Property == "" {
			return fmt.Errorf("%w: property is required", ErrInvalidTrigger)
		}
		if _, ok := validOperators[trig.Operator]; !ok {
			return fmt.Errorf("%w: unknown operator %q", ErrInvalidTrigger, trig.Operator)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown trigger variant %T", ErrInvalidTrigger, t)
	}
}

// ValidateAction checks a single action variant.
func ValidateAction(a Action) error {
	switch act := a.(type) {
	case DeviceCommandAction:
		if act.DeviceID == "" {
			return fmt.Errorf("%w: device id is required", ErrInvalidAction)
		}
		if act.Command == nil {
			return fmt.Errorf("%w: command is required", ErrInvalidAction)
		}
		if err := act.Command.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidAction, err)
		}
		return nil
	case SceneAction:
		if act.SceneID == "" {
			return fmt.Errorf("%w: scene id is required", ErrInvalidAction)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action variant %T", ErrInvalidAction, a)
	}
}

// GenerateID creates a new UUID for a rule.
func GenerateID() string {
	return uuid.New().String()
}
