package automation

import "errors"

// Domain errors for the automation package.
var (
	// ErrRuleNotFound is returned when a rule ID does not exist.
	ErrRuleNotFound = errors.New("automation: rule not found")

	// ErrInvalidRule is returned when rule validation fails.
	ErrInvalidRule = errors.New("automation: invalid rule")

	// ErrInvalidTrigger is returned when a trigger is malformed or of
	// an unknown type.
	ErrInvalidTrigger = errors.New("automation: invalid trigger")

	// ErrInvalidAction is returned when an action is malformed or of
	// an unknown type.
	ErrInvalidAction = errors.New("automation: invalid action")

	// ErrEngineNotRunning is returned when an operation needs the
	// evaluation loop and it has not been started.
	ErrEngineNotRunning = errors.New("automation: engine not running")
)
