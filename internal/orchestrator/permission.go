package orchestrator

import "context"

// Permission action identifiers passed to the gate.
const (
	ActionInitialize    = "system.initialize"
	ActionDeviceCommand = "device.command"
)

// Decision is the outcome of a permission evaluation.
type Decision struct {
	Allowed bool
	Reason  string
}

// PermissionGate approves or vetoes sensitive operations. Evaluation
// failures are treated as denials; the orchestrator never bypasses the
// gate on error.
type PermissionGate interface {
	// Evaluate checks whether an action is allowed. Context attributes
	// describe the target (device id, command type, device type).
	Evaluate(ctx context.Context, action string, attrs map[string]string) (Decision, error)

	// RequestConfirmation asks for an explicit user confirmation step,
	// such as before unlocking a lock.
	RequestConfirmation(ctx context.Context, actionID, prompt string) (bool, error)
}

// AllowAllGate approves everything. Used when no external permission
// collaborator is configured.
type AllowAllGate struct{}

func (AllowAllGate) Evaluate(context.Context, string, map[string]string) (Decision, error) {
	return Decision{Allowed: true}, nil
}

func (AllowAllGate) RequestConfirmation(context.Context, string, string) (bool, error) {
	return true, nil
}
