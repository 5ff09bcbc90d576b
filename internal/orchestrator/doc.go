// Package orchestrator coordinates the hub: discovery, connection
// management, command execution, and the process-wide system state
// machine.
//
// # State machine
//
// The hub starts initializing and moves to idle on a successful
// Initialize, or to disabled when configuration or the permission gate
// forbids startup. Discovery holds the discovering state, adapter
// calls hold busy, and Shutdown passes through shutting_down to
// disabled. Adapter faults transition through a transient error state
// and always recover to idle after the error event.
//
// # Failure policy
//
// Local failures (unknown device, unsupported protocol, permission
// denial, not connected) come back as typed results or wrapped
// sentinel errors without touching the state machine. Nothing is
// retried automatically.
//
// # Permission gating
//
// Every command passes the PermissionGate before the adapter is
// invoked. Unlocking a lock-type device additionally requires an
// explicit confirmation step.
package orchestrator
