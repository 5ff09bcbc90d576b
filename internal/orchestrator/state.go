package orchestrator

// SystemState is the single process-wide hub state, owned exclusively
// by the Orchestrator.
type SystemState string

// System states.
const (
	StateInitializing SystemState = "initializing"
	StateIdle         SystemState = "idle"
	StateDiscovering  SystemState = "discovering"
	StateBusy         SystemState = "busy"
	StateError        SystemState = "error"
	StateShuttingDown SystemState = "shutting_down"
	StateDisabled     SystemState = "disabled"
)

func (s SystemState) String() string {
	return string(s)
}
