package orchestrator

import "errors"

var (
	// ErrSystemDisabled is returned when the hub is disabled by
	// configuration or a denied permission check.
	ErrSystemDisabled = errors.New("orchestrator: system disabled")

	// ErrNotIdle is returned when an operation requires the idle state.
	ErrNotIdle = errors.New("orchestrator: system is not idle")

	// ErrNotInitialized is returned when the hub has not completed
	// initialization.
	ErrNotInitialized = errors.New("orchestrator: system not initialized")

	// ErrShuttingDown is returned when the hub is shutting down.
	ErrShuttingDown = errors.New("orchestrator: system shutting down")

	// ErrUnsupportedProtocol is returned when no adapter is registered
	// for a device's protocol.
	ErrUnsupportedProtocol = errors.New("orchestrator: unsupported protocol")

	// ErrAdapterFailure is returned when an adapter call fails.
	ErrAdapterFailure = errors.New("orchestrator: adapter failure")
)
