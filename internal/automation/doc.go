// Package automation implements stored rules and the engine that
// evaluates them.
//
// A rule is a set of triggers (time-of-day or device-state comparison)
// plus a set of actions (device command or scene activation). Triggers
// and actions are closed tagged unions with a JSON envelope form, so
// rules round-trip through SQLite and the REST API without losing
// their types.
//
// The Engine subscribes to the event bus for device updates and runs a
// wall-clock ticker for time triggers. Device-state evaluation is
// edge-triggered: a satisfied condition fires once, on the transition
// into satisfaction, and must become unsatisfied before it can fire
// again. Rules execute all their actions even when some fail; the
// aggregated result and an automation event report the outcome.
package automation
