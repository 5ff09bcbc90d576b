// Package events defines the hub's event model and the in-process bus
// that distributes it.
//
// Events are a closed tagged union: device lifecycle (discovered,
// connected, disconnected), per-property state changes with previous
// values, system state transitions, permission denials and automation
// activity. The automation engine, the websocket layer and the history
// recorder are all plain subscribers.
//
// The Bus never blocks a publisher. Each subscriber owns a bounded
// channel; when it falls behind, its oldest pending event is dropped
// in favour of the newest. New subscribers receive a replay of the
// last few events so they start with current context.
package events
