// Package history records hub activity into the time-series store.
//
// The recorder subscribes to the event bus and translates events into
// InfluxDB writes: numeric and boolean property changes become state
// metrics, device faults and automation activity become event
// counters. Recording is best-effort and asynchronous; a slow or
// unavailable store never stalls device control.
package history
