// Package api implements the HTTP REST API and WebSocket server for Hearth Core.
//
// This package provides:
//   - REST endpoints for devices, discovery, scenes, rules, and system control
//   - WebSocket hub streaming orchestrator events to subscribed clients
//   - Middleware stack (request ID, logging, recovery, CORS, body limits)
//   - TLS support for production deployments
//
// # Architecture
//
// The API server is a thin layer over the orchestrator: every handler
// delegates to it, so the state machine and permission gate apply to
// HTTP traffic exactly as they do to automation. Command failures come
// back as typed results whose error codes double as HTTP statuses.
//
// # Event stream
//
// Clients open /api/v1/ws and subscribe to channels named after event
// types ("device_state_changed", "scene_activated", ...), or to "*"
// for the full stream. Slow clients have messages dropped rather than
// stalling the relay.
package api
