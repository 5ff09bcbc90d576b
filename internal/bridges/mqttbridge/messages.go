package mqttbridge

import (
	"encoding/json"
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
)

// Request types understood by a bridge.
const (
	RequestDiscover   = "discover"
	RequestConnect    = "connect"
	RequestDisconnect = "disconnect"
	RequestQueryState = "query_state"
)

// CommandMessage is sent from the hub to a bridge to execute a device
// command.
// Topic: hearth/command/{protocol}/{deviceID}
type CommandMessage struct {
	// ID uniquely identifies this command for correlation with the ack.
	ID string `json:"id"`

	// Timestamp is when the command was issued (UTC).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the hub device identifier.
	DeviceID string `json:"device_id"`

	// Command is the tagged command envelope.
	Command json.RawMessage `json:"command"`

	// Source indicates where the command originated.
	// Values: "api", "automation", "scene"
	Source string `json:"source,omitempty"`
}

// AckMessage is sent from a bridge to the hub to acknowledge a command.
// Topic: hearth/ack/{protocol}/{deviceID}
type AckMessage struct {
	// CommandID is the ID from the original command.
	CommandID string `json:"command_id"`

	// Timestamp is when the acknowledgment was sent (UTC).
	Timestamp time.Time `json:"timestamp"`

	// DeviceID is the hub device identifier.
	DeviceID string `json:"device_id"`

	// Success reports whether the device accepted the command.
	Success bool `json:"success"`

	// Message carries failure details.
	Message string `json:"message,omitempty"`

	// ErrorCode is the bridge's failure code, zero on success.
	ErrorCode int `json:"error_code,omitempty"`
}

// RequestMessage is a hub-to-bridge request outside the command path:
// discovery sweeps, session management, and state queries.
// Topic: hearth/request/{protocol}/{requestID}
type RequestMessage struct {
	// ID uniquely identifies this request for correlation.
	ID string `json:"id"`

	// Timestamp is when the request was issued (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Type is one of the Request* constants.
	Type string `json:"type"`

	// DeviceID targets a device for connect/disconnect/query requests.
	DeviceID string `json:"device_id,omitempty"`
}

// ResponseMessage answers a RequestMessage.
// Topic: hearth/response/{protocol}/{requestID}
type ResponseMessage struct {
	// RequestID is the ID from the original request.
	RequestID string `json:"request_id"`

	// Timestamp is when the response was sent (UTC).
	Timestamp time.Time `json:"timestamp"`

	// Success reports whether the request was honoured.
	Success bool `json:"success"`

	// Message carries failure details.
	Message string `json:"message,omitempty"`

	// State carries the device state for query responses.
	State *StateMessage `json:"state,omitempty"`
}

// StateMessage is a device state snapshot on the wire.
type StateMessage struct {
	DeviceID   string            `json:"device_id"`
	Timestamp  time.Time         `json:"timestamp"`
	Online     bool              `json:"online"`
	Properties device.Properties `json:"properties"`
}

// DiscoveryAnnouncement is published by a bridge for each device found
// during a discovery sweep.
// Topic: hearth/discovery/{protocol}
type DiscoveryAnnouncement struct {
	ID              string   `json:"id,omitempty"`
	Name            string   `json:"name"`
	Manufacturer    string   `json:"manufacturer,omitempty"`
	Model           string   `json:"model,omitempty"`
	FirmwareVersion string   `json:"firmware_version,omitempty"`
	Type            string   `json:"type"`
	Capabilities    []string `json:"capabilities,omitempty"`
	Room            string   `json:"room,omitempty"`
}

// Device converts an announcement into a registry device for the given
// protocol.
func (a DiscoveryAnnouncement) Device(protocol device.Protocol) device.Device {
	caps := make([]device.Capability, 0, len(a.Capabilities))
	for _, c := range a.Capabilities {
		caps = append(caps, device.Capability(c))
	}
	return device.Device{
		ID:              a.ID,
		Name:            a.Name,
		Manufacturer:    a.Manufacturer,
		Model:           a.Model,
		FirmwareVersion: a.FirmwareVersion,
		Type:            device.DeviceType(a.Type),
		Protocol:        protocol,
		Capabilities:    caps,
		Room:            a.Room,
		ConnectionState: device.ConnectionDiscovered,
	}
}
