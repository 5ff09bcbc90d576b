package mqttbridge

import "errors"

var (
	// ErrNotConnected is returned when the MQTT client has no broker
	// connection.
	ErrNotConnected = errors.New("mqttbridge: not connected to broker")

	// ErrRejected is returned when the bridge refuses a request.
	ErrRejected = errors.New("mqttbridge: request rejected by bridge")

	// ErrBadMessage is returned for malformed bridge payloads.
	ErrBadMessage = errors.New("mqttbridge: malformed message")
)
