package mqtt

import "fmt"

// Topic prefixes for the Hearth MQTT scheme.
//
// All bridge topics use the flat scheme: hearth/{category}/{protocol}/{id}
// This matches the bridge adapter's message handling and all runtime
// subscribers.
const (
	// TopicPrefixBridge is the base for all bridge topics.
	// Flat scheme: hearth/{category}/{protocol}/{id}
	TopicPrefixBridge = "hearth"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "hearth/system"
)

// Topics provides builders for Hearth MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.BridgeState("zigbee", "light-living-main")
//	// Returns: "hearth/state/zigbee/light-living-main"
type Topics struct{}

// BridgeState returns the topic for device state updates from a bridge.
//
// Example: hearth/state/zigbee/light-living-main
func (Topics) BridgeState(protocol, deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefixBridge, protocol, deviceID)
}

// BridgeCommand returns the topic for commands to a bridge.
//
// Example: hearth/command/zigbee/light-living-main
func (Topics) BridgeCommand(protocol, deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefixBridge, protocol, deviceID)
}

// BridgeAck returns the topic for command acknowledgements from a bridge.
//
// Example: hearth/ack/zigbee/light-living-main
func (Topics) BridgeAck(protocol, deviceID string) string {
	return fmt.Sprintf("%s/ack/%s/%s", TopicPrefixBridge, protocol, deviceID)
}

// BridgeRequest returns the topic for requests to a bridge.
//
// Example: hearth/request/zigbee/req-abc123
func (Topics) BridgeRequest(protocol, requestID string) string {
	return fmt.Sprintf("%s/request/%s/%s", TopicPrefixBridge, protocol, requestID)
}

// BridgeResponse returns the topic for request responses from a bridge.
//
// Example: hearth/response/zigbee/req-abc123
func (Topics) BridgeResponse(protocol, requestID string) string {
	return fmt.Sprintf("%s/response/%s/%s", TopicPrefixBridge, protocol, requestID)
}

// BridgeDiscovery returns the topic for device discovery announcements
// from a bridge.
//
// Example: hearth/discovery/zigbee
func (Topics) BridgeDiscovery(protocol string) string {
	return fmt.Sprintf("%s/discovery/%s", TopicPrefixBridge, protocol)
}

// BridgeHealth returns the topic for bridge health status.
//
// Example: hearth/health/zigbee
func (Topics) BridgeHealth(protocol string) string {
	return fmt.Sprintf("%s/health/%s", TopicPrefixBridge, protocol)
}

// SystemStatus returns the hub status topic.
//
// Example: hearth/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemShutdown returns the shutdown signal topic.
//
// Example: hearth/system/shutdown
func (Topics) SystemShutdown() string {
	return fmt.Sprintf("%s/shutdown", TopicPrefixSystem)
}

// AllBridgeStates returns a pattern matching all bridge state updates.
//
// Pattern: hearth/state/+/+
func (Topics) AllBridgeStates() string {
	return fmt.Sprintf("%s/state/+/+", TopicPrefixBridge)
}

// AllBridgeAcks returns a pattern matching all bridge acknowledgements.
//
// Pattern: hearth/ack/+/+
func (Topics) AllBridgeAcks() string {
	return fmt.Sprintf("%s/ack/+/+", TopicPrefixBridge)
}

// AllBridgeHealth returns a pattern matching all bridge health updates.
//
// Pattern: hearth/health/+
func (Topics) AllBridgeHealth() string {
	return fmt.Sprintf("%s/health/+", TopicPrefixBridge)
}

// AllBridgeDiscovery returns a pattern matching all bridge discovery topics.
//
// Pattern: hearth/discovery/+
func (Topics) AllBridgeDiscovery() string {
	return fmt.Sprintf("%s/discovery/+", TopicPrefixBridge)
}

// AllTopics returns a pattern matching all Hearth topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: hearth/#
func (Topics) AllTopics() string {
	return "hearth/#"
}
