package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/hearthgrid/hearth-core/internal/infrastructure/config"
)

// testConfig returns a valid MQTT configuration for testing.
func testConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: "hearth-test",
			TLS:      false,
		},
		Auth: config.MQTTAuthConfig{
			Username: "",
			Password: "",
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestCloseNil(t *testing.T) {
	client := &Client{}
	err := client.Close()
	if err != nil {
		t.Errorf("Close() on nil client error = %v, want nil", err)
	}
}

func TestBuildOptions(t *testing.T) {
	cfg := testConfig()
	opts := buildOptions(cfg)

	if len(opts.Servers) != 1 {
		t.Fatalf("expected 1 broker, got %d", len(opts.Servers))
	}

	if got := opts.Servers[0].String(); got != "tcp://127.0.0.1:1883" {
		t.Errorf("broker URL = %q, want %q", got, "tcp://127.0.0.1:1883")
	}

	if opts.ClientID != "hearth-test" {
		t.Errorf("ClientID = %q, want %q", opts.ClientID, "hearth-test")
	}

	if !opts.AutoReconnect {
		t.Error("expected AutoReconnect enabled")
	}
}

func TestBuildOptions_TLS(t *testing.T) {
	cfg := testConfig()
	cfg.Broker.TLS = true
	opts := buildOptions(cfg)

	if got := opts.Servers[0].Scheme; got != "ssl" {
		t.Errorf("broker scheme = %q, want %q", got, "ssl")
	}

	if opts.TLSConfig == nil {
		t.Fatal("expected TLS config to be set")
	}
}

func TestBuildOptions_Auth(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.Username = "hub"
	cfg.Auth.Password = "secret"
	opts := buildOptions(cfg)

	if opts.Username != "hub" {
		t.Errorf("Username = %q, want %q", opts.Username, "hub")
	}
	if opts.Password != "secret" {
		t.Errorf("Password = %q, want %q", opts.Password, "secret")
	}
}

func TestStatusPayloads(t *testing.T) {
	var online statusPayload
	if err := json.Unmarshal([]byte(statusJSON("online", "hearth-core", "")), &online); err != nil {
		t.Fatalf("online payload is not JSON: %v", err)
	}
	if online.Status != "online" || online.ClientID != "hearth-core" {
		t.Errorf("online payload = %+v", online)
	}
	if online.Timestamp == "" {
		t.Error("online payload missing timestamp")
	}

	var offline statusPayload
	if err := json.Unmarshal([]byte(statusJSON("offline", "hearth-core", "graceful_shutdown")), &offline); err != nil {
		t.Fatalf("offline payload is not JSON: %v", err)
	}
	if offline.Status != "offline" || offline.Reason != "graceful_shutdown" {
		t.Errorf("offline payload = %+v", offline)
	}
}

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "BridgeState",
			builder: func() string {
				return Topics{}.BridgeState("zigbee", "light-living")
			},
			expected: "hearth/state/zigbee/light-living",
		},
		{
			name: "BridgeCommand",
			builder: func() string {
				return Topics{}.BridgeCommand("zigbee", "light-living")
			},
			expected: "hearth/command/zigbee/light-living",
		},
		{
			name: "BridgeAck",
			builder: func() string {
				return Topics{}.BridgeAck("zigbee", "light-living")
			},
			expected: "hearth/ack/zigbee/light-living",
		},
		{
			name: "BridgeRequest",
			builder: func() string {
				return Topics{}.BridgeRequest("zigbee", "req-123")
			},
			expected: "hearth/request/zigbee/req-123",
		},
		{
			name: "BridgeResponse",
			builder: func() string {
				return Topics{}.BridgeResponse("zigbee", "req-123")
			},
			expected: "hearth/response/zigbee/req-123",
		},
		{
			name: "BridgeDiscovery",
			builder: func() string {
				return Topics{}.BridgeDiscovery("zigbee")
			},
			expected: "hearth/discovery/zigbee",
		},
		{
			name: "BridgeHealth",
			builder: func() string {
				return Topics{}.BridgeHealth("zigbee")
			},
			expected: "hearth/health/zigbee",
		},
		{
			name: "SystemStatus",
			builder: func() string {
				return Topics{}.SystemStatus()
			},
			expected: "hearth/system/status",
		},
		{
			name: "SystemShutdown",
			builder: func() string {
				return Topics{}.SystemShutdown()
			},
			expected: "hearth/system/shutdown",
		},
		{
			name: "AllBridgeStates",
			builder: func() string {
				return Topics{}.AllBridgeStates()
			},
			expected: "hearth/state/+/+",
		},
		{
			name: "AllBridgeAcks",
			builder: func() string {
				return Topics{}.AllBridgeAcks()
			},
			expected: "hearth/ack/+/+",
		},
		{
			name: "AllBridgeHealth",
			builder: func() string {
				return Topics{}.AllBridgeHealth()
			},
			expected: "hearth/health/+",
		},
		{
			name: "AllBridgeDiscovery",
			builder: func() string {
				return Topics{}.AllBridgeDiscovery()
			},
			expected: "hearth/discovery/+",
		},
		{
			name: "AllTopics",
			builder: func() string {
				return Topics{}.AllTopics()
			},
			expected: "hearth/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}
