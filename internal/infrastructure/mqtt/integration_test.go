//go:build integration

package mqtt

import (
	"errors"
	"testing"
	"time"

	"github.com/hearthgrid/hearth-core/internal/infrastructure/config"
)

// These tests need a broker on 127.0.0.1:1883:
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

func TestConnectAndClose(t *testing.T) {
	client, err := Connect(integrationConfig("hearth-it-lifecycle"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect")
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close")
	}
}

func TestConnectRefused(t *testing.T) {
	cfg := integrationConfig("hearth-it-refused")
	cfg.Broker.Port = 19999

	if _, err := Connect(cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestPublishValidation(t *testing.T) {
	client, err := Connect(integrationConfig("hearth-it-validate"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.Publish("", []byte("x"), 1, false); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("empty topic error = %v, want ErrInvalidTopic", err)
	}
	if err := client.Publish("hearth/test", []byte("x"), 3, false); !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("qos 3 error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublishSubscribeRoundtrip(t *testing.T) {
	pub, err := Connect(integrationConfig("hearth-it-pub"))
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close()

	sub, err := Connect(integrationConfig("hearth-it-sub"))
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close()

	// A single-level wildcard must match each concrete device topic.
	received := make(chan string, 4)
	err = sub.Subscribe("hearth/test/+/state", 1, func(topic string, _ []byte) error {
		received <- topic
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	want := map[string]bool{
		"hearth/test/lamp-1/state": false,
		"hearth/test/lamp-2/state": false,
	}
	for topic := range want {
		if err := pub.Publish(topic, []byte(`{"on":true}`), 1, false); err != nil {
			t.Fatalf("Publish(%s) error = %v", topic, err)
		}
	}

	deadline := time.After(5 * time.Second)
	for range want {
		select {
		case topic := <-received:
			want[topic] = true
		case <-deadline:
			t.Fatalf("timed out, received so far: %v", want)
		}
	}
	for topic, seen := range want {
		if !seen {
			t.Errorf("no message on %s", topic)
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	pub, err := Connect(integrationConfig("hearth-it-unsub-pub"))
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pub.Close()

	sub, err := Connect(integrationConfig("hearth-it-unsub"))
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer sub.Close()

	const topic = "hearth/test/unsubscribe"
	received := make(chan struct{}, 4)
	if err := sub.Subscribe(topic, 1, func(string, []byte) error {
		received <- struct{}{}
		return nil
	}); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if err := sub.Unsubscribe(topic); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}

	if err := pub.Publish(topic, []byte("x"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case <-received:
		t.Error("message delivered after Unsubscribe")
	case <-time.After(500 * time.Millisecond):
	}
}
