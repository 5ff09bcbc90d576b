package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
	"github.com/hearthgrid/hearth-core/internal/infrastructure/mqtt"
)

// qosAtLeastOnce is used for all bridge traffic.
const qosAtLeastOnce byte = 1

// MQTTClient is the interface for MQTT operations. Satisfied by
// *mqtt.Client; narrowed here so tests can run against a fake broker.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	IsConnected() bool
}

// Logger defines the logging interface used by the bridge.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Bridge is a protocol adapter that routes discovery, session
// management, commands, and state queries over MQTT to an external
// bridge process handling the actual radio.
//
// Request/response correlation uses per-message IDs; the bridge keeps
// one wildcard subscription per topic family and routes replies to the
// waiting caller. All methods are safe for concurrent use.
type Bridge struct {
	protocol device.Protocol
	client   MQTTClient
	topics   mqtt.Topics
	logger   Logger

	mu       sync.Mutex
	pending  map[string]chan ResponseMessage
	acks     map[string]chan AckMessage
	announce chan DiscoveryAnnouncement // Non-nil only during a sweep
}

// New creates a bridge adapter for one protocol and sets up its reply
// subscriptions.
func New(protocol device.Protocol, client MQTTClient) (*Bridge, error) {
	b := &Bridge{
		protocol: protocol,
		client:   client,
		logger:   noopLogger{},
		pending:  make(map[string]chan ResponseMessage),
		acks:     make(map[string]chan AckMessage),
	}

	p := string(protocol)
	if err := client.Subscribe(b.topics.BridgeResponse(p, "+"), qosAtLeastOnce, b.handleResponse); err != nil {
		return nil, fmt.Errorf("subscribing to responses: %w", err)
	}
	if err := client.Subscribe(b.topics.BridgeAck(p, "+"), qosAtLeastOnce, b.handleAck); err != nil {
		return nil, fmt.Errorf("subscribing to acks: %w", err)
	}
	if err := client.Subscribe(b.topics.BridgeDiscovery(p), qosAtLeastOnce, b.handleDiscovery); err != nil {
		return nil, fmt.Errorf("subscribing to discovery: %w", err)
	}

	return b, nil
}

// SetLogger sets the logger for the bridge.
func (b *Bridge) SetLogger(logger Logger) {
	b.logger = logger
}

// Protocol returns the protocol this bridge serves.
func (b *Bridge) Protocol() device.Protocol {
	return b.protocol
}

// Discover asks the bridge for a discovery sweep and collects the
// announcements published until ctx expires. The deadline is the
// collection window, not a failure.
func (b *Bridge) Discover(ctx context.Context) ([]device.Device, error) {
	if !b.client.IsConnected() {
		return nil, ErrNotConnected
	}

	announce := make(chan DiscoveryAnnouncement, 64)
	b.mu.Lock()
	b.announce = announce
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.announce = nil
		b.mu.Unlock()
	}()

	req := RequestMessage{
		ID:        device.GenerateID(),
		Timestamp: time.Now().UTC(),
		Type:      RequestDiscover,
	}
	if err := b.publishRequest(req); err != nil {
		return nil, err
	}

	var found []device.Device
	for {
		select {
		case a := <-announce:
			d := a.Device(b.protocol)
			found = append(found, d)
			b.logger.Debug("device announced", "protocol", string(b.protocol), "name", a.Name)
		case <-ctx.Done():
			b.logger.Info("discovery window closed",
				"protocol", string(b.protocol),
				"devices", len(found),
			)
			return found, nil
		}
	}
}

// Connect asks the bridge to open a session with a device.
func (b *Bridge) Connect(ctx context.Context, d *device.Device) error {
	resp, err := b.request(ctx, RequestMessage{Type: RequestConnect, DeviceID: d.ID})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return nil
}

// Disconnect asks the bridge to close a device session. A session that
// never existed is not an error.
func (b *Bridge) Disconnect(ctx context.Context, d *device.Device) error {
	resp, err := b.request(ctx, RequestMessage{Type: RequestDisconnect, DeviceID: d.ID})
	if err != nil {
		return err
	}
	if !resp.Success {
		return fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}
	return nil
}

// Execute publishes a command and waits for the bridge's ack. A failed
// ack comes back in the result, not as an error.
func (b *Bridge) Execute(ctx context.Context, d *device.Device, cmd device.Command) (device.CommandResult, error) {
	if !b.client.IsConnected() {
		return device.CommandResult{}, ErrNotConnected
	}

	cmdJSON, err := device.MarshalCommand(cmd)
	if err != nil {
		return device.CommandResult{}, fmt.Errorf("encoding command: %w", err)
	}

	msg := CommandMessage{
		ID:        device.GenerateID(),
		Timestamp: time.Now().UTC(),
		DeviceID:  d.ID,
		Command:   cmdJSON,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return device.CommandResult{}, fmt.Errorf("encoding command message: %w", err)
	}

	ackCh := make(chan AckMessage, 1)
	b.mu.Lock()
	b.acks[msg.ID] = ackCh
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.acks, msg.ID)
		b.mu.Unlock()
	}()

	topic := b.topics.BridgeCommand(string(b.protocol), d.ID)
	if err := b.client.Publish(topic, payload, qosAtLeastOnce, false); err != nil {
		return device.CommandResult{}, fmt.Errorf("publishing command: %w", err)
	}

	select {
	case ack := <-ackCh:
		if ack.Success {
			return device.SuccessResult(d.ID, cmd.Type()), nil
		}
		code := ack.ErrorCode
		if code == 0 {
			code = device.CodeAdapterFailure
		}
		return device.FailureResult(d.ID, cmd.Type(), code, ack.Message), nil
	case <-ctx.Done():
		return device.CommandResult{}, ctx.Err()
	}
}

// QueryState asks the bridge for a device's live state.
func (b *Bridge) QueryState(ctx context.Context, d *device.Device) (*device.DeviceState, error) {
	resp, err := b.request(ctx, RequestMessage{Type: RequestQueryState, DeviceID: d.ID})
	if err != nil {
		return nil, err
	}
	if !resp.Success || resp.State == nil {
		return nil, fmt.Errorf("%w: %s", ErrRejected, resp.Message)
	}

	return &device.DeviceState{
		DeviceID:   d.ID,
		Timestamp:  resp.State.Timestamp,
		Properties: resp.State.Properties.DeepCopy(),
		Online:     resp.State.Online,
	}, nil
}

// Close removes the bridge's subscriptions.
func (b *Bridge) Close() error {
	p := string(b.protocol)
	var firstErr error
	for _, topic := range []string{
		b.topics.BridgeResponse(p, "+"),
		b.topics.BridgeAck(p, "+"),
		b.topics.BridgeDiscovery(p),
	} {
		if err := b.client.Unsubscribe(topic); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// request publishes a request and waits for its correlated response.
func (b *Bridge) request(ctx context.Context, req RequestMessage) (*ResponseMessage, error) {
	if !b.client.IsConnected() {
		return nil, ErrNotConnected
	}

	req.ID = device.GenerateID()
	req.Timestamp = time.Now().UTC()

	respCh := make(chan ResponseMessage, 1)
	b.mu.Lock()
	b.pending[req.ID] = respCh
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, req.ID)
		b.mu.Unlock()
	}()

	if err := b.publishRequest(req); err != nil {
		return nil, err
	}

	select {
	case resp := <-respCh:
		return &resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (b *Bridge) publishRequest(req RequestMessage) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	topic := b.topics.BridgeRequest(string(b.protocol), req.ID)
	if err := b.client.Publish(topic, payload, qosAtLeastOnce, false); err != nil {
		return fmt.Errorf("publishing request: %w", err)
	}
	return nil
}

// handleResponse routes a response payload to the waiting request.
func (b *Bridge) handleResponse(topic string, payload []byte) error {
	var resp ResponseMessage
	if err := json.Unmarshal(payload, &resp); err != nil {
		b.logger.Warn("dropping malformed response", "topic", topic, "error", err)
		return fmt.Errorf("%w: %v", ErrBadMessage, err)
	}

	b.mu.Lock()
	ch, ok := b.pending[resp.RequestID]
	b.mu.Unlock()
	if !ok {
		// Late response for an abandoned request
		b.logger.Debug("unmatched response", "request_id", resp.RequestID)
		return nil
	}

	select {
	case ch <- resp:
	default:
	}
	return nil
}

// handleAck routes a command ack to the waiting Execute call.
func (b *Bridge) handleAck(topic string, payload []byte) error {
	var ack AckMessage
	if err := json.Unmarshal(payload, &ack); err != nil {
		b.logger.Warn("dropping malformed ack", "topic", topic, "error", err)
		return fmt.Errorf("%w: %v", ErrBadMessage, err)
	}

	b.mu.Lock()
	ch, ok := b.acks[ack.CommandID]
	b.mu.Unlock()
	if !ok {
		b.logger.Debug("unmatched ack", "command_id", ack.CommandID)
		return nil
	}

	select {
	case ch <- ack:
	default:
	}
	return nil
}

// handleDiscovery feeds announcements to an active sweep. Outside a
// sweep announcements are dropped; passive discovery is not supported.
func (b *Bridge) handleDiscovery(topic string, payload []byte) error {
	var a DiscoveryAnnouncement
	if err := json.Unmarshal(payload, &a); err != nil {
		b.logger.Warn("dropping malformed announcement", "topic", topic, "error", err)
		return fmt.Errorf("%w: %v", ErrBadMessage, err)
	}

	b.mu.Lock()
	ch := b.announce
	b.mu.Unlock()
	if ch == nil {
		return nil
	}

	select {
	case ch <- a:
	default:
		b.logger.Warn("discovery buffer full, dropping announcement", "name", a.Name)
	}
	return nil
}
