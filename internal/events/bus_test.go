package events

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hearthgrid/hearth-core/internal/device"
)

// drain collects all currently-pending events from a subscription.
func drain(sub *Subscription) []Event {
	var got []Event
	for {
		select {
		case e, ok := <-sub.C:
			if !ok {
				return got
			}
			got = append(got, e)
		default:
			return got
		}
	}
}

func TestPublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe(0)
	defer sub.Unsubscribe()

	bus.Publish(NewDeviceConnected("light-1"))

	select {
	case e := <-sub.C:
		dc, ok := e.(DeviceConnected)
		if !ok {
			t.Fatalf("event type = %T, want DeviceConnected", e)
		}
		if dc.DeviceID != "light-1" {
			t.Errorf("DeviceID = %q, want light-1", dc.DeviceID)
		}
		if dc.OccurredAt().IsZero() {
			t.Error("OccurredAt() is zero")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestMultipleSubscribersReceiveAll(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	a := bus.Subscribe(0)
	b := bus.Subscribe(0)

	for i := 0; i < 5; i++ {
		bus.Publish(NewDeviceConnected(fmt.Sprintf("device-%d", i)))
	}

	if got := drain(a); len(got) != 5 {
		t.Errorf("subscriber a received %d events, want 5", len(got))
	}
	if got := drain(b); len(got) != 5 {
		t.Errorf("subscriber b received %d events, want 5", len(got))
	}
}

func TestReplayOnSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	for i := 0; i < 5; i++ {
		bus.Publish(NewDeviceConnected(fmt.Sprintf("device-%d", i)))
	}

	sub := bus.Subscribe(0)
	got := drain(sub)

	if len(got) != 5 {
		t.Fatalf("replay delivered %d events, want 5", len(got))
	}
	// Replay preserves publish order
	first, ok := got[0].(DeviceConnected)
	if !ok || first.DeviceID != "device-0" {
		t.Errorf("first replayed event = %+v, want device-0", got[0])
	}
}

func TestReplayCappedAtDepth(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	total := ReplayDepth + 10
	for i := 0; i < total; i++ {
		bus.Publish(NewDeviceConnected(fmt.Sprintf("device-%d", i)))
	}

	sub := bus.Subscribe(0)
	got := drain(sub)

	if len(got) != ReplayDepth {
		t.Fatalf("replay delivered %d events, want %d", len(got), ReplayDepth)
	}
	// Oldest surviving event is total-ReplayDepth
	first := got[0].(DeviceConnected)
	want := fmt.Sprintf("device-%d", total-ReplayDepth)
	if first.DeviceID != want {
		t.Errorf("first replayed event = %q, want %q", first.DeviceID, want)
	}
}

func TestSubscribeLiveSkipsBacklog(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	for i := 0; i < 5; i++ {
		bus.Publish(NewDeviceConnected(fmt.Sprintf("device-%d", i)))
	}

	sub := bus.SubscribeLive(0)
	if got := drain(sub); len(got) != 0 {
		t.Fatalf("live subscription replayed %d events, want 0", len(got))
	}

	// Still receives everything published afterwards
	bus.Publish(NewDeviceConnected("device-live"))
	got := drain(sub)
	if len(got) != 1 {
		t.Fatalf("live subscription received %d events, want 1", len(got))
	}
	if dc := got[0].(DeviceConnected); dc.DeviceID != "device-live" {
		t.Errorf("DeviceID = %q, want device-live", dc.DeviceID)
	}
}

func TestSlowSubscriberDropsOldest(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe(ReplayDepth) // Minimum capacity

	// Overfill: capacity ReplayDepth, publish twice as many
	total := ReplayDepth * 2
	for i := 0; i < total; i++ {
		bus.Publish(NewDeviceConnected(fmt.Sprintf("device-%d", i)))
	}

	got := drain(sub)
	if len(got) != ReplayDepth {
		t.Fatalf("slow subscriber holds %d events, want %d", len(got), ReplayDepth)
	}
	// Newest event survived
	last := got[len(got)-1].(DeviceConnected)
	if want := fmt.Sprintf("device-%d", total-1); last.DeviceID != want {
		t.Errorf("newest event = %q, want %q", last.DeviceID, want)
	}
	if bus.Dropped() == 0 {
		t.Error("Dropped() = 0 after overflow")
	}
}

func TestPublishNeverBlocks(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	_ = bus.Subscribe(ReplayDepth) // Never drained

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(NewDeviceConnected("device"))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	sub := bus.Subscribe(0)
	if bus.SubscriberCount() != 1 {
		t.Fatalf("SubscriberCount() = %d, want 1", bus.SubscriberCount())
	}

	sub.Unsubscribe()
	if bus.SubscriberCount() != 0 {
		t.Errorf("SubscriberCount() = %d after Unsubscribe, want 0", bus.SubscriberCount())
	}

	// Channel closed
	if _, ok := <-sub.C; ok {
		t.Error("channel still open after Unsubscribe")
	}

	// Idempotent
	sub.Unsubscribe()
}

func TestCloseBus(t *testing.T) {
	bus := NewBus()
	sub := bus.Subscribe(0)

	bus.Close()

	if _, ok := <-sub.C; ok {
		t.Error("channel still open after Close")
	}

	// Publishing after Close is a silent no-op
	bus.Publish(NewDeviceConnected("light-1"))

	// Subscribing after Close yields a closed channel
	late := bus.Subscribe(0)
	if _, ok := <-late.C; ok {
		t.Error("late subscription channel open after Close")
	}
}

func TestConcurrentPublishSubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				bus.Publish(NewDeviceStateChanged(
					fmt.Sprintf("device-%d", n),
					"power",
					device.BoolValue(false),
					device.BoolValue(true),
					true,
				))
			}
		}(i)

		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := bus.Subscribe(0)
			drain(sub)
			sub.Unsubscribe()
		}()
	}
	wg.Wait()
}

func TestEventTypes(t *testing.T) {
	d := device.Device{ID: "d1", Name: "Lamp"}
	tests := []struct {
		e    Event
		want EventType
	}{
		{NewDeviceDiscovered(d), TypeDeviceDiscovered},
		{NewDeviceConnected("d1"), TypeDeviceConnected},
		{NewDeviceDisconnected("d1", "requested"), TypeDeviceDisconnected},
		{NewDeviceStateChanged("d1", "power", device.BoolValue(false), device.BoolValue(true), true), TypeDeviceStateChanged},
		{NewDeviceUpdated(d, nil), TypeDeviceUpdated},
		{NewDeviceError("d1", "boom"), TypeDeviceError},
		{NewDiscoveryFailed("zigbee", "timed out"), TypeDiscoveryFailed},
		{NewSystemStateChanged("idle", "busy"), TypeSystemStateChanged},
		{NewSystemInitialized("hub-001"), TypeSystemInitialized},
		{NewSystemShutdown("signal"), TypeSystemShutdown},
		{NewPermissionDenied("d1", device.CommandLock), TypePermissionDenied},
		{NewAutomationTriggered("r1", "Morning", true), TypeAutomationTriggered},
		{NewSceneActivated("s1", "Movie Night", false), TypeSceneActivated},
	}

	for _, tt := range tests {
		if tt.e.Type() != tt.want {
			t.Errorf("Type() = %v, want %v", tt.e.Type(), tt.want)
		}
		if tt.e.OccurredAt().IsZero() {
			t.Errorf("%v OccurredAt() is zero", tt.want)
		}
	}
}
