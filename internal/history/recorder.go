package history

import (
	"context"

	"github.com/hearthgrid/hearth-core/internal/device"
	"github.com/hearthgrid/hearth-core/internal/events"
)

// MetricWriter is the slice of the time-series client the recorder
// needs. Satisfied by *influxdb.Client.
type MetricWriter interface {
	WriteStateMetric(deviceID string, property string, value float64)
	WriteEventCount(eventType string, entityID string)
}

// Logger defines the logging interface used by the recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// subscribeBuffer sizes the recorder's bus subscription. State changes
// burst during scene activations, so this is generous.
const subscribeBuffer = 256

// Recorder streams hub events into the time-series store: property
// changes become state metrics, notable events become counters.
// Writes are fire-and-forget; history never blocks control flow.
type Recorder struct {
	bus    *events.Bus
	writer MetricWriter
	logger Logger
}

// NewRecorder creates a recorder reading from bus and writing to
// writer.
func NewRecorder(bus *events.Bus, writer MetricWriter) *Recorder {
	return &Recorder{
		bus:    bus,
		writer: writer,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// Run consumes bus events until ctx is cancelled or the bus closes.
func (r *Recorder) Run(ctx context.Context) {
	sub := r.bus.Subscribe(subscribeBuffer)
	defer sub.Unsubscribe()

	r.logger.Info("history recorder started")
	for {
		select {
		case e, ok := <-sub.C:
			if !ok {
				r.logger.Info("history recorder stopped: bus closed")
				return
			}
			r.record(e)
		case <-ctx.Done():
			r.logger.Info("history recorder stopped")
			return
		}
	}
}

// record maps one event to its time-series writes.
func (r *Recorder) record(e events.Event) {
	switch ev := e.(type) {
	case events.DeviceStateChanged:
		if v, ok := metricValue(ev.Current); ok {
			r.writer.WriteStateMetric(ev.DeviceID, ev.Property, v)
		}
	case events.DeviceError:
		r.writer.WriteEventCount(string(events.TypeDeviceError), ev.DeviceID)
	case events.DiscoveryFailed:
		r.writer.WriteEventCount(string(events.TypeDiscoveryFailed), ev.Protocol)
	case events.DeviceConnected:
		r.writer.WriteEventCount(string(events.TypeDeviceConnected), ev.DeviceID)
	case events.DeviceDisconnected:
		r.writer.WriteEventCount(string(events.TypeDeviceDisconnected), ev.DeviceID)
	case events.PermissionDenied:
		r.writer.WriteEventCount(string(events.TypePermissionDenied), ev.DeviceID)
	case events.AutomationTriggered:
		r.writer.WriteEventCount(string(events.TypeAutomationTriggered), ev.RuleID)
	case events.SceneActivated:
		r.writer.WriteEventCount(string(events.TypeSceneActivated), ev.SceneID)
	}
}

// metricValue converts a property value to a float64 metric. Booleans
// map to 0/1 so on/off history can be graphed; strings have no metric
// form and are skipped.
func metricValue(v device.Value) (float64, bool) {
	switch v.Kind {
	case device.KindNumber:
		return v.Num, true
	case device.KindBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}
