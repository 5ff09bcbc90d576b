package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteStateMetric records one numeric device property sample in the
// device_state measurement. Non-blocking; the point is batched.
func (c *Client) WriteStateMetric(deviceID string, property string, value float64) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"device_state",
		map[string]string{"device_id": deviceID, "property": property},
		map[string]interface{}{"value": value},
		time.Now(),
	))
}

// WriteEventCount records one occurrence of an event type against the
// rule, scene, device or protocol it concerns. Counts in the events
// measurement back the activity trend queries.
func (c *Client) WriteEventCount(eventType string, entityID string) {
	if !c.IsConnected() {
		return
	}

	c.writeAPI.WritePoint(write.NewPoint(
		"events",
		map[string]string{"event_type": eventType, "entity_id": entityID},
		map[string]interface{}{"count": 1},
		time.Now(),
	))
}
