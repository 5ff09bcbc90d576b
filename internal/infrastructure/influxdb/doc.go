// Package influxdb provides InfluxDB connectivity for Hearth Core.
//
// It wraps the official influxdb-client-go v2 library with the two
// measurements the hub records: device state samples and event counts.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Numeric device state history (brightness, temperature, volume)
//   - Automation activity (rule firings, scene activations, errors)
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "hearth",
//	    Bucket: "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteStateMetric("light-living", "brightness", 80)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking; batch errors arrive through the
// SetOnError callback. Connect errors are returned directly.
package influxdb
