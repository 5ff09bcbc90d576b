package influxdb

import "errors"

var (
	// ErrConnectionFailed wraps a failed ping during Connect.
	ErrConnectionFailed = errors.New("influxdb: connect failed")

	// ErrDisabled means history recording is turned off in config.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
