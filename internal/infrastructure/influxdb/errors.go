package influxdb

import "errors"

var (
	// ErrDisabled is returned by Connect when influxdb.enabled is false.
	ErrDisabled = errors.New("influxdb: disabled")

	// ErrConnectionFailed means the server did not answer the startup ping.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrWriteFailed wraps the server's rejection of a scan.
	ErrWriteFailed = errors.New("influxdb: write failed")

	// ErrInvalidScan marks a scan that cannot be tagged.
	ErrInvalidScan = errors.New("influxdb: invalid scan")

	// ErrClosed is returned by WriteScan after Close.
	ErrClosed = errors.New("influxdb: client closed")
)
