package influxdb

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/nerrad567/dockscan/internal/infrastructure/config"
)

// defaultTimeout applies when influxdb.timeout is unset.
const defaultTimeout = 10 * time.Second

// Client writes scan results to one InfluxDB bucket.
//
// Each WriteScan is a single blocking request, so a process that exits right
// after its scan has nothing left in a buffer. Scans in watch mode run one
// after another; Close must not race a write.
type Client struct {
	client  influxdb2.Client
	writer  api.WriteAPIBlocking
	bucket  string
	timeout time.Duration
}

// Connect creates a client and pings the server.
//
// Parameters:
//   - ctx: Bounds the ping together with cfg.Timeout
//   - cfg: InfluxDB settings; URL, org and bucket are required
//
// Returns:
//   - *Client: Client ready for WriteScan
//   - error: ErrDisabled, or ErrConnectionFailed when the server cannot be reached
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	// The client library counts its HTTP timeout in whole seconds.
	seconds := max(uint(timeout/time.Second), 1) // #nosec G115 -- timeout is positive

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().SetHTTPRequestTimeout(seconds),
	)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	healthy, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %s: %w", ErrConnectionFailed, cfg.URL, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: %s did not answer ping", ErrConnectionFailed, cfg.URL)
	}

	return &Client{
		client:  client,
		writer:  client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:  cfg.Bucket,
		timeout: timeout,
	}, nil
}

// WriteScan sends every point of s in one request and waits for the server
// to accept them.
//
// Returns:
//   - error: ErrInvalidScan for a scan without a host, ErrClosed after Close,
//     or ErrWriteFailed wrapping the server's answer
func (c *Client) WriteScan(ctx context.Context, s Scan) error {
	if c == nil || c.writer == nil {
		return ErrClosed
	}
	if s.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidScan)
	}

	writeCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	points := ScanPoints(s)
	if err := c.writer.WritePoint(writeCtx, points...); err != nil {
		return fmt.Errorf("%w: %d points to %s: %w", ErrWriteFailed, len(points), c.bucket, err)
	}
	return nil
}

// Close releases the HTTP client. It is safe on a nil or closed client.
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	c.client.Close()
	c.client = nil
	c.writer = nil
	return nil
}
