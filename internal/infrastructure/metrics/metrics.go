package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ErrNoTextfilePath is returned by WriteTextfile when no path is configured.
var ErrNoTextfilePath = errors.New("metrics: textfile path is empty")

// Recorder holds the dockscan collectors on a private registry, so the
// textfile contains only dockscan series.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Recorder struct {
	registry *prometheus.Registry

	docksDetected     prometheus.Gauge
	compliant         prometheus.Gauge
	lastRun           prometheus.Gauge
	runsTotal         *prometheus.CounterVec
	attemptsTotal     *prometheus.CounterVec
	detectionDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		docksDetected: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dockscan_docks_detected",
			Help: "Number of docks found by the last run",
		}),
		compliant: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dockscan_compliant",
			Help: "1 if the last run was compliant, 0 otherwise",
		}),
		lastRun: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dockscan_last_run_timestamp_seconds",
			Help: "Unix time of the last completed run",
		}),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dockscan_runs_total",
				Help: "Total number of runs by the method that produced the inventory",
			},
			[]string{"source"},
		),
		attemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dockscan_detection_attempts_total",
				Help: "Total number of detection method invocations",
			},
			[]string{"method", "result"},
		),
		detectionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dockscan_detection_duration_seconds",
				Help:    "Time taken by each detection method",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
	}
}

// RecordAttempt records one detection method invocation.
// result is one of found, empty or failed.
func (r *Recorder) RecordAttempt(method, result string, duration time.Duration) {
	r.attemptsTotal.WithLabelValues(method, result).Inc()
	r.detectionDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRun records the outcome of a completed run.
func (r *Recorder) RecordRun(source string, docks int, compliant bool, at time.Time) {
	r.runsTotal.WithLabelValues(source).Inc()
	r.docksDetected.Set(float64(docks))
	if compliant {
		r.compliant.Set(1)
	} else {
		r.compliant.Set(0)
	}
	r.lastRun.Set(float64(at.Unix()))
}

// Registry exposes the underlying registry for tests and alternative exporters.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// WriteTextfile writes all metrics in the text exposition format for the
// node_exporter or windows_exporter textfile collector. The file is replaced
// atomically.
//
// Parameters:
//   - path: Destination file, which should end in .prom
//
// Returns:
//   - error: If the directory cannot be created or the write fails
func (r *Recorder) WriteTextfile(path string) error {
	if path == "" {
		return ErrNoTextfilePath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
