package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by dockscan.
const (
	MeasurementScan      = "dock_scan"
	MeasurementDock      = "dock_inventory"
	MeasurementDetection = "dock_detection"
)

// Scan is one resolved run flattened for time-series storage.
type Scan struct {
	Site      string
	Host      string
	RunID     string
	Source    string
	Compliant bool
	Timestamp time.Time
	Docks     []Dock
	Attempts  []Attempt
}

// Dock is one deduplicated dock in a Scan.
type Dock struct {
	Model       string
	Serial      string
	Firmware    string
	Status      string
	MergedCount int
}

// Attempt is one detection method invocation in a Scan.
type Attempt struct {
	Method       string
	Observations int
	Accepted     int
	Failed       bool
	Duration     time.Duration
}

// Result returns the attempt outcome used as the result tag.
func (a Attempt) Result() string {
	switch {
	case a.Failed:
		return "failed"
	case a.Accepted > 0:
		return "found"
	default:
		return "empty"
	}
}

// ScanPoints converts a Scan into points, all stamped with the scan time:
//
//   - one dock_scan point with the dock count and compliance
//   - one dock_inventory point per dock, tagged by model and serial
//   - one dock_detection point per attempted method
//
// The run ID is a field, not a tag, to keep series cardinality bounded.
func ScanPoints(s Scan) []*write.Point {
	base := map[string]string{
		"site": s.Site,
		"host": s.Host,
	}
	ts := s.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	points := make([]*write.Point, 0, 1+len(s.Docks)+len(s.Attempts))

	failed := 0
	for _, a := range s.Attempts {
		if a.Failed {
			failed++
		}
	}
	points = append(points, write.NewPoint(
		MeasurementScan,
		withTags(base, "source", s.Source),
		map[string]interface{}{
			"dock_count":      len(s.Docks),
			"compliant":       s.Compliant,
			"attempts":        len(s.Attempts),
			"failed_attempts": failed,
			"run_id":          s.RunID,
		},
		ts,
	))

	for _, d := range s.Docks {
		points = append(points, write.NewPoint(
			MeasurementDock,
			withTags(base, "model", d.Model, "serial", d.Serial, "method", s.Source),
			map[string]interface{}{
				"firmware":     d.Firmware,
				"status":       d.Status,
				"merged_count": d.MergedCount,
				"run_id":       s.RunID,
			},
			ts,
		))
	}

	for _, a := range s.Attempts {
		points = append(points, write.NewPoint(
			MeasurementDetection,
			withTags(base, "method", a.Method, "result", a.Result()),
			map[string]interface{}{
				"observations": a.Observations,
				"accepted":     a.Accepted,
				"duration_ms":  float64(a.Duration) / float64(time.Millisecond),
			},
			ts,
		))
	}

	return points
}

// withTags copies base and adds key/value pairs.
func withTags(base map[string]string, kv ...string) map[string]string {
	tags := make(map[string]string, len(base)+len(kv)/2)
	for k, v := range base {
		tags[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		tags[kv[i]] = kv[i+1]
	}
	return tags
}
