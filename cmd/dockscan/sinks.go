package main

import (
	"github.com/nerrad567/dockscan/internal/dock"
	"github.com/nerrad567/dockscan/internal/infrastructure/influxdb"
	"github.com/nerrad567/dockscan/internal/report"
)

// attemptResult labels an attempt as failed, found or empty.
func attemptResult(a dock.Attempt) string {
	switch {
	case a.Failed():
		return "failed"
	case a.Accepted > 0:
		return "found"
	default:
		return "empty"
	}
}

// influxScan flattens a run for the influxdb package.
func influxScan(site string, doc report.Document, inv dock.Inventory) influxdb.Scan {
	s := influxdb.Scan{
		Site:      site,
		Host:      doc.Hostname,
		RunID:     doc.RunID,
		Source:    inv.Source.String(),
		Compliant: doc.Compliant,
		Timestamp: doc.Timestamp,
		Docks:     make([]influxdb.Dock, 0, len(inv.Entries)),
		Attempts:  make([]influxdb.Attempt, 0, len(inv.Attempts)),
	}
	for _, e := range inv.Entries {
		s.Docks = append(s.Docks, influxdb.Dock{
			Model:       e.Model,
			Serial:      e.SerialNumber,
			Firmware:    e.FirmwareVersion,
			Status:      e.Status,
			MergedCount: e.MergedCount,
		})
	}
	for _, a := range inv.Attempts {
		s.Attempts = append(s.Attempts, influxdb.Attempt{
			Method:       a.Method.String(),
			Observations: a.Observations,
			Accepted:     a.Accepted,
			Failed:       a.Failed(),
			Duration:     a.Duration,
		})
	}
	return s
}
