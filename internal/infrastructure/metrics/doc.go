// Package metrics exposes dockscan run metrics in the Prometheus textfile
// format.
//
// The agent is short-lived, so nothing is scraped over HTTP. Instead each run
// rewrites a .prom file that windows_exporter's textfile collector picks up.
//
// Series:
//
//	dockscan_docks_detected
//	dockscan_compliant
//	dockscan_last_run_timestamp_seconds
//	dockscan_runs_total{source}
//	dockscan_detection_attempts_total{method,result}
//	dockscan_detection_duration_seconds{method}
//
// Usage:
//
//	rec := metrics.NewRecorder()
//	rec.RecordAttempt("usb_enumeration", "found", 240*time.Millisecond)
//	rec.RecordRun("usb_enumeration", 1, true, time.Now())
//	err := rec.WriteTextfile(cfg.Metrics.TextfilePath)
package metrics
