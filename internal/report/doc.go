// Package report renders a scan result for Intune and for humans.
//
// Intune captures the first lines of a detection script's stdout, so the text
// format prints one line per dock followed by a single SUMMARY line. The JSON
// format carries the full document, including per-method diagnostics, and is
// the payload published over MQTT.
package report
