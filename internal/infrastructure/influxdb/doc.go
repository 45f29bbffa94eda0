// Package influxdb records scan results in InfluxDB v2.
//
// # Measurements
//
//   - dock_scan: one point per run (dock_count, compliant, failed_attempts)
//   - dock_inventory: one point per dock, tagged model and serial
//   - dock_detection: one point per method attempt, tagged method and result
//
// Every point carries site and host tags and the run ID as a field.
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	if err := client.WriteScan(ctx, scan); err != nil {
//	    log.Warn("influx write failed", "error", err)
//	}
//
// Writes are synchronous: a scan is on the server, or WriteScan returned an
// error, before the agent exits.
package influxdb
