// Package config handles loading and validating dockscan configuration.
//
// This package manages:
//   - Loading configuration from an optional YAML file
//   - Overriding with DOCKSCAN_* environment variables
//   - Validation of every section, reporting all problems at once
//   - Default value handling
//
// Security Considerations:
//   - MQTT passwords and InfluxDB tokens should be set via environment variables
//   - The agent runs as SYSTEM under Intune; keep the config file ACL'd accordingly
//
// Usage:
//
//	cfg, err := config.Load(`C:\ProgramData\DockScan\config.yaml`)
//	if err != nil {
//	    os.Exit(2)
//	}
//	fmt.Println(cfg.Detection.QueryTimeout)
package config
