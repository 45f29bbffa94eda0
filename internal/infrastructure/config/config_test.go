package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: "fleet-emea"
detection:
  query_timeout: 10s
  interval: 5m
  model_patterns:
    - "^Dell WD"
  usb_products:
    B0FF: "Dell WD-25TB5"
  methods:
    primary: false
    secondary: true
    usb: true
    thunderbolt: false
output:
  format: json
  path: "C:/ProgramData/DockScan/last.json"
compliance:
  fail_on_outdated_firmware: true
  minimum_firmware:
    "WD-19": "01.00.14"
database:
  enabled: true
  path: "/tmp/dockscan.db"
  retain_runs: 10
mqtt:
  enabled: true
  broker:
    host: "mqtt.fleet.local"
    port: 8883
    tls: true
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "fleet-emea" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "fleet-emea")
	}
	if cfg.Detection.QueryTimeout != 10*time.Second {
		t.Errorf("QueryTimeout = %v, want 10s", cfg.Detection.QueryTimeout)
	}
	if cfg.Detection.Interval != 5*time.Minute {
		t.Errorf("Interval = %v, want 5m", cfg.Detection.Interval)
	}
	if cfg.Detection.Methods.Primary || !cfg.Detection.Methods.USB {
		t.Errorf("Methods = %+v, want primary off and usb on", cfg.Detection.Methods)
	}
	if len(cfg.Detection.ModelPatterns) != 1 {
		t.Errorf("ModelPatterns = %v, want YAML list to replace defaults", cfg.Detection.ModelPatterns)
	}
	if cfg.Detection.USBProducts["B0FF"] != "Dell WD-25TB5" {
		t.Errorf("USBProducts = %v", cfg.Detection.USBProducts)
	}
	if !cfg.Compliance.FailOnOutdatedFirmware || cfg.Compliance.MinimumFirmware["WD-19"] != "01.00.14" {
		t.Errorf("Compliance = %+v", cfg.Compliance)
	}
	if cfg.Database.RetainRuns != 10 {
		t.Errorf("Database.RetainRuns = %d, want 10", cfg.Database.RetainRuns)
	}
	if cfg.MQTT.Broker.Port != 8883 || !cfg.MQTT.Broker.TLS {
		t.Errorf("MQTT.Broker = %+v", cfg.MQTT.Broker)
	}

	// Unset keys keep their defaults.
	if cfg.Detection.PowerShell != "powershell.exe" {
		t.Errorf("PowerShell = %q, want default", cfg.Detection.PowerShell)
	}
	if cfg.MQTT.QoS != 1 {
		t.Errorf("MQTT.QoS = %d, want default 1", cfg.MQTT.QoS)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}

	if cfg.Detection.QueryTimeout != 30*time.Second {
		t.Errorf("QueryTimeout = %v, want 30s", cfg.Detection.QueryTimeout)
	}
	m := cfg.Detection.Methods
	if !m.Primary || !m.Secondary || !m.USB || !m.Thunderbolt {
		t.Errorf("Methods = %+v, want all enabled", m)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Output.Format = %q, want text", cfg.Output.Format)
	}
	if cfg.Database.Enabled || cfg.MQTT.Enabled || cfg.InfluxDB.Enabled || cfg.Metrics.Enabled || cfg.Registry.Enabled {
		t.Error("optional sinks should be disabled by default")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
site:
  id: ""
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty site.id, got nil")
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DOCKSCAN_SITE_ID", "env-site")
	t.Setenv("DOCKSCAN_OUTPUT_FORMAT", "json")
	t.Setenv("DOCKSCAN_QUERY_TIMEOUT", "45s")
	t.Setenv("DOCKSCAN_DATABASE_ENABLED", "true")
	t.Setenv("DOCKSCAN_MQTT_PASSWORD", "s3cret")
	t.Setenv("DOCKSCAN_LOG_LEVEL", "debug")

	configPath := writeConfig(t, `
site:
  id: "file-site"
output:
  format: text
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "env-site" {
		t.Errorf("Site.ID = %q, want env-site", cfg.Site.ID)
	}
	if cfg.Output.Format != "json" {
		t.Errorf("Output.Format = %q, want json", cfg.Output.Format)
	}
	if cfg.Detection.QueryTimeout != 45*time.Second {
		t.Errorf("QueryTimeout = %v, want 45s", cfg.Detection.QueryTimeout)
	}
	if !cfg.Database.Enabled {
		t.Error("Database.Enabled = false, want true")
	}
	if cfg.MQTT.Auth.Password != "s3cret" {
		t.Errorf("MQTT.Auth.Password = %q, want s3cret", cfg.MQTT.Auth.Password)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoad_InvalidEnvOverride(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{"bad duration", "DOCKSCAN_QUERY_TIMEOUT", "soon"},
		{"bad bool", "DOCKSCAN_MQTT_ENABLED", "maybe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			_, err := Load("")
			if err == nil || !strings.Contains(err.Error(), tt.key) {
				t.Errorf("Load() error = %v, want mention of %s", err, tt.key)
			}
		})
	}
}

func TestDataDir(t *testing.T) {
	t.Setenv("ProgramData", filepath.FromSlash("/pd"))
	if got, want := DataDir(), filepath.Join(filepath.FromSlash("/pd"), "DockScan"); got != want {
		t.Errorf("DataDir() = %q, want %q", got, want)
	}

	t.Setenv("ProgramData", "")
	if got := DataDir(); got != "data" {
		t.Errorf("DataDir() = %q, want data", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(*Config) {},
		},
		{
			name:    "missing site ID",
			mutate:  func(c *Config) { c.Site.ID = "" },
			wantErr: "site.id",
		},
		{
			name:    "zero query timeout",
			mutate:  func(c *Config) { c.Detection.QueryTimeout = 0 },
			wantErr: "detection.query_timeout",
		},
		{
			name:    "interval too short",
			mutate:  func(c *Config) { c.Detection.Interval = 10 * time.Millisecond },
			wantErr: "detection.interval",
		},
		{
			name:    "no methods",
			mutate:  func(c *Config) { c.Detection.Methods = MethodsConfig{} },
			wantErr: "detection.methods",
		},
		{
			name:    "bad model pattern",
			mutate:  func(c *Config) { c.Detection.ModelPatterns = []string{"("} },
			wantErr: "detection.model_patterns",
		},
		{
			name:    "bad sub-interface pattern",
			mutate:  func(c *Config) { c.Detection.SubInterfacePattern = "[" },
			wantErr: "detection.sub_interface_pattern",
		},
		{
			name:    "bad usb product id",
			mutate:  func(c *Config) { c.Detection.USBProducts = map[string]string{"XYZ": "Dock"} },
			wantErr: "detection.usb_products",
		},
		{
			name:    "unknown output format",
			mutate:  func(c *Config) { c.Output.Format = "xml" },
			wantErr: "output.format",
		},
		{
			name:    "empty minimum firmware",
			mutate:  func(c *Config) { c.Compliance.MinimumFirmware = map[string]string{"WD-19": " "} },
			wantErr: "compliance.minimum_firmware",
		},
		{
			name: "database enabled without path",
			mutate: func(c *Config) {
				c.Database.Enabled = true
				c.Database.Path = ""
			},
			wantErr: "database.path",
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: "mqtt.qos",
		},
		{
			name: "mqtt port out of range",
			mutate: func(c *Config) {
				c.MQTT.Enabled = true
				c.MQTT.Broker.Port = 70000
			},
			wantErr: "mqtt.broker.port",
		},
		{
			name: "mqtt disabled ignores port",
			mutate: func(c *Config) {
				c.MQTT.Broker.Port = 0
			},
		},
		{
			name: "influxdb enabled without bucket",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://localhost:8086"
				c.InfluxDB.Org = "it"
			},
			wantErr: "influxdb.org",
		},
		{
			name: "influxdb timeout too short",
			mutate: func(c *Config) {
				c.InfluxDB.Enabled = true
				c.InfluxDB.URL = "http://localhost:8086"
				c.InfluxDB.Org = "it"
				c.InfluxDB.Bucket = "endpoints"
				c.InfluxDB.Timeout = 0
			},
			wantErr: "influxdb.timeout",
		},
		{
			name: "metrics textfile extension",
			mutate: func(c *Config) {
				c.Metrics.Enabled = true
				c.Metrics.TextfilePath = "dockscan.txt"
			},
			wantErr: "metrics.textfile_path",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "trace" },
			wantErr: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_ValidateReportsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Site.ID = ""
	cfg.MQTT.QoS = 9

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() expected error")
	}
	if !strings.Contains(err.Error(), "site.id") || !strings.Contains(err.Error(), "mqtt.qos") {
		t.Errorf("Validate() error = %v, want both problems", err)
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "..", "configs", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Load(example) error = %v", err)
	}
	if cfg.Site.ID != "emea-hq" {
		t.Errorf("Site.ID = %q, want emea-hq", cfg.Site.ID)
	}
	if cfg.Detection.Interval != 15*time.Minute {
		t.Errorf("Interval = %v, want 15m", cfg.Detection.Interval)
	}
	if got := cfg.Compliance.MinimumFirmware["WD-19"]; got != "01.00.20" {
		t.Errorf("MinimumFirmware[WD-19] = %q, want 01.00.20", got)
	}
}
