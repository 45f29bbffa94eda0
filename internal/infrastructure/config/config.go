package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DOCKSCAN_"

// Config is the root configuration structure for dockscan.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site       SiteConfig       `yaml:"site"`
	Detection  DetectionConfig  `yaml:"detection"`
	Output     OutputConfig     `yaml:"output"`
	Compliance ComplianceConfig `yaml:"compliance"`
	Registry   RegistryConfig   `yaml:"registry"`
	Database   DatabaseConfig   `yaml:"database"`
	MQTT       MQTTConfig       `yaml:"mqtt"`
	InfluxDB   InfluxDBConfig   `yaml:"influxdb"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SiteConfig identifies the fleet or tenant the endpoint belongs to.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// DetectionConfig controls the detection methods and resolution.
type DetectionConfig struct {
	// QueryTimeout bounds each CIM query.
	QueryTimeout time.Duration `yaml:"query_timeout"`

	// Interval is the delay between scans in watch mode.
	Interval time.Duration `yaml:"interval"`

	// PowerShell is the executable used for CIM queries.
	PowerShell string `yaml:"powershell"`

	// ModelPatterns restrict observations to dock models. Empty disables the filter.
	ModelPatterns []string `yaml:"model_patterns"`

	// USBProducts adds or overrides USB product ID to model mappings.
	USBProducts map[string]string `yaml:"usb_products"`

	// SubInterfacePattern replaces the default &MI_xx interface marker.
	SubInterfacePattern string `yaml:"sub_interface_pattern"`

	Methods MethodsConfig `yaml:"methods"`
}

// MethodsConfig enables individual detection methods.
type MethodsConfig struct {
	Primary     bool `yaml:"primary"`
	Secondary   bool `yaml:"secondary"`
	USB         bool `yaml:"usb"`
	Thunderbolt bool `yaml:"thunderbolt"`
}

// OutputConfig controls the report written for Intune.
type OutputConfig struct {
	Format string `yaml:"format"`
	Path   string `yaml:"path"`
}

// ComplianceConfig contains the firmware policy.
type ComplianceConfig struct {
	FailOnOutdatedFirmware bool              `yaml:"fail_on_outdated_firmware"`
	MinimumFirmware        map[string]string `yaml:"minimum_firmware"`
}

// RegistryConfig controls the HKLM result values.
type RegistryConfig struct {
	Enabled bool   `yaml:"enabled"`
	KeyPath string `yaml:"key_path"`
}

// DatabaseConfig contains SQLite scan history settings.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// RetainRuns is how many runs to keep. Zero keeps everything.
	RetainRuns int `yaml:"retain_runs"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings, in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`

	// Timeout bounds the connect ping and each scan write.
	Timeout time.Duration `yaml:"timeout"`
}

// MetricsConfig controls the Prometheus textfile.
type MetricsConfig struct {
	Enabled      bool   `yaml:"enabled"`
	TextfilePath string `yaml:"textfile_path"`
}

// LoggingConfig contains logging settings. Output is stdout, stderr or a file path.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load builds the configuration.
//
// The loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, when path is non-empty
//  3. Environment variables (DOCKSCAN_SECTION_KEY)
//
// Intune deploys the binary without a config file, so an empty path is valid
// and yields defaults plus environment overrides.
//
// Parameters:
//   - path: Path to the YAML configuration file, or ""
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("applying environment overrides: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	dataDir := DataDir()
	return &Config{
		Site: SiteConfig{
			ID:   "default",
			Name: "DockScan",
		},
		Detection: DetectionConfig{
			QueryTimeout:  30 * time.Second,
			Interval:      15 * time.Minute,
			PowerShell:    "powershell.exe",
			ModelPatterns: []string{`(?i)^Dell\s+(WD|TB|UD|HD|D\d{4}|Thunderbolt|Dock)`, `(?i)dock`},
			Methods: MethodsConfig{
				Primary:     true,
				Secondary:   true,
				USB:         true,
				Thunderbolt: true,
			},
		},
		Output: OutputConfig{
			Format: "text",
		},
		Registry: RegistryConfig{
			KeyPath: `SOFTWARE\DockScan`,
		},
		Database: DatabaseConfig{
			Path:        filepath.Join(dataDir, "dockscan.db"),
			WALMode:     true,
			BusyTimeout: 5,
			RetainRuns:  500,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host: "localhost",
				Port: 1883,
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Timeout: 10 * time.Second,
		},
		Metrics: MetricsConfig{
			TextfilePath: filepath.Join(dataDir, "metrics", "dockscan.prom"),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stderr",
		},
	}
}

// DataDir returns the agent's data directory: %ProgramData%\DockScan on
// Windows, ./data elsewhere.
func DataDir() string {
	if pd := os.Getenv("ProgramData"); pd != "" {
		return filepath.Join(pd, "DockScan")
	}
	return "data"
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DOCKSCAN_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"SITE_ID":                &cfg.Site.ID,
		"POWERSHELL":             &cfg.Detection.PowerShell,
		"OUTPUT_FORMAT":          &cfg.Output.Format,
		"OUTPUT_PATH":            &cfg.Output.Path,
		"DATABASE_PATH":          &cfg.Database.Path,
		"MQTT_HOST":              &cfg.MQTT.Broker.Host,
		"MQTT_USERNAME":          &cfg.MQTT.Auth.Username,
		"MQTT_PASSWORD":          &cfg.MQTT.Auth.Password,
		"INFLUXDB_URL":           &cfg.InfluxDB.URL,
		"INFLUXDB_TOKEN":         &cfg.InfluxDB.Token,
		"METRICS_TEXTFILE_PATH":  &cfg.Metrics.TextfilePath,
		"LOG_LEVEL":              &cfg.Logging.Level,
		"LOG_FORMAT":             &cfg.Logging.Format,
		"REGISTRY_KEY_PATH":      &cfg.Registry.KeyPath,
		"DETECTION_SUBINTERFACE": &cfg.Detection.SubInterfacePattern,
	}
	for key, dst := range strs {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"REGISTRY_ENABLED": &cfg.Registry.Enabled,
		"DATABASE_ENABLED": &cfg.Database.Enabled,
		"MQTT_ENABLED":     &cfg.MQTT.Enabled,
		"INFLUXDB_ENABLED": &cfg.InfluxDB.Enabled,
		"METRICS_ENABLED":  &cfg.Metrics.Enabled,
	}
	var errs []string
	for key, dst := range bools {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
			continue
		}
		*dst = b
	}

	durations := map[string]*time.Duration{
		"QUERY_TIMEOUT":    &cfg.Detection.QueryTimeout,
		"INTERVAL":         &cfg.Detection.Interval,
		"INFLUXDB_TIMEOUT": &cfg.InfluxDB.Timeout,
	}
	for key, dst := range durations {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s%s: %v", EnvPrefix, key, err))
			continue
		}
		*dst = d
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Detection
	if c.Detection.QueryTimeout <= 0 {
		errs = append(errs, "detection.query_timeout must be positive")
	}
	if c.Detection.Interval < time.Second {
		errs = append(errs, "detection.interval must be at least 1s")
	}
	if c.Detection.PowerShell == "" {
		errs = append(errs, "detection.powershell is required")
	}
	m := c.Detection.Methods
	if !m.Primary && !m.Secondary && !m.USB && !m.Thunderbolt {
		errs = append(errs, "detection.methods must enable at least one method")
	}
	for _, p := range c.Detection.ModelPatterns {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Sprintf("detection.model_patterns: %q does not compile", p))
		}
	}
	if p := c.Detection.SubInterfacePattern; p != "" {
		if _, err := regexp.Compile(p); err != nil {
			errs = append(errs, fmt.Sprintf("detection.sub_interface_pattern: %q does not compile", p))
		}
	}
	for pid := range c.Detection.USBProducts {
		if !usbProductID.MatchString(pid) {
			errs = append(errs, fmt.Sprintf("detection.usb_products: %q is not a 4-digit hex product id", pid))
		}
	}

	// Output
	switch strings.ToLower(c.Output.Format) {
	case "json", "text":
	default:
		errs = append(errs, "output.format must be json or text")
	}

	// Compliance
	for pattern, minimum := range c.Compliance.MinimumFirmware {
		if _, err := regexp.Compile(pattern); err != nil {
			errs = append(errs, fmt.Sprintf("compliance.minimum_firmware: %q does not compile", pattern))
		}
		if strings.TrimSpace(minimum) == "" {
			errs = append(errs, fmt.Sprintf("compliance.minimum_firmware: %q has no version", pattern))
		}
	}

	// Registry
	if c.Registry.Enabled && c.Registry.KeyPath == "" {
		errs = append(errs, "registry.key_path is required when registry is enabled")
	}

	// Database
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required when database is enabled")
	}
	if c.Database.RetainRuns < 0 {
		errs = append(errs, "database.retain_runs must not be negative")
	}

	// MQTT
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled {
		if c.MQTT.Broker.Host == "" {
			errs = append(errs, "mqtt.broker.host is required when mqtt is enabled")
		}
		if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
			errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
		}
	}

	// InfluxDB
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when influxdb is enabled")
		}
		if c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.org and influxdb.bucket are required when influxdb is enabled")
		}
		if c.InfluxDB.Timeout < time.Second {
			errs = append(errs, "influxdb.timeout must be at least 1s")
		}
	}

	// Metrics
	if c.Metrics.Enabled && !strings.HasSuffix(c.Metrics.TextfilePath, ".prom") {
		errs = append(errs, "metrics.textfile_path must end in .prom when metrics are enabled")
	}

	// Logging
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "logging.level must be debug, info, warn or error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

var usbProductID = regexp.MustCompile(`^[0-9A-Fa-f]{4}$`)
