package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// BearerTokenLength is the only accepted length of relay.bearer_token.
const BearerTokenLength = 36

// Config is the root configuration structure for the edge bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Server        ServerConfig       `yaml:"server"`
	Relay         RelayConfig        `yaml:"relay"`
	Registrations RegistrationConfig `yaml:"registrations"`
	Admin         AdminConfig        `yaml:"admin"`
	MQTT          MQTTConfig         `yaml:"mqtt"`
	InfluxDB      InfluxDBConfig     `yaml:"influxdb"`
	Logging       LoggingConfig      `yaml:"logging"`

	// Path is the file the configuration was read from; empty when the
	// file was missing and defaults were used.
	Path string `yaml:"-"`

	// Warnings lists values that were discarded while loading.
	Warnings []string `yaml:"-"`
}

// ServerConfig contains the relay HTTP listener settings.
type ServerConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// TimeoutConfig contains HTTP timeout settings in seconds.
type TimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// RelayConfig contains outbound relay settings.
type RelayConfig struct {
	// CloudHost is the authority that receives the bearer token.
	CloudHost string `yaml:"cloud_host"`

	// BearerToken is the raw cloud API token. Never logged.
	BearerToken string `yaml:"bearer_token"`

	// ForwardTimeout bounds every outbound call, in seconds.
	ForwardTimeout int `yaml:"forward_timeout"`

	UserAgent string `yaml:"user_agent"`
}

// RegistrationConfig contains record store settings.
type RegistrationConfig struct {
	Path string `yaml:"path"`
}

// AdminConfig contains the optional admin listener settings.
type AdminConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Host      string          `yaml:"host"`
	Port      int             `yaml:"port"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
// When Path is set, log lines are appended to it in addition to Output.
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults); a missing file is skipped
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: EDGEBRIDGE_SECTION_KEY
// For example: EDGEBRIDGE_SERVER_PORT, EDGEBRIDGE_BEARER_TOKEN
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If the file cannot be read or parsed, or validation fails
func Load(path string) (*Config, error) {
	// Start with defaults
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Run on defaults, as a fresh install has no config file.
	case err != nil:
		return nil, fmt.Errorf("reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
		cfg.Path = path
	}

	// Apply environment variable overrides
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	cfg.normalize()

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8088,
			Timeouts: TimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		Relay: RelayConfig{
			CloudHost:      "api.smartthings.com",
			ForwardTimeout: 5,
			UserAgent:      "SmartThings Edge Hub",
		},
		Registrations: RegistrationConfig{
			Path: ".registrations",
		},
		Admin: AdminConfig{
			Host: "127.0.0.1",
			Port: 8089,
			WebSocket: WebSocketConfig{
				Path:           "/ws",
				MaxMessageSize: 8192,
				PingInterval:   30,
				PongTimeout:    10,
			},
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "edgebridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			TopicPrefix: "edgebridge",
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: EDGEBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) error {
	// Server
	if v := os.Getenv("EDGEBRIDGE_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("EDGEBRIDGE_SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("EDGEBRIDGE_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}

	// Relay
	if v := os.Getenv("EDGEBRIDGE_BEARER_TOKEN"); v != "" {
		cfg.Relay.BearerToken = v
	}

	// Registrations
	if v := os.Getenv("EDGEBRIDGE_REGISTRATIONS_PATH"); v != "" {
		cfg.Registrations.Path = v
	}

	// MQTT
	if v := os.Getenv("EDGEBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("EDGEBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("EDGEBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// InfluxDB
	if v := os.Getenv("EDGEBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("EDGEBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return nil
}

// normalize discards values the bridge tolerates but cannot use.
func (c *Config) normalize() {
	c.Relay.BearerToken = strings.TrimSpace(c.Relay.BearerToken)
	if t := c.Relay.BearerToken; t != "" && len(t) != BearerTokenLength {
		c.Warnings = append(c.Warnings, fmt.Sprintf(
			"relay.bearer_token has %d characters, want %d; token ignored", len(t), BearerTokenLength))
		c.Relay.BearerToken = ""
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Host != "" && net.ParseIP(c.Server.Host) == nil {
		errs = append(errs, "server.host must be an IP address or empty")
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}

	// Relay validation
	if c.Relay.ForwardTimeout < 1 {
		errs = append(errs, "relay.forward_timeout must be at least 1 second")
	}
	if c.Relay.CloudHost == "" {
		errs = append(errs, "relay.cloud_host is required")
	}

	// Registration store validation
	if c.Registrations.Path == "" {
		errs = append(errs, "registrations.path is required")
	}

	// Admin validation
	if c.Admin.Enabled {
		if c.Admin.Port < 1 || c.Admin.Port > 65535 {
			errs = append(errs, "admin.port must be between 1 and 65535")
		}
		if c.Admin.Port == c.Server.Port {
			errs = append(errs, "admin.port must differ from server.port")
		}
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when influxdb is enabled")
	}

	// Logging validation
	switch c.Logging.Output {
	case "stdout", "stderr", "none":
	default:
		errs = append(errs, "logging.output must be stdout, stderr, or none")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Authorization returns the Authorization header value for the cloud host,
// or "" when no usable token is configured.
func (r RelayConfig) Authorization() string {
	if r.BearerToken == "" {
		return ""
	}
	return "Bearer " + r.BearerToken
}

// GetForwardTimeout returns the outbound call timeout as a Duration.
func (c *Config) GetForwardTimeout() time.Duration {
	return time.Duration(c.Relay.ForwardTimeout) * time.Second
}

// GetReadTimeout returns the server read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the server write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the server idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.Server.Timeouts.Idle) * time.Second
}
