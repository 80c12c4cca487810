// Package config handles loading and validating fleetglint configuration.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ErrConfigFileNotFound is returned by Load when the specified config file does not exist.
var ErrConfigFileNotFound = errors.New("config file not found")

// EnvPrefix prefixes every environment override.
const EnvPrefix = "FLEETGLINT_"

// Config is the top-level fleetglint configuration.
type Config struct {
	Listen           string               `yaml:"listen"`
	DBPath           string               `yaml:"db_path"`
	DataDir          string               `yaml:"data_dir"`
	LogLevel         string               `yaml:"log_level"`
	LogFormat        string               `yaml:"log_format"`
	ReportRetention  Duration             `yaml:"report_retention"`
	AlertRetention   Duration             `yaml:"alert_retention"`
	CommandRetention Duration             `yaml:"command_retention"`
	PruneInterval    Duration             `yaml:"prune_interval"`
	RateLimit        RateLimitConfig      `yaml:"rate_limit"`
	Commands         CommandsConfig       `yaml:"commands"`
	Liveness         LivenessConfig       `yaml:"liveness"`
	NotifyWorkers    int                  `yaml:"notify_workers"`
	AdminToken       string               `yaml:"admin_token"`
	TrustProxy       bool                 `yaml:"trust_proxy"`
	Notifications    []NotificationConfig `yaml:"notifications"`
}

// RateLimitConfig bounds requests per client IP over a sliding window.
type RateLimitConfig struct {
	Requests int      `yaml:"requests"`
	Window   Duration `yaml:"window"`
}

// CommandsConfig controls the remote command queue.
type CommandsConfig struct {
	LeaseTimeout Duration `yaml:"lease_timeout"` // 0 disables lease expiry
	ResultLimit  int      `yaml:"result_limit"`
}

// LivenessConfig controls the offline watcher.
type LivenessConfig struct {
	Interval Duration `yaml:"interval"`
}

// NotificationConfig describes a static notification target.
type NotificationConfig struct {
	Type    string            `yaml:"type"` // "ntfy" or "webhook"
	URL     string            `yaml:"url"`
	Topic   string            `yaml:"topic,omitempty"`   // ntfy only
	Method  string            `yaml:"method,omitempty"`  // webhook only
	Headers map[string]string `yaml:"headers,omitempty"` // webhook only
}

// Duration wraps time.Duration with YAML string parsing support.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Load reads configuration from a YAML file, then applies FLEETGLINT_*
// environment overrides. An empty path means defaults plus environment only.
// If a path is given and the file does not exist, ErrConfigFileNotFound is
// returned.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(expandEnvVars(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen is required")
	}
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("log_format must be one of: text, json")
	}
	if c.ReportRetention.Duration <= 0 {
		return fmt.Errorf("report_retention must be > 0")
	}
	if c.AlertRetention.Duration <= 0 {
		return fmt.Errorf("alert_retention must be > 0")
	}
	if c.CommandRetention.Duration <= 0 {
		return fmt.Errorf("command_retention must be > 0")
	}
	if c.PruneInterval.Duration <= 0 {
		return fmt.Errorf("prune_interval must be > 0")
	}
	if c.RateLimit.Requests < 1 {
		return fmt.Errorf("rate_limit.requests must be >= 1")
	}
	if c.RateLimit.Window.Duration <= 0 {
		return fmt.Errorf("rate_limit.window must be > 0")
	}
	if c.Commands.LeaseTimeout.Duration < 0 {
		return fmt.Errorf("commands.lease_timeout must be >= 0")
	}
	if c.Commands.ResultLimit < 1 {
		return fmt.Errorf("commands.result_limit must be >= 1")
	}
	if c.Liveness.Interval.Duration <= 0 {
		return fmt.Errorf("liveness.interval must be > 0")
	}
	if c.NotifyWorkers < 1 {
		return fmt.Errorf("notify_workers must be >= 1")
	}

	for i, n := range c.Notifications {
		switch n.Type {
		case "ntfy":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for ntfy", i)
			}
			if n.Topic == "" {
				return fmt.Errorf("notifications[%d]: topic is required for ntfy", i)
			}
		case "webhook":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for webhook", i)
			}
		default:
			return fmt.Errorf("notifications[%d]: unknown type %q (expected ntfy or webhook)", i, n.Type)
		}
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Listen:           ":3800",
		DBPath:           "/data/fleetglint.db",
		DataDir:          "/data",
		LogLevel:         "info",
		LogFormat:        "text",
		ReportRetention:  Duration{24 * time.Hour},
		AlertRetention:   Duration{30 * 24 * time.Hour},
		CommandRetention: Duration{30 * 24 * time.Hour},
		PruneInterval:    Duration{time.Hour},
		RateLimit:        RateLimitConfig{Requests: 30, Window: Duration{time.Minute}},
		Commands:         CommandsConfig{LeaseTimeout: Duration{10 * time.Minute}, ResultLimit: 5000},
		Liveness:         LivenessConfig{Interval: Duration{time.Minute}},
		NotifyWorkers:    4,
	}
}

// expandEnvVars replaces ${VAR_NAME} placeholders in raw YAML with the
// corresponding environment variable values. Unset variables are replaced
// with an empty string.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		key := string(match[2 : len(match)-1]) // strip ${ and }
		return []byte(os.Getenv(key))
	})
}

func applyEnvOverrides(cfg *Config) error {
	strs := map[string]*string{
		"LISTEN":      &cfg.Listen,
		"DB_PATH":     &cfg.DBPath,
		"DATA_DIR":    &cfg.DataDir,
		"LOG_LEVEL":   &cfg.LogLevel,
		"LOG_FORMAT":  &cfg.LogFormat,
		"ADMIN_TOKEN": &cfg.AdminToken,
	}
	for key, dst := range strs {
		if v := os.Getenv(EnvPrefix + key); v != "" {
			*dst = v
		}
	}

	durations := map[string]*Duration{
		"REPORT_RETENTION":       &cfg.ReportRetention,
		"ALERT_RETENTION":        &cfg.AlertRetention,
		"COMMAND_RETENTION":      &cfg.CommandRetention,
		"PRUNE_INTERVAL":         &cfg.PruneInterval,
		"RATE_LIMIT_WINDOW":      &cfg.RateLimit.Window,
		"COMMANDS_LEASE_TIMEOUT": &cfg.Commands.LeaseTimeout,
		"LIVENESS_INTERVAL":      &cfg.Liveness.Interval,
	}
	for key, dst := range durations {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s%s: invalid duration %q: %w", EnvPrefix, key, v, err)
		}
		dst.Duration = d
	}

	ints := map[string]*int{
		"RATE_LIMIT_REQUESTS":   &cfg.RateLimit.Requests,
		"COMMANDS_RESULT_LIMIT": &cfg.Commands.ResultLimit,
		"NOTIFY_WORKERS":        &cfg.NotifyWorkers,
	}
	for key, dst := range ints {
		v := os.Getenv(EnvPrefix + key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s%s: invalid integer %q", EnvPrefix, key, v)
		}
		*dst = n
	}

	if v := os.Getenv(EnvPrefix + "TRUST_PROXY"); v != "" {
		cfg.TrustProxy = v == "true" || v == "1"
	}

	// Single ntfy target from env vars (only if no YAML notifications configured).
	if len(cfg.Notifications) == 0 {
		if ntfyURL := os.Getenv(EnvPrefix + "NTFY_URL"); ntfyURL != "" {
			topic := os.Getenv(EnvPrefix + "NTFY_TOPIC")
			if topic == "" {
				topic = "fleetglint-alerts"
			}
			cfg.Notifications = append(cfg.Notifications, NotificationConfig{
				Type:  "ntfy",
				URL:   ntfyURL,
				Topic: topic,
			})
		}
	}
	return nil
}
