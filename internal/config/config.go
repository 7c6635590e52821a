package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. WGETFETCH_FETCH_TIMEOUT
const EnvPrefix = "WGETFETCH"

// Config represents the entire application configuration
type Config struct {
	Fetch       FetchConfig       `mapstructure:"fetch"`
	Throttle    ThrottleConfig    `mapstructure:"throttle"`
	Journal     JournalConfig     `mapstructure:"journal"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// FetchConfig contains per-fetch defaults
type FetchConfig struct {
	Timeout           string `mapstructure:"timeout"`
	MaxRetries        int    `mapstructure:"max_retries"`
	RangeResume       bool   `mapstructure:"range_resume"`
	RetryServerErrors bool   `mapstructure:"retry_server_errors"`
	BackoffBase       string `mapstructure:"backoff_base"`
	BackoffMax        string `mapstructure:"backoff_max"`
	UserAgent         string `mapstructure:"user_agent"`
	MaxBytesPerSecond int64  `mapstructure:"max_bytes_per_second"`
	Concurrency       int    `mapstructure:"concurrency"`
	ProgressInterval  string `mapstructure:"progress_interval"`
}

// ThrottleConfig limits outbound request rate
type ThrottleConfig struct {
	RPS   int `mapstructure:"rps"`
	Burst int `mapstructure:"burst"`
}

// JournalConfig contains resume journal settings
type JournalConfig struct {
	// Path of the SQLite journal. Empty disables cross-run resumption.
	Path string `mapstructure:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MaintenanceConfig contains journal pruning settings
type MaintenanceConfig struct {
	PartMaxAge string `mapstructure:"part_max_age"`
	SweepDir   string `mapstructure:"sweep_dir"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("fetch.timeout", "0s")
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.range_resume", true)
	v.SetDefault("fetch.retry_server_errors", false)
	v.SetDefault("fetch.backoff_base", "500ms")
	v.SetDefault("fetch.backoff_max", "30s")
	v.SetDefault("fetch.user_agent", "wget-fetch/1.0")
	v.SetDefault("fetch.max_bytes_per_second", 0)
	v.SetDefault("fetch.concurrency", 4)
	v.SetDefault("fetch.progress_interval", "5s")
	v.SetDefault("throttle.rps", 0)
	v.SetDefault("throttle.burst", 1)
	v.SetDefault("journal.path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("maintenance.part_max_age", "24h")
	v.SetDefault("maintenance.sweep_dir", "")
}

// Load loads configuration from the specified file path using the global viper
func Load(configPath string) (*Config, error) {
	return LoadWith(viper.GetViper(), configPath)
}

// LoadWith loads configuration into v. The config file is optional; values
// from bound flags and WGETFETCH_* environment variables take precedence.
func LoadWith(v *viper.Viper, configPath string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")

		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Fetch.MaxRetries < 1 {
		return errors.New("fetch.max_retries must be at least 1")
	}
	if c.Fetch.Concurrency < 1 || c.Fetch.Concurrency > 64 {
		return errors.New("fetch.concurrency must be between 1 and 64")
	}
	if c.Fetch.MaxBytesPerSecond < 0 {
		return errors.New("fetch.max_bytes_per_second must not be negative")
	}
	if c.Throttle.RPS < 0 || c.Throttle.Burst < 0 {
		return errors.New("throttle.rps and throttle.burst must not be negative")
	}

	durations := map[string]string{
		"fetch.timeout":            c.Fetch.Timeout,
		"fetch.backoff_base":       c.Fetch.BackoffBase,
		"fetch.backoff_max":        c.Fetch.BackoffMax,
		"fetch.progress_interval":  c.Fetch.ProgressInterval,
		"maintenance.part_max_age": c.Maintenance.PartMaxAge,
	}
	for key, value := range durations {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if d < 0 {
			return fmt.Errorf("%s must not be negative", key)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetTimeout returns the per-attempt timeout. Zero disables it.
func (c *FetchConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// GetBackoffBase returns the first retry delay
func (c *FetchConfig) GetBackoffBase() time.Duration {
	d, _ := time.ParseDuration(c.BackoffBase)
	if d == 0 {
		return 500 * time.Millisecond
	}
	return d
}

// GetBackoffMax returns the retry delay cap
func (c *FetchConfig) GetBackoffMax() time.Duration {
	d, _ := time.ParseDuration(c.BackoffMax)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetProgressInterval returns the minimum gap between progress log lines
func (c *FetchConfig) GetProgressInterval() time.Duration {
	d, _ := time.ParseDuration(c.ProgressInterval)
	if d == 0 {
		return 5 * time.Second
	}
	return d
}

// GetPartMaxAge returns the age after which partial transfers are pruned
func (c *MaintenanceConfig) GetPartMaxAge() time.Duration {
	d, _ := time.ParseDuration(c.PartMaxAge)
	if d == 0 {
		return 24 * time.Hour
	}
	return d
}
