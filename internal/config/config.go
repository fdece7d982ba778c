// Package config loads the tracker configuration from an optional config
// file (YAML, TOML or JSON) overlaid by environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"
)

// Backends accepted by DATA_BACKEND.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

var validBackends = []string{BackendMemory, BackendFile, BackendSQLite}

type Config struct {
	// HTTP Server
	Port string

	// Storage
	DataBackend  string
	SnapshotPath string
	SQLiteDBPath string

	// Tracker
	DefaultCurrency   string
	RecurringInterval time.Duration

	// AMQP (optional, empty URL disables publishing)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Event worker
	JournalPath string

	// Logging
	LogLevel  string
	LogFormat string

	// ConfigFile is the file the values were read from, if any.
	ConfigFile string
}

// fileConfig mirrors Config for config files. Durations are strings such
// as "24h".
type fileConfig struct {
	Port              string `yaml:"port" toml:"port" json:"port"`
	DataBackend       string `yaml:"data_backend" toml:"data_backend" json:"data_backend"`
	SnapshotPath      string `yaml:"snapshot_path" toml:"snapshot_path" json:"snapshot_path"`
	SQLiteDBPath      string `yaml:"sqlite_db_path" toml:"sqlite_db_path" json:"sqlite_db_path"`
	DefaultCurrency   string `yaml:"default_currency" toml:"default_currency" json:"default_currency"`
	RecurringInterval string `yaml:"recurring_interval" toml:"recurring_interval" json:"recurring_interval"`
	AMQPURL           string `yaml:"amqp_url" toml:"amqp_url" json:"amqp_url"`
	AMQPExchange      string `yaml:"amqp_exchange" toml:"amqp_exchange" json:"amqp_exchange"`
	AMQPQueue         string `yaml:"amqp_queue" toml:"amqp_queue" json:"amqp_queue"`
	JournalPath       string `yaml:"journal_path" toml:"journal_path" json:"journal_path"`
	LogLevel          string `yaml:"log_level" toml:"log_level" json:"log_level"`
	LogFormat         string `yaml:"log_format" toml:"log_format" json:"log_format"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		Port:              "8081",
		DataBackend:       BackendFile,
		SnapshotPath:      "./data/fintrack.json",
		SQLiteDBPath:      "./data/fintrack.db",
		DefaultCurrency:   string(core.DefaultCurrency),
		RecurringInterval: 24 * time.Hour,
		AMQPExchange:      "fintrack",
		AMQPQueue:         "recurring_expenses",
		JournalPath:       "./data/events.jsonl",
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// Load builds the configuration. Values from the file named by
// FINTRACK_CONFIG come first and environment variables override them.
func Load() (*Config, error) {
	return LoadFrom(os.Getenv("FINTRACK_CONFIG"))
}

// LoadFrom is Load with an explicit config file. An empty path reads the
// environment only.
func LoadFrom(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.mergeEnv()
	return cfg, nil
}

// LoadFile reads a YAML, TOML or JSON file, chosen by extension.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("error accessing config file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	var fc fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("error parsing YAML file: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("error parsing TOML file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("error parsing JSON file: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config file format: %s", ext)
	}

	set(&c.Port, fc.Port)
	set(&c.DataBackend, fc.DataBackend)
	set(&c.SnapshotPath, fc.SnapshotPath)
	set(&c.SQLiteDBPath, fc.SQLiteDBPath)
	set(&c.DefaultCurrency, fc.DefaultCurrency)
	set(&c.AMQPURL, fc.AMQPURL)
	set(&c.AMQPExchange, fc.AMQPExchange)
	set(&c.AMQPQueue, fc.AMQPQueue)
	set(&c.JournalPath, fc.JournalPath)
	set(&c.LogLevel, fc.LogLevel)
	set(&c.LogFormat, fc.LogFormat)
	if fc.RecurringInterval != "" {
		d, err := time.ParseDuration(fc.RecurringInterval)
		if err != nil {
			return fmt.Errorf("invalid recurring_interval %q: %w", fc.RecurringInterval, err)
		}
		c.RecurringInterval = d
	}
	c.ConfigFile = path
	return nil
}

func (c *Config) mergeEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SnapshotPath = getEnv("SNAPSHOT_PATH", c.SnapshotPath)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.DefaultCurrency = getEnv("DEFAULT_CURRENCY", c.DefaultCurrency)
	c.RecurringInterval = getEnvDuration("RECURRING_INTERVAL", c.RecurringInterval)
	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)
	c.JournalPath = getEnv("JOURNAL_PATH", c.JournalPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Currency returns the configured default currency.
func (c *Config) Currency() core.CurrencyCode {
	code, err := core.ParseCurrency(c.DefaultCurrency)
	if err != nil {
		return core.DefaultCurrency
	}
	return code
}

// Validate validates the configuration and returns an error listing every problem.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case BackendFile:
		if c.SnapshotPath == "" {
			errors = append(errors, "snapshot path cannot be empty when using file backend")
		}
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	}

	if _, err := core.ParseCurrency(c.DefaultCurrency); err != nil {
		errors = append(errors, fmt.Sprintf("invalid default currency '%s': must be one of %v", c.DefaultCurrency, core.KnownCurrencies()))
	}

	if c.RecurringInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at least 1 minute", c.RecurringInterval))
	} else if c.RecurringInterval > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid recurring interval %v: must be at most 7 days", c.RecurringInterval))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func set(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
