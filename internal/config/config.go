// Package config loads dbstream settings.
//
// Settings come from three layers, later layers winning:
//
//  1. built-in defaults (Default)
//  2. the YAML file named by DBSTREAM_CONFIG, when set
//  3. DBSTREAM_* environment variables
//
// Example file:
//
//	log:
//	  level: debug
//	  format: console
//	fetch:
//	  batch_size: 5000
//	  buffer_size: 4096
//	connect:
//	  timeout: 10s
package config

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/koustreak/dbstream/internal/errs"
	"github.com/koustreak/dbstream/internal/logger"
	"go.yaml.in/yaml/v3"
)

// Environment variables read by Load.
const (
	EnvConfigFile     = "DBSTREAM_CONFIG"
	EnvLogLevel       = "DBSTREAM_LOG_LEVEL"
	EnvLogFormat      = "DBSTREAM_LOG_FORMAT"
	EnvBatchSize      = "DBSTREAM_BATCH_SIZE"
	EnvBufferSize     = "DBSTREAM_BUFFER_SIZE"
	EnvConnectTimeout = "DBSTREAM_CONNECT_TIMEOUT"
)

const (
	DefaultBatchSize      = 5_000
	DefaultBufferSize     = 4_096
	DefaultConnectTimeout = 10 * time.Second
)

// Config is the complete dbstream configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Fetch   FetchConfig   `yaml:"fetch"`
	Connect ConnectConfig `yaml:"connect"`
}

// LogConfig mirrors logger.Config in its YAML form.
type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	TimeFormat string `yaml:"time_format"`
}

// FetchConfig bounds the memory used by one execute call.
type FetchConfig struct {
	// BatchSize is the maximum number of rows resident at once.
	BatchSize int `yaml:"batch_size"`

	// BufferSize caps each fetched field, in bytes. Longer values are truncated.
	BufferSize int `yaml:"buffer_size"`
}

// ConnectConfig controls session establishment.
type ConnectConfig struct {
	// Timeout bounds opening a session. Zero disables the bound.
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			TimeFormat: "rfc3339",
		},
		Fetch: FetchConfig{
			BatchSize:  DefaultBatchSize,
			BufferSize: DefaultBufferSize,
		},
		Connect: ConnectConfig{
			Timeout: DefaultConnectTimeout,
		},
	}
}

// Load builds the configuration from defaults, the optional file named by
// DBSTREAM_CONFIG and the environment, then validates it.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigFile); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to open config file", err)
		}
		defer f.Close()

		if err := cfg.decode(f); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads a YAML document over the defaults and validates the result.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(r); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && err != io.EOF {
		return errs.Wrap(errs.ErrKindInvalidInput, "failed to parse config", err)
	}
	return nil
}

// applyEnv overrides fields from the environment. lookup is os.LookupEnv in
// production and a map lookup in tests.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvLogFormat); ok {
		c.Log.Format = v
	}
	if v, ok := lookup(EnvBatchSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, EnvBatchSize+" is not an integer", err)
		}
		c.Fetch.BatchSize = n
	}
	if v, ok := lookup(EnvBufferSize); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, EnvBufferSize+" is not an integer", err)
		}
		c.Fetch.BufferSize = n
	}
	if v, ok := lookup(EnvConnectTimeout); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, EnvConnectTimeout+" is not a duration", err)
		}
		c.Connect.Timeout = d
	}
	return nil
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if !logger.ValidLevel(c.Log.Level) {
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown log level %q", c.Log.Level))
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return errs.New(errs.ErrKindInvalidInput, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}
	if c.Fetch.BatchSize <= 0 {
		return errs.New(errs.ErrKindInvalidInput, "fetch.batch_size must be positive")
	}
	if c.Fetch.BufferSize <= 0 {
		return errs.New(errs.ErrKindInvalidInput, "fetch.buffer_size must be positive")
	}
	if c.Connect.Timeout < 0 {
		return errs.New(errs.ErrKindInvalidInput, "connect.timeout must not be negative")
	}
	return nil
}

// Logger returns the logger configuration writing to out.
func (c *Config) Logger(out io.Writer) *logger.Config {
	return &logger.Config{
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		TimeFormat: c.Log.TimeFormat,
		Output:     out,
	}
}
