// Package config loads txledger settings from defaults, an optional YAML
// file and LEDGER_* environment variables, in that order of precedence
// (command-line flags are applied on top by the CLI).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Sink names.
const (
	SinkCSV      = "csv"
	SinkJSON     = "json"
	SinkSQLite   = "sqlite"
	SinkPostgres = "postgres"
)

// Log formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// ValidSinks lists accepted sink names.
var ValidSinks = []string{SinkCSV, SinkJSON, SinkSQLite, SinkPostgres}

// ValidLogLevels lists accepted log levels.
var ValidLogLevels = []string{"debug", "info", "warn", "error"}

// Config holds every setting of a run.
type Config struct {
	// Sink selects where final account state goes.
	Sink string `yaml:"sink"`

	// Output is the file the csv/json sinks write to; empty means stdout.
	Output string `yaml:"output"`

	// SQLitePath is the database file of the sqlite sink.
	SQLitePath string `yaml:"sqlite_path"`

	// PostgresDSN is the connection string of the postgres sink.
	PostgresDSN string `yaml:"postgres_dsn"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the built-in settings: CSV to stdout, info-level text logs.
func Default() Config {
	return Config{
		Sink:      SinkCSV,
		LogLevel:  "info",
		LogFormat: LogFormatText,
	}
}

// envVars maps each environment variable to the field it overrides.
var envVars = []struct {
	name  string
	field func(*Config) *string
}{
	{"LEDGER_SINK", func(c *Config) *string { return &c.Sink }},
	{"LEDGER_OUTPUT", func(c *Config) *string { return &c.Output }},
	{"LEDGER_SQLITE_PATH", func(c *Config) *string { return &c.SQLitePath }},
	{"LEDGER_POSTGRES_DSN", func(c *Config) *string { return &c.PostgresDSN }},
	{"LEDGER_LOG_LEVEL", func(c *Config) *string { return &c.LogLevel }},
	{"LEDGER_LOG_FORMAT", func(c *Config) *string { return &c.LogFormat }},
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the environment. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg, os.Getenv)
	cfg.PostgresDSN = NormalizeDSN(cfg.PostgresDSN)
	return cfg, nil
}

// decode strictly unmarshals YAML over cfg: unknown keys are errors.
func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func applyEnv(cfg *Config, getenv func(string) string) {
	for _, v := range envVars {
		if val := strings.TrimSpace(getenv(v.name)); val != "" {
			*v.field(cfg) = val
		}
	}
}

// Validate checks that the settings describe a runnable configuration.
func (c Config) Validate() error {
	if !contains(ValidSinks, c.Sink) {
		return fmt.Errorf("invalid sink %q: must be one of %s", c.Sink, strings.Join(ValidSinks, ", "))
	}
	if !contains(ValidLogLevels, strings.ToLower(c.LogLevel)) {
		return fmt.Errorf("invalid log level %q: must be one of %s", c.LogLevel, strings.Join(ValidLogLevels, ", "))
	}
	if c.LogFormat != LogFormatText && c.LogFormat != LogFormatJSON {
		return fmt.Errorf("invalid log format %q: must be text or json", c.LogFormat)
	}

	switch c.Sink {
	case SinkSQLite:
		if c.SQLitePath == "" {
			return errors.New("sqlite sink requires sqlite_path")
		}
	case SinkPostgres:
		if c.PostgresDSN == "" {
			return errors.New("postgres sink requires postgres_dsn")
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
