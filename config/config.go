// Package config loads the YAML configuration of a service using the
// redaction engine and turns it into options for the ignorelogger, document
// and fault packages.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/darynku/ignorelogger"
	"github.com/darynku/ignorelogger/document"
	"github.com/darynku/ignorelogger/fault"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// Defaults contains all default configuration values
var Defaults = struct {
	ConfigPath string
	Server     struct {
		Addr string
	}
	Logging struct {
		Level  string
		Format string
		Sink   string
	}
	Redaction struct {
		MatchMode   string
		TagKey      string
		UseDefaults bool
	}
	Fault struct {
		Title         string
		MaxBodyBytes  int64
		MaxFormMemory int64
		CaptureText   bool
		MaxTextBytes  int
	}
}{
	ConfigPath: "config.yaml",
	Server: struct {
		Addr string
	}{
		Addr: ":8080",
	},
	Logging: struct {
		Level  string
		Format string
		Sink   string
	}{
		Level:  "info",
		Format: "json",
		Sink:   SinkSlog,
	},
	Redaction: struct {
		MatchMode   string
		TagKey      string
		UseDefaults bool
	}{
		MatchMode:   ignorelogger.MatchContains.String(),
		TagKey:      ignorelogger.DefaultTagKey,
		UseDefaults: true,
	},
	Fault: struct {
		Title         string
		MaxBodyBytes  int64
		MaxFormMemory int64
		CaptureText   bool
		MaxTextBytes  int
	}{
		Title:         fault.DefaultTitle,
		MaxBodyBytes:  fault.DefaultMaxBodyBytes,
		MaxFormMemory: fault.DefaultMaxFormMemory,
		CaptureText:   true,
		MaxTextBytes:  64 * 1024,
	},
}

const (
	SinkSlog    = "slog"
	SinkZerolog = "zerolog"
)

// Config holds the application configuration.
// It is immutable after Load returns.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Redaction RedactionConfig `mapstructure:"redaction"`
	Fault     FaultConfig     `mapstructure:"fault"`
}

// ServerConfig holds the listen address of the demo server.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// LoggingConfig selects the log sink and its format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json or console
	Sink   string `mapstructure:"sink"`   // slog or zerolog
}

// RedactionConfig holds the sensitivity rules.
type RedactionConfig struct {
	Fields      []string `mapstructure:"fields"`       // extra sensitive field names
	MatchMode   string   `mapstructure:"match_mode"`   // contains or exact
	TagKey      string   `mapstructure:"tag_key"`      // struct tag key carrying "ignore"
	UseDefaults bool     `mapstructure:"use_defaults"` // keep the built-in deny-list
}

// FaultConfig holds the fault boundary settings.
type FaultConfig struct {
	Title         string `mapstructure:"title"`
	MaxBodyBytes  int64  `mapstructure:"max_body_bytes"`
	MaxFormMemory int64  `mapstructure:"max_form_memory"`
	CaptureText   bool   `mapstructure:"capture_text"`
	MaxTextBytes  int    `mapstructure:"max_text_bytes"`
}

// Load reads the YAML file at configPath. An empty configPath reads
// Defaults.ConfigPath if it exists and falls back to the defaults otherwise.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	v.SetDefault("server.addr", Defaults.Server.Addr)
	v.SetDefault("logging.level", Defaults.Logging.Level)
	v.SetDefault("logging.format", Defaults.Logging.Format)
	v.SetDefault("logging.sink", Defaults.Logging.Sink)
	v.SetDefault("redaction.fields", []string{})
	v.SetDefault("redaction.match_mode", Defaults.Redaction.MatchMode)
	v.SetDefault("redaction.tag_key", Defaults.Redaction.TagKey)
	v.SetDefault("redaction.use_defaults", Defaults.Redaction.UseDefaults)
	v.SetDefault("fault.title", Defaults.Fault.Title)
	v.SetDefault("fault.max_body_bytes", Defaults.Fault.MaxBodyBytes)
	v.SetDefault("fault.max_form_memory", Defaults.Fault.MaxFormMemory)
	v.SetDefault("fault.capture_text", Defaults.Fault.CaptureText)
	v.SetDefault("fault.max_text_bytes", Defaults.Fault.MaxTextBytes)

	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigFile(Defaults.ConfigPath)
	}

	if err := v.ReadInConfig(); err != nil {
		if configPath != "" {
			if isNotFound(err) {
				return nil, fmt.Errorf("config file not found: %s", configPath)
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if !isNotFound(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func isNotFound(err error) bool {
	var notFound viper.ConfigFileNotFoundError
	return errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist)
}

// validate checks and normalises the loaded values.
func validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Server.Addr) == "" {
		return fmt.Errorf("server address is required")
	}

	cfg.Logging.Level = strings.ToLower(cfg.Logging.Level)
	if _, err := zerolog.ParseLevel(cfg.Logging.Level); err != nil || cfg.Logging.Level == "" {
		return fmt.Errorf("invalid logging level: %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %q", cfg.Logging.Format)
	}
	switch cfg.Logging.Sink {
	case SinkSlog, SinkZerolog:
	default:
		return fmt.Errorf("invalid logging sink: %q", cfg.Logging.Sink)
	}

	if _, err := ParseMatchMode(cfg.Redaction.MatchMode); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.Redaction.TagKey) == "" {
		return fmt.Errorf("redaction tag key must not be empty")
	}
	if !cfg.Redaction.UseDefaults && len(cfg.Redaction.Fields) == 0 {
		return fmt.Errorf("redaction.fields is required when use_defaults is false")
	}

	if cfg.Fault.Title == "" {
		cfg.Fault.Title = Defaults.Fault.Title
	}
	if cfg.Fault.MaxBodyBytes <= 0 {
		return fmt.Errorf("invalid fault.max_body_bytes: %d", cfg.Fault.MaxBodyBytes)
	}
	if cfg.Fault.MaxFormMemory <= 0 {
		return fmt.Errorf("invalid fault.max_form_memory: %d", cfg.Fault.MaxFormMemory)
	}
	if cfg.Fault.MaxTextBytes <= 0 {
		return fmt.Errorf("invalid fault.max_text_bytes: %d", cfg.Fault.MaxTextBytes)
	}

	return nil
}

// ParseMatchMode converts "contains" or "exact" to a MatchMode.
func ParseMatchMode(s string) (ignorelogger.MatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "contains":
		return ignorelogger.MatchContains, nil
	case "exact":
		return ignorelogger.MatchExact, nil
	default:
		return 0, fmt.Errorf("invalid redaction match mode: %q", s)
	}
}

// PolicyOptions returns the ignorelogger options for the rules.
func (c RedactionConfig) PolicyOptions() []ignorelogger.Option {
	mode, _ := ParseMatchMode(c.MatchMode)
	opts := []ignorelogger.Option{
		ignorelogger.WithMatchMode(mode),
		ignorelogger.WithFieldName(c.Fields...),
	}
	if c.TagKey != "" {
		opts = append(opts, ignorelogger.WithTagKey(c.TagKey))
	}
	if !c.UseDefaults {
		opts = append(opts, ignorelogger.WithoutDefaults())
	}
	return opts
}

// DocumentOptions returns the document.Redactor options.
func (c FaultConfig) DocumentOptions() []document.Option {
	return []document.Option{
		document.WithTextCapture(c.CaptureText),
		document.WithMaxTextBytes(c.MaxTextBytes),
	}
}

// ReporterOptions returns the fault.Reporter options.
func (c FaultConfig) ReporterOptions() []fault.Option {
	return []fault.Option{
		fault.WithTitle(c.Title),
		fault.WithMaxBodyBytes(c.MaxBodyBytes),
		fault.WithMaxFormMemory(c.MaxFormMemory),
	}
}

// SlogLevel returns the configured level for log/slog.
func (c LoggingConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// ZerologLevel returns the configured level for zerolog.
func (c LoggingConfig) ZerologLevel() zerolog.Level {
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return level
}
