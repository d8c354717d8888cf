// Package config provides configuration management for the sqlfront CLI.
//
// Values are layered from built-in defaults, an optional sqlfront.yaml,
// SQLFRONT_* environment variables and explicitly set command-line flags,
// in increasing order of precedence.
package config

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/sqlfront/pkg/dialect"
	"github.com/leapstack-labs/sqlfront/pkg/format"
	"github.com/leapstack-labs/sqlfront/pkg/parser"
)

// Config holds all CLI configuration options.
type Config struct {
	Dialect      string         `koanf:"dialect"`
	ToDialect    string         `koanf:"to_dialect"`
	IndentWidth  int            `koanf:"indent_width"`
	MaxDepth     int            `koanf:"max_depth"`
	EmitComments bool           `koanf:"emit_comments"`
	Verbose      bool           `koanf:"verbose"`
	OutputFormat string         `koanf:"output"`
	Transform    string         `koanf:"transform"`
	Driver       string         `koanf:"driver"`
	DSN          string         `koanf:"dsn"`
	Params       map[string]any `koanf:"params"`
	Listen       string         `koanf:"listen"`
}

// Default configuration values.
const (
	DefaultDialect     = dialect.NameANSI
	DefaultIndentWidth = 2
	DefaultOutput      = "auto" // Auto-detect: TTY=text, non-TTY=json
	DefaultListen      = "127.0.0.1:8765"
)

// OutputModes lists the accepted values of the output key.
var OutputModes = []string{"auto", "text", "json", "yaml"}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := dialect.Lookup(c.Dialect); err != nil {
		return fmt.Errorf("invalid dialect: %w", err)
	}
	if c.ToDialect != "" {
		if _, err := dialect.Lookup(c.ToDialect); err != nil {
			return fmt.Errorf("invalid to_dialect: %w", err)
		}
	}
	if c.IndentWidth < 0 {
		return fmt.Errorf("indent_width must not be negative, got %d", c.IndentWidth)
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth)
	}
	if c.OutputFormat != "" && !slices.Contains(OutputModes, c.OutputFormat) {
		return fmt.Errorf("invalid output %q (expected one of auto, text, json, yaml)", c.OutputFormat)
	}
	return nil
}

// SourceDialect returns the dialect input is parsed under.
func (c *Config) SourceDialect() *dialect.Dialect {
	d, err := dialect.Lookup(c.Dialect)
	if err != nil {
		return dialect.Default()
	}
	return d
}

// TargetDialect returns the dialect output is rendered in, or nil when
// output keeps the source dialect.
func (c *Config) TargetDialect() *dialect.Dialect {
	if c.ToDialect == "" {
		return nil
	}
	d, err := dialect.Lookup(c.ToDialect)
	if err != nil {
		return nil
	}
	return d
}

// ParseOptions returns parser options for this configuration.
func (c *Config) ParseOptions() parser.Options {
	return parser.Options{
		Dialect:  c.SourceDialect(),
		MaxDepth: c.MaxDepth,
	}
}

// FormatContext returns the rendering context for this configuration.
func (c *Config) FormatContext() format.Context {
	return format.Context{
		Dialect:     c.SourceDialect(),
		ToDialect:   c.TargetDialect(),
		IndentWidth: c.IndentWidth,
	}
}

// Defaults returns a configuration holding only default values.
func Defaults() *Config {
	return &Config{
		Dialect:      DefaultDialect,
		IndentWidth:  DefaultIndentWidth,
		OutputFormat: DefaultOutput,
		Listen:       DefaultListen,
	}
}
