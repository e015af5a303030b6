// Package config provides configuration management for the varlens CLI and
// server. Values come from, in rising precedence: built-in defaults, a
// varlens.yaml file, VARLENS_-prefixed environment variables, and command
// line flags.
package config

// Config file names searched for when none is given explicitly.
const (
	ConfigFileName    = "varlens.yaml"
	ConfigFileNameAlt = "varlens.yml"
)

// Defaults applied before any other configuration source.
const (
	DefaultPageSize  = 100
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
	DefaultMaxDepth  = 3
)

// Config holds all CLI and server configuration options.
type Config struct {
	// PageSize is the upper bound on variables materialized per fetch. It
	// is applied when a document view is created and stays fixed for that
	// view's lifetime; range-node identity depends on it.
	PageSize int `koanf:"page_size"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Watch enables re-reading file-backed documents when they change on
	// disk.
	Watch bool `koanf:"watch"`

	Dump DumpConfig `koanf:"dump"`
}

// DumpConfig holds options for the dump command.
type DumpConfig struct {
	// MaxDepth bounds how many levels dump expands below the root.
	MaxDepth int `koanf:"max_depth"`
}
