package logger

import (
	"errors"
	"fmt"
)

// Config represents logger configuration
type Config struct {
	// Level is the minimum log level: debug, info, warn, error
	Level string `mapstructure:"level"`
	// Format is the log output format: json or console
	Format string `mapstructure:"format"`
	// Output selects the log destination: console, file or both
	Output string `mapstructure:"output"`
	// File holds file output settings (used when Output is file or both)
	File FileConfig `mapstructure:"file"`
	// EnableCaller adds the caller file:line to every entry
	EnableCaller bool `mapstructure:"enablecaller"`
	// EnableStacktrace attaches stack traces to error-level entries
	EnableStacktrace bool `mapstructure:"enablestacktrace"`
}

// FileConfig holds log file rotation settings
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"` // megabytes
	MaxAge     int    `mapstructure:"maxage"`  // days
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig returns a configuration suitable for development
func DefaultConfig() *Config {
	return &Config{
		Level:        "info",
		Format:       "console",
		Output:       "console",
		EnableCaller: true,
		File: FileConfig{
			Filename:   "logs/app.log",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 10,
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid log format: %s", c.Format)
	}

	switch c.Output {
	case "", "console", "file", "both":
	default:
		return fmt.Errorf("invalid log output: %s", c.Output)
	}

	if (c.Output == "file" || c.Output == "both") && c.File.Filename == "" {
		return errors.New("log file output requires a filename")
	}

	return nil
}
