package logger

import (
	"errors"
	"fmt"

	"go.uber.org/zap/zapcore"
)

// Config controls verbosity, encoding and where log entries go.
type Config struct {
	Level            string     `mapstructure:"level"`
	Format           string     `mapstructure:"format"`
	Output           string     `mapstructure:"output"`
	EnableCaller     bool       `mapstructure:"enablecaller"`
	EnableStacktrace bool       `mapstructure:"enablestacktrace"`
	File             FileConfig `mapstructure:"file"`
}

// FileConfig controls rotation of the on-disk log.
type FileConfig struct {
	Filename   string `mapstructure:"filename"`
	MaxSize    int    `mapstructure:"maxsize"`
	MaxAge     int    `mapstructure:"maxage"`
	MaxBackups int    `mapstructure:"maxbackups"`
	Compress   bool   `mapstructure:"compress"`
}

// DefaultConfig is what the service runs with when the config file carries
// no log section: JSON to stdout at info level, callers on.
func DefaultConfig() *Config {
	return &Config{
		Level:            "info",
		Format:           "json",
		Output:           "console",
		EnableCaller:     true,
		EnableStacktrace: true,
		File: FileConfig{
			Filename:   "logs/sealvault.log",
			MaxSize:    100,
			MaxAge:     30,
			MaxBackups: 10,
			Compress:   true,
		},
	}
}

var validOutputs = map[string]bool{"console": true, "file": true, "both": true}

func (c *Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("unknown log level %q", c.Level)
	}
	if c.Format != "json" && c.Format != "console" {
		return errors.New(`log format must be "json" or "console"`)
	}
	if !validOutputs[c.Output] {
		return errors.New(`log output must be "console", "file" or "both"`)
	}
	if c.Output == "file" || c.Output == "both" {
		if c.File.Filename == "" {
			return errors.New("log file filename is required for file output")
		}
		if c.File.MaxSize <= 0 || c.File.MaxAge <= 0 {
			return errors.New("log file rotation limits must be positive")
		}
		if c.File.MaxBackups < 0 {
			return errors.New("log file maxbackups must not be negative")
		}
	}
	return nil
}
