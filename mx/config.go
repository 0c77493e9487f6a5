//go:build unix

// File: mx/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package mx

import (
	"fmt"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/momentics/hioload-mx/api"
	"github.com/momentics/hioload-mx/control"
	"github.com/momentics/hioload-mx/logger"
	"github.com/momentics/hioload-mx/protocol"
)

// LogConfig describes the zap logger built by Config.NewLogger.
type LogConfig struct {
	Name    string `toml:"name"`
	Path    string `toml:"path"` // directory of the log file; empty: stdout only
	Level   string `toml:"level"`
	MaxSize int    `toml:"max_size"` // megabytes before rotation
	MaxAge  int    `toml:"max_age"`  // days to keep rotated files
	Stdout  bool   `toml:"stdout"`
}

// Config holds parameters immutable per exchange.
type Config struct {
	ReadBufferSize int       `toml:"read_buffer_size"` // Bytes read per readable Message connection
	MaxPayloadSize int       `toml:"max_payload_size"` // Largest accepted payload; negative disables the check
	ListenBacklog  int       `toml:"listen_backlog"`   // listen(2) backlog for Listen
	Log            LogConfig `toml:"log"`

	// Runtime collaborators, never read from files.
	Logger      *zap.Logger              `toml:"-"` // nil: global logger, else no-op
	Metrics     *control.MetricsRegistry `toml:"-"` // nil: private registry
	Multiplexer api.Multiplexer          `toml:"-"` // nil: select(2)
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		ReadBufferSize: 64 * 1024,                // 64 KiB per read(2)
		MaxPayloadSize: protocol.MaxFramePayload, // 1 MiB
		ListenBacklog:  128,
		Log: LogConfig{
			Name:    "mx.log",
			Level:   "info",
			MaxSize: 100,
			MaxAge:  7,
			Stdout:  true,
		},
	}
}

// LoadConfig decodes a TOML file on top of DefaultConfig.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// NewLogger builds the logger described by c.Log.
func (c *Config) NewLogger() *zap.Logger {
	return logger.NewZapLogger(c.Log.Name, c.Log.Path, c.Log.Level, c.Log.MaxSize, c.Log.MaxAge, c.Log.Stdout)
}

// normalized fills zero values with defaults.
func (c Config) normalized() Config {
	def := DefaultConfig()
	if c.ReadBufferSize <= 0 {
		c.ReadBufferSize = def.ReadBufferSize
	}
	if c.MaxPayloadSize == 0 {
		c.MaxPayloadSize = def.MaxPayloadSize
	}
	if c.ListenBacklog <= 0 {
		c.ListenBacklog = def.ListenBacklog
	}
	return c
}
