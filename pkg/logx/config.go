package logx

import (
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

// Format represents the output format
type Format string

const (
	FormatConsole Format = "console"
	FormatJSON    Format = "json"
)

// Config holds the logger configuration
type Config struct {
	Level        Level  `env:"LOG_LEVEL" envDefault:"INFO"`
	Format       Format `env:"LOG_FORMAT" envDefault:"console"`
	EnableColors bool   `env:"LOG_COLOR" envDefault:"true"`
	EnableCaller bool   `env:"LOG_CALLER" envDefault:"false"`
	TimeFormat   string `env:"LOG_TIME_FORMAT" envDefault:"2006-01-02T15:04:05Z07:00"`

	// Output is where to write logs (defaults to os.Stdout)
	Output io.Writer
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Level:        LevelInfo,
		Format:       FormatConsole,
		EnableColors: true,
		TimeFormat:   time.RFC3339,
		Output:       os.Stdout,
	}
}

// LoadFromEnv loads configuration from LOG_* environment variables.
// Malformed values leave the defaults in place.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()
	if err := env.Parse(cfg); err != nil {
		return DefaultConfig()
	}
	switch cfg.TimeFormat {
	case "RFC3339NANO":
		cfg.TimeFormat = time.RFC3339Nano
	case "UNIX":
		cfg.TimeFormat = "unix"
	case "UNIXMILLI":
		cfg.TimeFormat = "unixmilli"
	}
	return cfg
}
