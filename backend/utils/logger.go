package utils

import (
	"io"
	"os"
	"time"

	"cognitory/backend/oops"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LoggerConfig describes how the process logs
type LoggerConfig struct {
	// Format is "text" or "json"
	Format string
	// Level is a zerolog level name; empty means info
	Level string
	// Output defaults to os.Stdout
	Output io.Writer
	// EnableColors only applies to the text format
	EnableColors bool
}

// InitLogger builds the process logger and installs it as the global one.
func InitLogger(config ...LoggerConfig) zerolog.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	zerolog.ErrorStackMarshaler = oops.ZerologStackMarshaler

	var out io.Writer = cfg.Output
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{
			Out:        cfg.Output,
			NoColor:    !cfg.EnableColors,
			TimeFormat: time.DateTime,
		}
	}

	logger := zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("service", "cognitory").
		Logger()
	log.Logger = logger

	return logger
}
