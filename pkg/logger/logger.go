// Package logger configures zerolog for the rest of the application. All services
// derive their logger from the single instance returned by New.
package logger

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls logger construction.
type Config struct {
	// Level is a zerolog level name (debug, info, warn, error). Defaults to info.
	Level string
	// Pretty enables a human-readable console writer instead of JSON lines.
	Pretty bool
}

// New builds a zerolog.Logger writing to stderr with a timestamp field on every line.
func New(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = zerolog.InfoLevel
	}

	var writer = os.Stderr
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.Pretty {
		return zerolog.New(zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}).
			Level(level).
			With().
			Timestamp().
			Logger()
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
