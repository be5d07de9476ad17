// Package logging sets up the zerolog loggers shared by every
// binary, replacing the original bare log.Printf calls with leveled,
// structured output while keeping the same call sites (middleware,
// startup/shutdown banners, background loops).
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger for a component ("node", "router",
// "bstar", ...). level is parsed with zerolog.ParseLevel; an invalid
// or empty string falls back to info. pretty selects the
// human-readable console writer (for local runs) over JSON (for
// production).
func New(component, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	return zerolog.New(out).
		Level(lvl).
		With().
		Timestamp().
		Str("component", component).
		Logger()
}
