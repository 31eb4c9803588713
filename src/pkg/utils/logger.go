package utils

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// NewLogger creates a new logger instance writing to stderr. GUZEL_LOG_LEVEL
// overrides level when set. pretty switches to human-readable console output.
func NewLogger(level string, pretty bool) zerolog.Logger {
	return newLogger(os.Stderr, level, pretty)
}

func newLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	if lvl := os.Getenv("GUZEL_LOG_LEVEL"); lvl != "" {
		level = lvl
	}

	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}

	logger := zerolog.New(w).With().Timestamp().Str("service", "guzel").Logger()

	parsed, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		parsed = zerolog.InfoLevel
	}
	return logger.Level(parsed)
}
