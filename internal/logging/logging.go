// Package logging builds the zerolog logger used across ledgerscope and
// carries it on a context.Context.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/theirongolddev/ledgerscope/internal/config"
)

type ctxKey struct{}

// New creates a logger from cfg writing to w. Format "json" emits one JSON
// object per line; anything else uses the human console writer.
func New(cfg config.LoggingConfig, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if !strings.EqualFold(cfg.Format, "json") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(parseLevel(cfg.Level)).With().Timestamp().Logger()
}

// NewWithWriter creates a JSON logger at info level with a custom writer.
func NewWithWriter(w io.Writer) zerolog.Logger {
	return New(config.LoggingConfig{Level: "info", Format: "json"}, w)
}

// Nop returns a disabled logger.
func Nop() zerolog.Logger { return zerolog.Nop() }

// WithContext adds the logger to the context.
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext retrieves the logger from the context, or a disabled logger
// when none was attached.
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return logger
	}
	return zerolog.Nop()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}
