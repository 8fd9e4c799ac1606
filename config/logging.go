package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// SlogLevel parses log_level: debug, info, warn or error.
func (o Observability) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(o.LogLevel))); err != nil {
		return slog.LevelInfo, fmt.Errorf("observability.log_level: %w", err)
	}

	return level, nil
}

// NewLogger builds the process logger. log_format "text" selects the text handler, anything else JSON.
func (o Observability) NewLogger(w io.Writer) *slog.Logger {
	level, err := o.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}

	handlerOptions := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewJSONHandler(w, handlerOptions)
	if o.LogFormat == "text" {
		handler = slog.NewTextHandler(w, handlerOptions)
	}

	return slog.New(handler).With("service", o.ServiceName)
}
