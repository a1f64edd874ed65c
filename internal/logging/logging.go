// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// New returns a logger writing to w. format is "text" (human-readable,
// rendered by charmbracelet/log) or "json".
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	switch strings.ToLower(format) {
	case "", "text":
		lvl, err := log.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		handler := log.NewWithOptions(w, log.Options{
			ReportTimestamp: true,
			TimeFormat:      time.RFC3339,
			Level:           lvl,
		})
		return slog.New(handler), nil
	case "json":
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", level, err)
		}
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}
