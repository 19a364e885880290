// Package logger provides structured logging setup for TaskOrbit.
package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/Strob0t/TaskOrbit/internal/config"
)

// Default async handler sizing.
const (
	asyncChanSize = 1024
	asyncWorkers  = 2
)

// level is shared by every handler New creates, so the effective log
// level can change at runtime via SetLevel (config reload).
var level slog.LevelVar

// New creates a *slog.Logger from the given Logging config.
// Output is JSON to stdout with a "service" attribute on every record.
// When cfg.Async is set, records pass through a buffered AsyncHandler;
// call Close on the returned Closer during shutdown to flush it.
func New(cfg config.Logging) (*slog.Logger, Closer) {
	level.Set(parseLevel(cfg.Level))

	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: &level,
	})

	closer := Closer(nopCloser{})
	if cfg.Async {
		async := NewAsyncHandler(handler, asyncChanSize, asyncWorkers)
		handler = async
		closer = async
	}

	return slog.New(handler).With("service", cfg.Service), closer
}

// SetLevel changes the effective level of all loggers created by New.
func SetLevel(s string) {
	level.Set(parseLevel(s))
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
