package logger

import (
	"context"
	"log/slog"
	"testing"

	"github.com/Strob0t/TaskOrbit/internal/config"
)

func TestNewSync(t *testing.T) {
	l, closer := New(config.Logging{Level: "info", Service: "taskorbit-core"})
	if l == nil {
		t.Fatal("expected a logger")
	}
	// Synchronous mode gets the no-op closer; calling it must be safe.
	closer.Close()
}

func TestNewAsyncCloses(t *testing.T) {
	l, closer := New(config.Logging{Level: "debug", Service: "taskorbit-core", Async: true})
	if l == nil {
		t.Fatal("expected a logger")
	}
	l.Info("startup", "port", "8080")
	closer.Close()
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"verbose": slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSetLevelAppliesLive(t *testing.T) {
	_, closer := New(config.Logging{Level: "info", Service: "taskorbit-core"})
	defer closer.Close()

	SetLevel("error")
	if level.Level() != slog.LevelError {
		t.Fatalf("level = %v after SetLevel(error)", level.Level())
	}

	SetLevel("nonsense")
	if level.Level() != slog.LevelInfo {
		t.Fatalf("level = %v, unknown strings fall back to info", level.Level())
	}
}

func TestRequestIDRoundTrip(t *testing.T) {
	if got := RequestID(context.Background()); got != "" {
		t.Fatalf("bare context should have no request ID, got %q", got)
	}

	ctx := WithRequestID(context.Background(), "9b6f1d2e")
	if got := RequestID(ctx); got != "9b6f1d2e" {
		t.Fatalf("RequestID = %q", got)
	}
}
