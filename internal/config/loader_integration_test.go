package config

import (
	"os"
	"strings"
	"testing"
)

// These tests run the whole LoadFrom pipeline and the reload path the
// SIGHUP handler uses, rather than the individual layers.

func TestLoadFromAppliesPrecedence(t *testing.T) {
	path := writeYAML(t, `
server:
  port: "9090"
logging:
  level: "debug"
`)
	t.Setenv("TASKORBIT_PORT", "7070")

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("Server.Port = %q, want the env value 7070 over YAML's 9090", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want YAML's debug", cfg.Logging.Level)
	}
	if cfg.Postgres.MaxConns != 15 {
		t.Errorf("Postgres.MaxConns = %d, want untouched default 15", cfg.Postgres.MaxConns)
	}
	// NATS_URL is commonly exported in dev shells, so only require the
	// field to be populated from one of the layers.
	if cfg.NATS.URL == "" {
		t.Error("NATS.URL is empty")
	}
}

func TestLoadFromValidatesResult(t *testing.T) {
	path := writeYAML(t, `
server:
  port: ""
`)
	_, err := LoadFrom(path)
	if err == nil {
		t.Fatal("LoadFrom accepted an empty port")
	}
	if !strings.Contains(err.Error(), "config validate") {
		t.Errorf("error = %v, want a validation error", err)
	}
}

func TestLoadFromAgentSection(t *testing.T) {
	path := writeYAML(t, `
agent:
  model: "anthropic/claude-3-haiku"
  max_tool_rounds: 5
  history_window: 40
`)

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Agent.Model != "anthropic/claude-3-haiku" {
		t.Errorf("Agent.Model = %q", cfg.Agent.Model)
	}
	if cfg.Agent.MaxToolRounds != 5 {
		t.Errorf("Agent.MaxToolRounds = %d, want 5", cfg.Agent.MaxToolRounds)
	}
	if cfg.Agent.HistoryWindow != 40 {
		t.Errorf("Agent.HistoryWindow = %d, want 40", cfg.Agent.HistoryWindow)
	}
	if cfg.Agent.MaxTokens != 4096 {
		t.Errorf("Agent.MaxTokens = %d, want untouched default 4096", cfg.Agent.MaxTokens)
	}
}

func TestHolderReloadPicksUpChanges(t *testing.T) {
	path := writeYAML(t, `
logging:
  level: "info"
rate:
  burst: 50
`)
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	holder := NewHolder(cfg, path)

	if err := os.WriteFile(path, []byte(`
logging:
  level: "debug"
rate:
  burst: 200
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := holder.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	got := holder.Get()
	if got.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q after reload, want debug", got.Logging.Level)
	}
	if got.Rate.Burst != 200 {
		t.Errorf("Rate.Burst = %d after reload, want 200", got.Rate.Burst)
	}
}

func TestHolderReloadKeepsOldConfigOnFailure(t *testing.T) {
	path := writeYAML(t, `
server:
  port: "9090"
`)
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	holder := NewHolder(cfg, path)

	if err := os.WriteFile(path, []byte(`
server:
  port: ""
`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := holder.Reload(); err == nil {
		t.Fatal("Reload accepted a config with no port")
	}

	if got := holder.Get(); got.Server.Port != "9090" {
		t.Errorf("Server.Port = %q after failed reload, want the old 9090", got.Server.Port)
	}
}

func TestHolderReloadAppliesEnv(t *testing.T) {
	path := writeYAML(t, `
logging:
  level: "info"
`)
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	holder := NewHolder(cfg, path)

	t.Setenv("TASKORBIT_LOG_LEVEL", "error")
	if err := holder.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if got := holder.Get(); got.Logging.Level != "error" {
		t.Errorf("Logging.Level = %q after reload, want the env value error", got.Logging.Level)
	}
}
