package config

import (
	"fmt"
	"sync"
)

// Holder wraps a Config for safe concurrent access and hot reload.
// Reload re-runs the full hierarchy (defaults < YAML < ENV) and swaps
// the config only if the result validates; otherwise the old config
// is preserved.
type Holder struct {
	mu       sync.RWMutex
	cfg      *Config
	yamlPath string
}

// NewHolder creates a Holder around an already-loaded config.
func NewHolder(cfg *Config, yamlPath string) *Holder {
	return &Holder{cfg: cfg, yamlPath: yamlPath}
}

// Get returns the current config snapshot.
func (h *Holder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Reload re-loads the config from disk and environment. On validation
// failure the previous config stays active and the error is returned.
func (h *Holder) Reload() error {
	cfg, err := LoadFrom(h.yamlPath)
	if err != nil {
		return fmt.Errorf("reload: %w", err)
	}

	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()
	return nil
}
