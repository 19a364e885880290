package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "taskorbit.yaml"

// Load builds a Config from the hierarchy defaults < YAML < ENV.
// A missing YAML file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom is Load with an explicit YAML path.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from our own flag/constant
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// env overlays a parsed environment value onto dst. Empty values leave
// dst alone; unparseable ones do too, so a typo falls back to YAML or
// defaults instead of zeroing the field.
func env[T any](dst *T, key string, parse func(string) (T, error)) {
	raw := os.Getenv(key)
	if raw == "" {
		return
	}
	if v, err := parse(raw); err == nil {
		*dst = v
	}
}

func asIs(s string) (string, error)     { return s, nil }
func asInt(s string) (int, error)       { return strconv.Atoi(s) }
func asInt64(s string) (int64, error)   { return strconv.ParseInt(s, 10, 64) }
func asFloat(s string) (float64, error) { return strconv.ParseFloat(s, 64) }

func asInt32(s string) (int32, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	return int32(n), err
}

func loadEnv(cfg *Config) {
	env(&cfg.Server.Port, "TASKORBIT_PORT", asIs)
	env(&cfg.Server.CORSOrigin, "TASKORBIT_CORS_ORIGIN", asIs)

	env(&cfg.Postgres.DSN, "DATABASE_URL", asIs)
	env(&cfg.Postgres.MaxConns, "TASKORBIT_PG_MAX_CONNS", asInt32)
	env(&cfg.Postgres.MinConns, "TASKORBIT_PG_MIN_CONNS", asInt32)
	env(&cfg.Postgres.MaxConnLifetime, "TASKORBIT_PG_MAX_CONN_LIFETIME", time.ParseDuration)
	env(&cfg.Postgres.MaxConnIdleTime, "TASKORBIT_PG_MAX_CONN_IDLE_TIME", time.ParseDuration)
	env(&cfg.Postgres.HealthCheck, "TASKORBIT_PG_HEALTH_CHECK", time.ParseDuration)

	env(&cfg.NATS.URL, "NATS_URL", asIs)
	env(&cfg.LiteLLM.URL, "LITELLM_URL", asIs)
	env(&cfg.LiteLLM.MasterKey, "LITELLM_MASTER_KEY", asIs)

	env(&cfg.Agent.Model, "TASKORBIT_AGENT_MODEL", asIs)
	env(&cfg.Agent.MaxToolRounds, "TASKORBIT_AGENT_MAX_TOOL_ROUNDS", asInt)
	env(&cfg.Agent.HistoryWindow, "TASKORBIT_AGENT_HISTORY_WINDOW", asInt)
	env(&cfg.Agent.MaxTokens, "TASKORBIT_AGENT_MAX_TOKENS", asInt)
	env(&cfg.Agent.MaxModelCalls, "TASKORBIT_AGENT_MAX_MODEL_CALLS", asInt64)

	env(&cfg.Auth.Enabled, "TASKORBIT_AUTH_ENABLED", strconv.ParseBool)
	env(&cfg.Auth.JWTSecret, "TASKORBIT_JWT_SECRET", asIs)
	env(&cfg.Auth.BcryptCost, "TASKORBIT_BCRYPT_COST", asInt)
	env(&cfg.Auth.AccessTokenExpiry, "TASKORBIT_ACCESS_TOKEN_EXPIRY", time.ParseDuration)
	env(&cfg.Auth.RefreshTokenExpiry, "TASKORBIT_REFRESH_TOKEN_EXPIRY", time.ParseDuration)
	env(&cfg.Auth.DefaultAdminEmail, "TASKORBIT_DEFAULT_ADMIN_EMAIL", asIs)
	env(&cfg.Auth.DefaultAdminPass, "TASKORBIT_DEFAULT_ADMIN_PASS", asIs)

	env(&cfg.Logging.Level, "TASKORBIT_LOG_LEVEL", asIs)
	env(&cfg.Logging.Service, "TASKORBIT_LOG_SERVICE", asIs)
	env(&cfg.Logging.Async, "TASKORBIT_LOG_ASYNC", strconv.ParseBool)

	env(&cfg.Breaker.MaxFailures, "TASKORBIT_BREAKER_MAX_FAILURES", asInt)
	env(&cfg.Breaker.Timeout, "TASKORBIT_BREAKER_TIMEOUT", time.ParseDuration)

	env(&cfg.Rate.RequestsPerSecond, "TASKORBIT_RATE_RPS", asFloat)
	env(&cfg.Rate.Burst, "TASKORBIT_RATE_BURST", asInt)
	env(&cfg.Rate.CleanupInterval, "TASKORBIT_RATE_CLEANUP_INTERVAL", time.ParseDuration)
	env(&cfg.Rate.MaxIdleTime, "TASKORBIT_RATE_MAX_IDLE_TIME", time.ParseDuration)

	env(&cfg.Idempotency.Bucket, "TASKORBIT_IDEMPOTENCY_BUCKET", asIs)
	env(&cfg.Idempotency.TTL, "TASKORBIT_IDEMPOTENCY_TTL", time.ParseDuration)

	env(&cfg.Cache.L1MaxSizeMB, "TASKORBIT_CACHE_L1_SIZE_MB", asInt64)
	env(&cfg.Cache.L2Bucket, "TASKORBIT_CACHE_L2_BUCKET", asIs)
	env(&cfg.Cache.L2TTL, "TASKORBIT_CACHE_L2_TTL", time.ParseDuration)

	env(&cfg.MCP.Enabled, "TASKORBIT_MCP_ENABLED", strconv.ParseBool)
	env(&cfg.MCP.Addr, "TASKORBIT_MCP_ADDR", asIs)
	env(&cfg.MCP.APIKey, "TASKORBIT_MCP_API_KEY", asIs)
	env(&cfg.MCP.UserID, "TASKORBIT_MCP_USER_ID", asIs)

	env(&cfg.Telemetry.Enabled, "TASKORBIT_TELEMETRY_ENABLED", strconv.ParseBool)
	env(&cfg.Telemetry.OTLPEndpoint, "TASKORBIT_OTLP_ENDPOINT", asIs)
}

// validate rejects configs the server cannot start with. Checks that
// only matter when a subsystem is enabled are scoped to that flag.
func validate(cfg *Config) error {
	switch {
	case cfg.Server.Port == "":
		return errors.New("server.port is required")
	case cfg.Postgres.DSN == "":
		return errors.New("postgres.dsn is required")
	case cfg.Postgres.MaxConns < 1:
		return errors.New("postgres.max_conns must be >= 1")
	case cfg.NATS.URL == "":
		return errors.New("nats.url is required")
	case cfg.Agent.Model == "":
		return errors.New("agent.model is required")
	case cfg.Agent.MaxToolRounds < 1:
		return errors.New("agent.max_tool_rounds must be >= 1")
	case cfg.Agent.HistoryWindow < 1:
		return errors.New("agent.history_window must be >= 1")
	case cfg.Auth.Enabled && cfg.Auth.JWTSecret == "":
		return errors.New("auth.jwt_secret is required when auth is enabled")
	case cfg.Breaker.MaxFailures < 1:
		return errors.New("breaker.max_failures must be >= 1")
	case cfg.Rate.Burst < 1:
		return errors.New("rate.burst must be >= 1")
	case cfg.MCP.Enabled && cfg.MCP.UserID == "":
		return errors.New("mcp.user_id is required when mcp is enabled")
	}
	return nil
}
