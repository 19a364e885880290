package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	tohttp "github.com/Strob0t/TaskOrbit/internal/adapter/http"
	"github.com/Strob0t/TaskOrbit/internal/adapter/litellm"
	"github.com/Strob0t/TaskOrbit/internal/adapter/mcp"
	tonats "github.com/Strob0t/TaskOrbit/internal/adapter/nats"
	"github.com/Strob0t/TaskOrbit/internal/adapter/natskv"
	"github.com/Strob0t/TaskOrbit/internal/adapter/otel"
	"github.com/Strob0t/TaskOrbit/internal/adapter/postgres"
	"github.com/Strob0t/TaskOrbit/internal/adapter/ristretto"
	"github.com/Strob0t/TaskOrbit/internal/adapter/tiered"
	"github.com/Strob0t/TaskOrbit/internal/adapter/ws"
	"github.com/Strob0t/TaskOrbit/internal/config"
	"github.com/Strob0t/TaskOrbit/internal/logger"
	"github.com/Strob0t/TaskOrbit/internal/middleware"
	"github.com/Strob0t/TaskOrbit/internal/resilience"
	"github.com/Strob0t/TaskOrbit/internal/service"
	"github.com/Strob0t/TaskOrbit/internal/tools"
)

const appVersion = "0.1.0"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	flags, err := config.ParseFlags(args)
	if err != nil {
		return err
	}

	cfg, yamlPath, err := config.LoadWithCLI(flags)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log, logCloser := logger.New(cfg.Logging)
	defer logCloser.Close()
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"auth", cfg.Auth.Enabled,
		"mcp", cfg.MCP.Enabled,
		"telemetry", cfg.Telemetry.Enabled,
	)

	holder := config.NewHolder(cfg, yamlPath)
	stopReload := watchReload(holder)
	defer stopReload()

	ctx := context.Background()

	// --- Telemetry ---

	if cfg.Telemetry.Enabled {
		otelShutdown, err := otel.Setup(ctx, &cfg.Telemetry, cfg.Logging.Service)
		if err != nil {
			return fmt.Errorf("telemetry: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(sctx); err != nil {
				slog.Warn("telemetry shutdown", "error", err)
			}
		}()
	}

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := tonats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	// Conversation list cache: in-process L1 over a shared JetStream KV L2.
	l1, err := ristretto.New(cfg.Cache.L1MaxSizeMB << 20)
	if err != nil {
		return fmt.Errorf("l1 cache: %w", err)
	}
	defer l1.Close()

	l2Bucket, err := queue.KeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL)
	if err != nil {
		return fmt.Errorf("l2 cache bucket: %w", err)
	}
	listCache := tiered.New(l1, natskv.New(l2Bucket), time.Minute)

	llmClient := litellm.NewClient(cfg.LiteLLM.URL, cfg.LiteLLM.MasterKey)
	llmClient.SetBreaker(resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout))

	// --- Services ---

	store := postgres.NewStore(pool)
	taskSvc := service.NewTaskService(store, queue)
	convSvc := service.NewConversationService(store, listCache, queue, cfg.Cache.L2TTL)
	registry := tools.NewRegistry(taskSvc.WithSource(service.SourceChat))
	chatSvc := service.NewChatService(store, llmClient, registry, queue, convSvc, &cfg.Agent)
	authSvc := service.NewAuthService(store, &cfg.Auth)

	// The seeded admin owns user.DefaultID, so rows written while auth is
	// disabled have a valid owner.
	if err := authSvc.SeedDefaultAdmin(ctx); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}

	if cfg.Telemetry.Enabled {
		metrics, err := otel.NewMetrics()
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		chatSvc.SetMetrics(metrics)
	}

	// --- HTTP ---

	limiter := middleware.NewRateLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst)
	stopCleanup := limiter.StartCleanup(cfg.Rate.CleanupInterval, cfg.Rate.MaxIdleTime)
	defer stopCleanup()

	idemBucket, err := queue.KeyValue(ctx, cfg.Idempotency.Bucket, cfg.Idempotency.TTL)
	if err != nil {
		return fmt.Errorf("idempotency bucket: %w", err)
	}

	r := chi.NewRouter()
	r.Use(tohttp.CORS(cfg.Server.CORSOrigin))
	r.Use(tohttp.SecurityHeaders)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(tohttp.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	if cfg.Telemetry.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}
	r.Use(limiter.Handler)
	r.Use(middleware.Auth(authSvc, cfg.Auth.Enabled))
	// After Auth: replayed responses must not shortcut token validation.
	r.Use(middleware.Idempotency(idemBucket))

	// WebSocket hub fed by the NATS event bridge.
	hub := ws.NewHub()
	stopBridge, err := hub.StartEventBridge(ctx, queue)
	if err != nil {
		return fmt.Errorf("event bridge: %w", err)
	}
	defer stopBridge()
	r.Get("/ws", hub.HandleWS)

	handlers := &tohttp.Handlers{
		Chat:          chatSvc,
		Conversations: convSvc,
		Tasks:         taskSvc,
		Auth:          authSvc,
		LiteLLM:       llmClient,
		DB:            pool,
		Queue:         queue,
	}
	tohttp.MountRoutes(r, handlers)

	// --- MCP (optional) ---

	if cfg.MCP.Enabled {
		mcpSrv := mcp.NewServer(mcp.ServerConfig{
			Addr:    cfg.MCP.Addr,
			Name:    "taskorbit",
			Version: appVersion,
			APIKey:  cfg.MCP.APIKey,
			UserID:  cfg.MCP.UserID,
		}, mcp.ServerDeps{
			Tools: tools.NewRegistry(taskSvc.WithSource(service.SourceMCP)),
		})
		if err := mcpSrv.Start(); err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := mcpSrv.Stop(sctx); err != nil {
				slog.Warn("mcp shutdown", "error", err)
			}
		}()
	}

	// --- Serve ---

	addr := ":" + cfg.Server.Port

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	// Let in-flight queue handlers finish before the connection drops.
	if err := queue.Drain(); err != nil {
		slog.Warn("nats drain", "error", err)
	}
	return nil
}

// watchReload re-reads the config on SIGHUP. Only the log level takes
// effect live; everything else applies on restart.
func watchReload(holder *config.Holder) func() {
	reload := make(chan os.Signal, 1)
	signal.Notify(reload, syscall.SIGHUP)

	go func() {
		for range reload {
			if err := holder.Reload(); err != nil {
				slog.Error("config reload failed", "error", err)
				continue
			}
			cfg := holder.Get()
			logger.SetLevel(cfg.Logging.Level)
			slog.Info("config reloaded", "log_level", cfg.Logging.Level)
		}
	}()

	return func() { signal.Stop(reload); close(reload) }
}
