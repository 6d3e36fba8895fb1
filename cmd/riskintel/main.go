// Riskintel - disclosure compliance evaluation service.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/api"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/bus"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/cache"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/conflict"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/domain"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/evaluate"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/exclusion"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/repository"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/rules"
	"github.com/nick-gallo-ethico/risk-intelligence-platform-sub002/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("RISKINTEL_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("starting riskintel",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Distributed mode swaps SQLite/channel/memory for Postgres/NATS/Redis
	if os.Getenv("RISKINTEL_MODE") == "distributed" {
		cfg = domain.DistributedConfig()
		slog.Info("running in distributed mode")
	}
	applyEnvOverrides(cfg)

	slog.Info("configuration loaded",
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize the CEL expression engine. Programs compile lazily and are
	// cached per rule; nothing to preload here.
	exprs, err := rules.NewExprEngine()
	if err != nil {
		slog.Error("failed to initialize expression engine", "error", err)
		os.Exit(1)
	}

	// Threshold rule orchestrator with rolling-window aggregates
	orchestrator := rules.NewOrchestrator(repo, rules.NewCalculator(repo), exprs, cacheImpl)
	slog.Info("rule orchestrator initialized")

	// Exclusion registry and conflict detector
	registry := exclusion.NewRegistry(repo)
	strategies := conflict.DefaultStrategies(repo, cacheImpl)
	detector := conflict.NewDetector(registry, strategies...)
	slog.Info("conflict detector initialized", "strategies", len(strategies))

	// Evaluation pipeline
	svc := evaluate.New(repo, orchestrator, detector, busImpl, cacheImpl, cfg.Match)
	slog.Info("evaluation service initialized")

	// Async worker consumes disclosure submissions from the bus
	var asyncWorker *worker.Worker
	if os.Getenv("RISKINTEL_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, svc)

		var orgIDs []string
		if envOrgs := os.Getenv("RISKINTEL_ORGS"); envOrgs != "" {
			for _, id := range strings.Split(envOrgs, ",") {
				if id = strings.TrimSpace(id); id != "" {
					orgIDs = append(orgIDs, id)
				}
			}
		}

		if err := asyncWorker.Start(worker.Config{OrgIDs: orgIDs}); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "org_count", len(orgIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, svc, registry, exprs, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("riskintel is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first so in-flight evaluations drain
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("riskintel shutdown complete")
}

// applyEnvOverrides lets single settings be changed without switching the
// whole mode.
func applyEnvOverrides(cfg *domain.Config) {
	if v := os.Getenv("RISKINTEL_SQLITE_PATH"); v != "" {
		cfg.Repository.SQLitePath = v
	}
	if v := os.Getenv("RISKINTEL_POSTGRES_HOST"); v != "" {
		cfg.Repository.Driver = "postgres"
		cfg.Repository.PostgresHost = v
	}
	if v := os.Getenv("RISKINTEL_POSTGRES_DB"); v != "" {
		cfg.Repository.PostgresDB = v
	}
	if v := os.Getenv("RISKINTEL_REDIS_ADDR"); v != "" {
		cfg.Cache.Type = "redis"
		cfg.Cache.RedisAddr = v
	}
	if v := os.Getenv("RISKINTEL_NATS_URL"); v != "" {
		cfg.EventBus.Type = "nats"
		cfg.EventBus.NATSUrl = v
	}
	if v := os.Getenv("RISKINTEL_PORT"); v != "" {
		var port int
		if _, err := fmt.Sscanf(v, "%d", &port); err == nil && port > 0 {
			cfg.Server.Port = port
		}
	}
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║              RISKINTEL                    ║")
	fmt.Println("  ║   Disclosure Compliance Evaluation        ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /evaluate                    - Evaluate a disclosure")
	fmt.Println("    GET  /disclosures/{id}            - Get disclosure by ID")
	fmt.Println("    GET  /alerts                      - List conflict alerts")
	fmt.Println("    POST /alerts/{id}/dismiss         - Dismiss an alert")
	fmt.Println("    POST /alerts/{id}/escalate        - Escalate an alert to a case")
	fmt.Println("    POST /alerts/{id}/resolve         - Resolve an alert")
	fmt.Println("    GET  /exclusions                  - List exclusions")
	fmt.Println("    POST /exclusions                  - Create an exclusion")
	fmt.Println("    GET  /rules                       - List threshold rules")
	fmt.Println("    POST /rules                       - Create a threshold rule")
	fmt.Println("    GET  /entities/{name}/timeline    - Entity alert history")
	fmt.Println("    GET  /health                      - Health check")
	fmt.Println()
}
