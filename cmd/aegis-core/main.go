// Package main is the entry point for the aegis-core binary: the admission
// control and audit service that fronts the governance-check API.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/aegisai/aegis-core/internal/server"
	"github.com/aegisai/aegis-core/pkg/audit"
	"github.com/aegisai/aegis-core/pkg/config"
	"github.com/aegisai/aegis-core/pkg/domain"
	"github.com/aegisai/aegis-core/pkg/logging"
	"github.com/aegisai/aegis-core/pkg/ratelimit"
	"github.com/aegisai/aegis-core/pkg/scoring"
	"github.com/aegisai/aegis-core/pkg/storage"
	"github.com/aegisai/aegis-core/pkg/telemetry"
)

const defaultConfigPath = "config.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	listenAddr := flag.String("listen", "", "Address to listen on (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error; overrides config)")
	prettyLogs := flag.Bool("pretty", false, "Enable pretty console logging")
	flag.Parse()

	// Local development convenience; absent .env files are not an error.
	_ = godotenv.Load()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.Server.ListenAddr = *listenAddr
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}
	if *prettyLogs {
		cfg.Logging.Pretty = true
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
	})
	slog.SetDefault(logger)

	logger.Info("Starting aegis-core", "config", *configPath, "listen", cfg.Server.ListenAddr)

	ctx := context.Background()

	shutdownTracing, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: "aegis-core",
		Endpoint:    cfg.Telemetry.OTLPEndpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})
	if err != nil {
		logger.Error("Failed to initialize tracing", "error", err)
		os.Exit(1)
	}

	metrics := telemetry.NewMetrics()

	// Durable store: Postgres in production, in-memory when no database is
	// configured (development only; entries do not survive the process).
	var batchStore domain.BatchStore
	var pg *storage.Postgres
	if cfg.Storage.DatabaseURL != "" {
		pg, err = storage.NewPostgres(ctx, cfg.Storage.DatabaseURL)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		batchStore = pg
		logger.Info("Audit storage ready", "backend", "postgres")
	} else {
		batchStore = storage.NewMemory()
		logger.Warn("No database configured - audit entries are held in memory only")
	}

	limiterOpts := []ratelimit.Option{
		ratelimit.WithLogger(logger),
		ratelimit.WithMetrics(metrics),
	}
	var redisClient *redis.Client
	if cfg.RateLimit.RedisURL != "" {
		redisOpts, err := redis.ParseURL(cfg.RateLimit.RedisURL)
		if err != nil {
			logger.Error("Invalid Redis URL", "error", err)
			os.Exit(1)
		}
		redisClient = redis.NewClient(redisOpts)
		limiterOpts = append(limiterOpts, ratelimit.WithRedisStore(ratelimit.NewRedisStore(redisClient)))
	}

	limiter := ratelimit.New(ratelimit.Config{
		DefaultLimit:  cfg.RateLimit.DefaultLimit,
		DefaultWindow: cfg.RateLimit.DefaultWindow,
		MaxBucketAge:  cfg.RateLimit.BucketMaxAge,
		SweepInterval: cfg.RateLimit.SweepInterval,
	}, limiterOpts...)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	go limiter.Run(sweepCtx)

	pipeline := audit.NewPipeline(batchStore, audit.Config{
		QueueCapacity: cfg.Audit.QueueCapacity,
		BatchSize:     cfg.Audit.BatchSize,
		FlushInterval: cfg.Audit.FlushInterval,
	}, audit.WithLogger(logger), audit.WithMetrics(metrics))
	pipeline.Start()

	srv := server.New(server.Config{RiskThreshold: cfg.Scoring.RiskThreshold},
		limiter, pipeline, scoring.NewFlagScorer(), nil, metrics, logger)
	if err := srv.Start(cfg.Server.ListenAddr); err != nil {
		logger.Error("Failed to start server", "addr", cfg.Server.ListenAddr, "error", err)
		os.Exit(1)
	}

	waitForSignal(logger)

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()

	// Stop intake first, then drain the pipeline so every accepted audit entry
	// gets its final flush before stores close.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", "error", err)
	}
	if err := pipeline.Stop(shutdownCtx); err != nil {
		logger.Error("Audit pipeline shutdown error", "error", err)
	}
	stopSweep()

	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Error("Tracing shutdown error", "error", err)
	}
	if pg != nil {
		pg.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}

	logger.Info("Shutdown complete")
}

// loadConfig tolerates a missing default config file so the binary runs with
// env-only configuration out of the box.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Load("")
		}
	}
	return config.Load(path)
}

func waitForSignal(logger *slog.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sigCh
	logger.Info("Shutting down", "signal", sig.String())
}
