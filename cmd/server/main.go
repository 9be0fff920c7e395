package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/strayspot/territories/internal/config"
	"github.com/strayspot/territories/internal/database"
	"github.com/strayspot/territories/internal/handler/health"
	"github.com/strayspot/territories/internal/server"
	"github.com/strayspot/territories/internal/territory"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, stdout io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	// --- Range policy ---
	policy, err := cfg.RangePolicy()
	if err != nil {
		return fmt.Errorf("loading range policy: %w", err)
	}
	estimator := territory.NewEstimator(policy)
	logger.Info("range policy loaded", "file", cfg.RangePolicyFile, "types", policy.Tags())

	// --- SQLite ---
	db, err := database.Open(ctx, cfg.DBPath)
	if err != nil {
		return fmt.Errorf("connecting to sqlite: %w", err)
	}
	defer db.Close()

	store, err := server.NewDocStore(ctx, db)
	if err != nil {
		return fmt.Errorf("initializing store: %w", err)
	}
	logger.Info("connected to sqlite", "path", cfg.DBPath)

	if cfg.SeedDemo {
		if err := server.SeedDemo(ctx, logger, store, estimator); err != nil {
			return fmt.Errorf("seeding demo data: %w", err)
		}
	}

	tokens, err := server.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("configuring tokens: %w", err)
	}

	// --- HTTP Server ---
	srv := server.New(cfg.HTTPAddr, logger, server.Deps{
		Store:     store,
		Estimator: estimator,
		Tokens:    tokens,
		Metrics:   server.NewMetrics(),
		Broker:    server.NewBroker(),
		Checks: map[string]health.Checker{
			"sqlite": database.Checker{DB: db},
		},
		CORSOrigins:   cfg.CORSOrigins,
		AuthRateLimit: cfg.AuthRateLimit,
		SPADir:        cfg.SPADir,
	})

	// --- Run ---
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting http server", "addr", cfg.HTTPAddr)
		return srv.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})

	return g.Wait()
}
