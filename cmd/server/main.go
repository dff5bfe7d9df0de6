// Command server runs the classpoint HTTP API.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/lhtc/classpoint/config"
	"github.com/lhtc/classpoint/internal/app"
	"github.com/lhtc/classpoint/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAIN
// ══════════════════════════════════════════════════════════════════════════════

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. Configuration
	// ─────────────────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. Logger
	// ─────────────────────────────────────────────────────────────────────────
	log := app.NewLogger(cfg, os.Stdout)
	log.Info("starting classpoint",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("storage", string(cfg.Storage.Driver)),
		logger.Any("features", cfg.Features.Enabled()),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. Application
	// ─────────────────────────────────────────────────────────────────────────
	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to start: %w", err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown completed with errors", logger.Err(err))
			return
		}
		log.Info("shutdown completed successfully")
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP API until a signal arrives
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("classpoint api listening", logger.String("address", cfg.HTTPAddr()))
	return a.Serve(ctx)
}
