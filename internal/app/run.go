package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"

	"header-rules/internal/common/logging"
	"header-rules/internal/config"
)

const version = "1.0.0"

// Run is the main entry point for the application
func Run() error {
	_ = godotenv.Load()

	var once bool
	flag.BoolVar(&once, "once", false, "Run a single sync and exit")
	flag.Parse()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	closeLog, err := logging.Setup(cfg.LogLevel, cfg.LogFormat, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closeLog()

	logging.Info("Starting header rules engine",
		logging.Int("cpus", runtime.NumCPU()),
		logging.String("version", version),
		logging.String("storage", cfg.StorageType),
	)

	app, err := New(cfg)
	if err != nil {
		logging.Error("Failed to initialize application", err)
		return err
	}
	defer app.Cleanup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if once {
		report, err := app.Sync(ctx, TriggerAPI)
		if err != nil {
			logging.Error("Sync failed", err)
			return err
		}
		logging.Info("Sync finished",
			logging.Int("emitted", report.Summary.Emitted),
			logging.Int("failed", report.Summary.Failed),
		)
		return nil
	}

	if err := app.Start(ctx); err != nil {
		logging.Error("Failed to start background work", err)
		return err
	}

	srv, _, err := app.RunServer()
	if err != nil {
		logging.Error("Failed to build server", err)
		return err
	}
	if err := srv.Start(); err != nil {
		logging.Error("Server failed to start", err)
		return err
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logging.Info("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logging.Warn("Error during app shutdown", logging.Err(err))
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server forced to shutdown", err)
		return err
	}

	logging.Info("Server exited")
	return nil
}
