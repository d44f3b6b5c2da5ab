package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"

	"todo-tracker/internal/config"
	"todo-tracker/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Error("failed to load config", "err", err)
		return 1
	}

	logger := logging.New(cfg.Log)

	app, err := newApplication(cfg, logger)
	if err != nil {
		logger.Error("failed to start", "err", err)
		return 1
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("failed to release resources", "err", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.serve(ctx); err != nil {
		logger.Error("server stopped", "err", err)
		return 1
	}
	logger.Info("server stopped")
	return 0
}
