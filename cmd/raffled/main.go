// raffled runs the raffle engine HTTP service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/R3E-Network/raffle-engine/internal/app/runtime"
	"github.com/R3E-Network/raffle-engine/internal/config"
	"github.com/R3E-Network/raffle-engine/pkg/logger"
)

func main() {
	// Missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	log := logger.NewDefault("raffled")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	app, err := runtime.New(cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to build application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- app.Run() }()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.WithError(err).Error("server exited")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown incomplete")
		os.Exit(1)
	}
}
