package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/markdave123-py/contexta-ingest/internal/app"
	"github.com/markdave123-py/contexta-ingest/internal/config"
	"github.com/markdave123-py/contexta-ingest/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg := config.LoadConfig()
	log := logging.New(cfg.LogLevel, cfg.LogJSON)
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	application, err := app.NewApp(ctx, cfg, app.WithLogger(log))
	if err != nil {
		log.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	go func() {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := application.Embedder.CheckReady(checkCtx); err != nil {
			log.Warn("embedding service not ready", "error", err)
			return
		}
		log.Info("embedding service ready", "model", application.Embedder.Model())
	}()

	server := app.NewServer(application)
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	log.Info("document processing server started", "port", cfg.Port, "model", cfg.EmbedModel, "uploads", cfg.UploadDir)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			log.Error("server error", "error", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}
	log.Info("server shut down")
}
