package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portfoliovault/config"
	"portfoliovault/internal/app"
	"portfoliovault/pkg/logger"
	"portfoliovault/router"
)

func main() {
	// Load .env (optional) and the environment into a typed config.
	cfg, envLoaded, err := config.Load()
	logger.Init(cfg.LogLevel)
	defer logger.Sync()
	if err != nil {
		logger.Sugar.Fatalf("Invalid configuration: %v", err)
	}
	if !envLoaded {
		logger.Sugar.Info("No .env file found, using environment variables from OS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Open the store and load the vault once at startup.
	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Sugar.Fatalf("Failed to start: %v", err)
	}
	defer a.Close()
	a.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Setup(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Sugar.Infof("Portfolio vault listening on :%s (store=%s)", cfg.Port, cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("Graceful shutdown failed: %v", err)
	}
}
