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

	"github.com/brattlof/shipboard/internal/app/config"
	"github.com/brattlof/shipboard/internal/app/logging"
	"github.com/brattlof/shipboard/internal/app/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	app, err := server.NewFromConfig(cfg, logger, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating server: %v\n", err)
		os.Exit(1)
	}

	for _, route := range app.Routes() {
		slog.Debug("Route", "method", route.Method, "pattern", route.Pattern, "type", route.Type)
	}

	srv := server.HTTPServer(cfg, app.Handler())

	go func() {
		slog.Info("Starting Shipboard server",
			"addr", cfg.Addr(),
			"version", version,
			"commit", commit,
			"built", date,
			"upstream", cfg.Upstream.BaseURL,
			"config", cfg.File,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited")
}
