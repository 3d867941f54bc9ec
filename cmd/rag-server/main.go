// Package main serves the question-answering API over HTTP and MCP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/anjanaaa29/rag-reader/internal/app"
	"github.com/anjanaaa29/rag-reader/internal/config"
	"github.com/anjanaaa29/rag-reader/internal/httpapi"
	"github.com/anjanaaa29/rag-reader/internal/logging"
	mcpserver "github.com/anjanaaa29/rag-reader/internal/mcp"
)

const version = "v0.1.0"

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	stdio := flag.Bool("stdio", false, "serve MCP over stdin/stdout; HTTP still serves health and metrics")
	flag.Parse()

	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := run(*configPath, *stdio); err != nil {
		fmt.Fprintf(os.Stderr, "rag-server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, stdio bool) error {
	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// stdout carries the MCP stream in stdio mode, so logs always go to stderr
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	server, err := mcpserver.NewServer(&mcpserver.Config{
		Name:      "rag-reader",
		Version:   version,
		Assistant: a.Assistant,
		Index:     a.Index,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Config{
		Assistant: a.Assistant,
		Health:    mcpserver.NewHealthHandler(a.Health),
		Metrics:   a.Metrics.Gatherer(),
		MCP:       mcpserver.NewHTTPHandler(server, nil),
		Landing:   mcpserver.NewLandingHandler(cfg.App.Name),
		Logger:    logger,
	})
	httpServer := httpapi.NewServer(cfg.Server.Address, router, cfg.Synthesis.Timeout+30*time.Second)

	errc := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "address", cfg.Server.Address, "app", cfg.App.Name)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	if stdio {
		go func() {
			logger.Info("Starting MCP server (stdio mode)")
			errc <- server.Run(ctx)
		}()
	}

	select {
	case <-ctx.Done():
	case err = <-errc:
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("HTTP shutdown failed", "error", shutdownErr)
	}
	logger.Info("Server stopped")
	return err
}
