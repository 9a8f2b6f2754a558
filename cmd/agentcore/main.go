// Command agentcore runs the research agent HTTP server.
//
// Usage:
//
//	agentcore --config config.yaml --agents extra-agents.yaml
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/sgrlabs/agentcore/internal/config"
	"github.com/sgrlabs/agentcore/internal/httpapi"
	"github.com/sgrlabs/agentcore/internal/logging"
	"github.com/sgrlabs/agentcore/internal/metrics"
	"github.com/sgrlabs/agentcore/internal/session"
	"github.com/sgrlabs/agentcore/internal/tracing"
)

// CLI is the command-line interface, parsed by kong.
type CLI struct {
	Config   string `short:"c" help:"Path to the main config YAML file." type:"path"`
	Agents   string `help:"Path to an additional agents YAML file, merged additively." type:"path"`
	Host     string `help:"Override the configured listen host."`
	Port     int    `help:"Override the configured listen port."`
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"info"`
}

func main() {
	var cli CLI
	kong.Parse(&cli, kong.Description("Research agent core server."))

	if err := run(cli); err != nil {
		fmt.Fprintln(os.Stderr, "agentcore:", err)
		os.Exit(1)
	}
}

func run(cli CLI) error {
	logging.Init(logging.ParseLevel(cli.LogLevel), os.Stderr)
	logger := logging.Component("main")

	cfg, err := config.Load(cli.Config, cli.Agents)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cli.Host != "" {
		cfg.Server.Host = cli.Host
	}
	if cli.Port != 0 {
		cfg.Server.Port = cli.Port
	}
	if err := session.ValidateDefinitions(cfg.Agents); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracer shutdown failed", "err", err)
		}
	}()

	m := metrics.New()
	reg := session.New(ctx, cfg.Agents, m)

	handler := httpapi.NewRouter(reg, m)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 30 * time.Second,
		// No WriteTimeout: chat-completions responses are long-lived SSE
		// streams that can legitimately run far longer than any fixed cap.
		IdleTimeout: 120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "address", addr, "agents", len(cfg.Agents))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		reg.Close()
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		// Cancel every running session's context first, so each one races
		// to its own ctx.Done() branch, marks itself Failed, and pushes a
		// final SSE frame; only then does draining the HTTP connections in
		// Shutdown actually make progress instead of waiting out the full
		// timeout with every SSE handler still blocked mid-stream.
		reg.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
