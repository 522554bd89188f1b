// Package main implements the pipekit runner. It loads a YAML pipeline
// topology, builds it against the default task registry, and drives the
// pipeline until a shutdown signal arrives.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360/pipekit/config"
	"github.com/c360/pipekit/metric"
	"github.com/c360/pipekit/registry"

	// Built-in stages register themselves with the default registry.
	_ "github.com/c360/pipekit/tasks"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "pipekit"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("runner failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("starting pipekit",
		"version", Version,
		"build_time", BuildTime,
		"topology", cliCfg.TopologyPath)

	topology, err := config.Load(cliCfg.TopologyPath)
	if err != nil {
		return fmt.Errorf("load topology: %w", err)
	}

	if cliCfg.Validate {
		// Build resolves task types and binds sockets, so a successful
		// build is a full topology check.
		if _, err := topology.Build(registry.Default, config.WithLogger(logger)); err != nil {
			return fmt.Errorf("invalid topology: %w", err)
		}
		slog.Info("topology is valid", "pipeline", topology.Name)
		return nil
	}

	metricsRegistry := metric.NewRegistry()
	if cliCfg.MetricsAddr != "" {
		startMetricsServer(cliCfg.MetricsAddr, metricsRegistry)
	}

	p, err := topology.Build(registry.Default,
		config.WithLogger(logger),
		config.WithMetrics(metricsRegistry))
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	if err := p.Run(); err != nil {
		return fmt.Errorf("run pipeline: %w", err)
	}

	signalCtx, signalCancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	slog.Info("pipeline running", "pipeline", p.Name(), "blocks", len(p.Blocks()))
	<-signalCtx.Done()
	slog.Info("received shutdown signal")

	p.Stop()

	done := make(chan error, 1)
	go func() { done <- p.Join() }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("pipeline finished with error: %w", err)
		}
	case <-time.After(cliCfg.ShutdownTimeout):
		return fmt.Errorf("shutdown timed out after %s", cliCfg.ShutdownTimeout)
	}

	slog.Info("pipekit shutdown complete")
	return nil
}

// startMetricsServer exposes the Prometheus registry on /metrics. Failures
// are logged, not fatal: the pipeline runs fine without observers.
func startMetricsServer(addr string, reg *metric.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(
		reg.PrometheusRegistry(), promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("metrics server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server failed", "error", err)
		}
	}()
}
