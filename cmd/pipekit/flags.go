package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	TopologyPath    string
	LogLevel        string
	LogFormat       string
	MetricsAddr     string
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.TopologyPath, "topology",
		getEnv("PIPEKIT_TOPOLOGY", "topology.yaml"),
		"Path to pipeline topology file (env: PIPEKIT_TOPOLOGY)")

	flag.StringVar(&cfg.TopologyPath, "t",
		getEnv("PIPEKIT_TOPOLOGY", "topology.yaml"),
		"Path to pipeline topology file (env: PIPEKIT_TOPOLOGY)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("PIPEKIT_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: PIPEKIT_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("PIPEKIT_LOG_FORMAT", "json"),
		"Log format: json, text (env: PIPEKIT_LOG_FORMAT)")

	flag.StringVar(&cfg.MetricsAddr, "metrics-addr",
		getEnv("PIPEKIT_METRICS_ADDR", ""),
		"Prometheus /metrics listen address, empty to disable (env: PIPEKIT_METRICS_ADDR)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("PIPEKIT_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: PIPEKIT_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate the topology and exit")

	flag.Usage = printDetailedHelp

	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if _, err := os.Stat(cfg.TopologyPath); err != nil {
		return fmt.Errorf("topology file not found: %s", cfg.TopologyPath)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - Dataflow Pipeline Runner

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run a topology
  %s --topology=/path/to/topology.yaml

  # Run with debug logging and a metrics endpoint
  %s --log-level=debug --log-format=text --metrics-addr=:9090

  # Validate a topology only
  %s --topology=/path/to/topology.yaml --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
