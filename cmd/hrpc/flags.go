package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration.
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Debug           bool
	ShutdownTimeout time.Duration
	NATSURL         string
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
	PrintConfig     bool
	PrintPlugin     bool
	PrintService    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("HRPC_CLI_CONFIG", ""),
		"Path to configuration file, JSON or YAML (env: HRPC_CLI_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv("HRPC_CLI_CONFIG", ""),
		"Path to configuration file, JSON or YAML (env: HRPC_CLI_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("HRPC_CLI_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: HRPC_CLI_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("HRPC_CLI_LOG_FORMAT", "json"),
		"Log format: json, text (env: HRPC_CLI_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool("HRPC_CLI_DEBUG", false),
		"Enable debug mode (env: HRPC_CLI_DEBUG)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("HRPC_CLI_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: HRPC_CLI_SHUTDOWN_TIMEOUT)")

	flag.StringVar(&cfg.NATSURL, "nats-url",
		getEnv("HRPC_CLI_NATS_URL", ""),
		"NATS server URL; empty disables the NATS transport (env: HRPC_CLI_NATS_URL)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")
	flag.BoolVar(&cfg.PrintConfig, "print-config", false, "Print resolved configuration and exit")
	flag.BoolVar(&cfg.PrintPlugin, "print-plugins", false, "Print registered plugins and exit")
	flag.BoolVar(&cfg.PrintService, "print-services", false, "Print registered services and exit")

	flag.Usage = printDetailedHelp
	flag.Parse()

	if cfg.Debug {
		cfg.LogLevel = "debug"
	}
	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	switch cfg.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format %q", cfg.LogFormat)
	}
	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("shutdown timeout must be positive")
	}
	return nil
}

func printDetailedHelp() {
	fmt.Printf(`%s - hRPC server

Usage:
  %s [flags]

Flags:
`, appName, appName)
	flag.PrintDefaults()
	fmt.Printf(`
Configuration:
  Fields are loaded from the config file, then HRPC_<FIELD> environment
  variables. Run with --print-config to see the resolved values.

Examples:
  %s --config configs/app.yaml
  %s --print-plugins
  HRPC_PORT=9000 %s --log-format text
`, appName, appName, appName)
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
