// Package main implements the hrpc server entry point. It assembles an app
// with the built-in plugins and the bundled Echo service, boots it against
// the layered configuration, and serves the RPC API over HTTP and,
// optionally, NATS.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/guyskk/weirb-hrpc/app"
	"github.com/guyskk/weirb-hrpc/config"
	hrpchttp "github.com/guyskk/weirb-hrpc/gateway/http"
	hrpcnats "github.com/guyskk/weirb-hrpc/gateway/nats"
	cacheplugin "github.com/guyskk/weirb-hrpc/plugins/cache"
	"github.com/guyskk/weirb-hrpc/plugins/ratelimit"
)

// Build information constants.
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "hrpc"
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
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	// .env is optional; real environment wins over it.
	_ = godotenv.Load()

	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	a, err := buildApp(cliCfg)
	if err != nil {
		return err
	}

	if done := handleIntrospection(cliCfg, a); done {
		return nil
	}
	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	return serve(cliCfg, a)
}

// initializeCLI parses flags and sets up logging.
func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting hrpc server",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)
	return cliCfg, false, nil
}

// buildApp registers the built-in plugins and the bundled services, then
// boots against the layered configuration.
func buildApp(cliCfg *CLIConfig) (*app.App, error) {
	a := app.New(app.WithLogger(slog.Default()))

	if err := a.RegisterPlugin(ratelimit.New()); err != nil {
		return nil, fmt.Errorf("register ratelimit plugin: %w", err)
	}
	if err := a.RegisterPlugin(cacheplugin.New()); err != nil {
		return nil, fmt.Errorf("register cache plugin: %w", err)
	}

	echo, err := newEchoService()
	if err != nil {
		return nil, fmt.Errorf("build echo service: %w", err)
	}
	if err := a.RegisterService(echo); err != nil {
		return nil, fmt.Errorf("register echo service: %w", err)
	}

	var loaderOpts []config.LoaderOption
	if cliCfg.ConfigPath != "" {
		loaderOpts = append(loaderOpts, config.WithFile(cliCfg.ConfigPath))
	}
	if cliCfg.Debug {
		loaderOpts = append(loaderOpts, config.WithOverride("debug", true))
	}

	if err := a.Boot(config.NewLoader(loaderOpts...)); err != nil {
		return nil, fmt.Errorf("boot: %w", err)
	}
	return a, nil
}

// handleIntrospection prints the requested boot tables. CLI flags and the
// print_* configuration fields both trigger it.
func handleIntrospection(cliCfg *CLIConfig, a *app.App) bool {
	snap := a.Snapshot()
	printed := false
	if cliCfg.PrintConfig || snap.GetBool("print_config", false) {
		printConfigTable(a)
		printed = true
	}
	if cliCfg.PrintPlugin || snap.GetBool("print_plugin", false) {
		printPluginTable(a)
		printed = true
	}
	if cliCfg.PrintService || snap.GetBool("print_service", false) {
		printServiceTable(a)
		printed = true
	}
	return printed
}

// serve runs the transports until a shutdown signal arrives.
func serve(cliCfg *CLIConfig, a *app.App) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	httpServer := hrpchttp.NewServer(a)

	var natsServer *hrpcnats.Server
	if cliCfg.NATSURL != "" {
		var err error
		natsServer, err = hrpcnats.NewServer(a,
			hrpcnats.WithURL(cliCfg.NATSURL),
			hrpcnats.WithName(appName),
		)
		if err != nil {
			return fmt.Errorf("create nats transport: %w", err)
		}
		if err := natsServer.Start(signalCtx); err != nil {
			return fmt.Errorf("start nats transport: %w", err)
		}
		defer func() {
			if err := natsServer.Shutdown(cliCfg.ShutdownTimeout); err != nil {
				slog.Error("nats shutdown", "error", err)
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Start(signalCtx) }()
	slog.Info("hrpc server started", "addr", httpServer.Addr())

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-signalCtx.Done():
		slog.Info("Received shutdown signal")
	}

	if err := httpServer.Shutdown(cliCfg.ShutdownTimeout); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	slog.Info("hrpc shutdown complete")
	return nil
}
