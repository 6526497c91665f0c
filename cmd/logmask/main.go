// logmask runs the PII masking engine either as an HTTP sidecar or, with
// -stdin, as a filter that masks newline-delimited JSON log records.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/codeready-toolchain/logmask/pkg/api"
	"github.com/codeready-toolchain/logmask/pkg/config"
	"github.com/codeready-toolchain/logmask/pkg/logger"
	"github.com/codeready-toolchain/logmask/pkg/logging"
	"github.com/codeready-toolchain/logmask/pkg/policy"
	"github.com/codeready-toolchain/logmask/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to configuration directory")
	stdin := flag.Bool("stdin", false,
		"Mask newline-delimited JSON records from stdin instead of serving HTTP")
	flag.Parse()

	// Load .env file from config directory
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Debug("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Initialize(ctx, *configDir)
	if err != nil {
		var cfgErr *policy.ConfigurationError
		if errors.As(err, &cfgErr) {
			slog.Error("Invalid masking policy",
				"source", cfgErr.Source,
				"field", cfgErr.Field,
				"index", cfgErr.Index,
				"error", cfgErr.Err)
		}
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	diag, syncDiag, err := logging.New(logging.Options{
		Format: cfg.Diagnostics.Format,
		Level:  cfg.Diagnostics.Level,
	})
	if err != nil {
		slog.Error("Failed to create diagnostics logger", "error", err)
		os.Exit(1)
	}
	defer syncDiag()
	slog.SetDefault(diag)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	l, err := cfg.NewLogger(config.BuildOptions{
		Diagnostics: diag,
		Registerer:  reg,
	})
	if err != nil {
		slog.Error("Failed to create logger", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting logmask",
		"version", version.Full(),
		"config_dir", *configDir,
		"stdin", *stdin,
		"logger", l.Name())

	if *stdin {
		err = runFilter(ctx, l, os.Stdin, int(cfg.Server.MaxBodyBytes))
	} else {
		err = serve(ctx, cfg, l, reg)
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if cerr := l.Close(closeCtx); cerr != nil {
		slog.Error("Failed to flush logger", "error", cerr)
	}

	if err != nil {
		slog.Error("logmask stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Shutdown complete")
}

// serve runs the HTTP API until ctx is cancelled or the server fails.
func serve(ctx context.Context, cfg *config.Config, l *logger.Logger, reg *prometheus.Registry) error {
	server := api.NewServer(api.Options{
		Logger:       l,
		Gatherer:     reg,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		Diagnostics:  slog.Default(),
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(":" + cfg.Server.Port)
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
