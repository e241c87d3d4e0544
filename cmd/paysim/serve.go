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

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	paysim "github.com/corebank/paysim"
	transferhttp "github.com/corebank/paysim/http"
	"github.com/corebank/paysim/observability"
	ginadapter "github.com/corebank/paysim/pkg/gin"
)

const shutdownGrace = 10 * time.Second

type serveOptions struct {
	*rootOptions
	ConfigFile string
}

func newServeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &serveOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the transfer simulator HTTP server",
		Long: `Start the payments simulator.

Configuration comes from the environment (FAULT_RATE, EXTRA_LATENCY_MS,
LATENCY_JITTER_MS, TIMEOUT_MS, RANDOM_SEED, MAX_CACHE_SIZE,
CACHE_TTL_SECONDS, PORT), optionally seeded from a .env file and a YAML
config file. Environment variables take precedence over the file.

Example:
  paysim serve
  FAULT_RATE=0.1 RANDOM_SEED=42 paysim serve --verbose`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts)
		},
	}

	cmd.Flags().StringVar(&opts.ConfigFile, "config", "", "path to YAML config file")

	return cmd
}

func runServe(opts *serveOptions) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	cfg := paysim.DefaultConfig()
	if opts.ConfigFile != "" {
		if err := cfg.LoadFile(opts.ConfigFile); err != nil {
			return err
		}
	}
	if err := cfg.ApplyEnv(); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := newLogger(opts.rootOptions)
	slog.SetDefault(logger)

	logger.Debug("effective configuration",
		"fault_rate", cfg.FaultRate,
		"extra_latency_ms", cfg.ExtraLatencyMs,
		"latency_jitter_ms", cfg.JitterMs,
		"timeout_ms", cfg.TimeoutMs,
		"seeded", cfg.HasSeed,
		"max_cache_size", cfg.MaxCacheSize,
		"cache_ttl_seconds", cfg.CacheTTLSeconds,
		"port", cfg.Port,
	)

	rnd := paysim.NewRand()
	if cfg.HasSeed {
		rnd = paysim.NewSeededRand(cfg.RandomSeed)
	}

	cache := paysim.NewIdempotencyCache(cfg.MaxCacheSize, time.Duration(cfg.CacheTTLSeconds)*time.Second)
	faults := paysim.NewFaultModel(
		paysim.WithFaultRate(cfg.FaultRate),
		paysim.WithExtraLatency(cfg.ExtraLatencyMs),
		paysim.WithJitter(cfg.JitterMs),
		paysim.WithTimeout(cfg.TimeoutMs),
		paysim.WithModelRand(rnd),
	)
	processor := paysim.NewProcessor(cache, faults,
		paysim.WithEmitter(observability.NewSlogEmitter(logger)),
	)
	svc := transferhttp.NewService(processor, cache)

	if !opts.Verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	ginadapter.RegisterRoutes(engine, svc)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newLogger(opts *rootOptions) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if opts.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, handlerOpts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, handlerOpts))
}
