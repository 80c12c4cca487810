package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/darshan-rambhia/fleetglint/internal/alerter"
	"github.com/darshan-rambhia/fleetglint/internal/api"
	"github.com/darshan-rambhia/fleetglint/internal/cache"
	"github.com/darshan-rambhia/fleetglint/internal/command"
	"github.com/darshan-rambhia/fleetglint/internal/config"
	"github.com/darshan-rambhia/fleetglint/internal/events"
	"github.com/darshan-rambhia/fleetglint/internal/ingest"
	"github.com/darshan-rambhia/fleetglint/internal/metrics"
	"github.com/darshan-rambhia/fleetglint/internal/notify"
	"github.com/darshan-rambhia/fleetglint/internal/registry"
	"github.com/darshan-rambhia/fleetglint/internal/store"
	"github.com/darshan-rambhia/fleetglint/internal/throttle"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// @title fleetglint API
// @version 1.0
// @description Telemetry ingestion and alert lifecycle server for a fleet of office machines
// @host localhost:3800
// @BasePath /

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// buildInfo returns version, commit, build time, and VCS details from the
// embedded Go build info. ldflags-injected values take priority; VCS info
// from debug.ReadBuildInfo fills in anything left as default.
func buildInfo() (ver, sha, built, dirty string) {
	ver = version
	sha = commit
	built = buildTime
	dirty = "clean"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if sha == "none" {
				sha = s.Value
			}
		case "vcs.time":
			if built == "unknown" {
				built = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "dirty"
			}
		}
	}

	return
}

func main() {
	configPath := flag.String("config", "", "path to fleetglint.yml config file")
	envFile := flag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	ver, sha, built, dirty := buildInfo()

	if *showVersion {
		fmt.Printf("fleetglint %s\n  commit:    %s (%s)\n  built:     %s\n  go:        %s\n  platform:  %s/%s\n",
			ver, sha, dirty, built, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: loading %s: %s\n", *envFile, err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, config.ErrConfigFileNotFound) {
			fmt.Fprintf(os.Stderr, "error: %s\n\n", err)
			fmt.Fprintf(os.Stderr, "Copy the example config to get started:\n")
			fmt.Fprintf(os.Stderr, "  cp fleetglint.example.yml %s\n\n", *configPath)
			fmt.Fprintf(os.Stderr, "Or run without -config and use %s* environment variables.\n", config.EnvPrefix)
		} else {
			fmt.Fprintf(os.Stderr, "error: loading config (%s): %s\n", *configPath, err)
		}
		os.Exit(1)
	}

	setupLogging(cfg)

	slog.Info("starting fleetglint",
		"version", ver,
		"commit", sha,
		"built", built,
		"dirty", dirty,
		"go", runtime.Version(),
		"listen", cfg.Listen,
	)

	if err := run(cfg); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
	slog.Info("fleetglint stopped gracefully")
}

func setupLogging(cfg *config.Config) {
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func run(cfg *config.Config) error {
	st, err := store.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	b := events.New(m)
	reg := registry.New(st)
	alerts := alerter.NewManager(st, m)

	c := cache.New()
	if err := c.Load(ctx, st); err != nil {
		return fmt.Errorf("warming cache: %w", err)
	}

	// Notifications
	var providers []notify.Provider
	for _, ncfg := range cfg.Notifications {
		switch ncfg.Type {
		case "ntfy":
			providers = append(providers, notify.NewNtfy(ncfg.URL, ncfg.Topic))
		case "webhook":
			method := ncfg.Method
			if method == "" {
				method = "POST"
			}
			providers = append(providers, notify.NewWebhook(ncfg.URL, method, ncfg.Headers))
		}
	}
	pool := notify.NewWorkerPool(cfg.NotifyWorkers)
	thr := notify.NewThrottler(st, throttle.NewCooldown(throttle.NewMemoryStore()), pool, m, providers...)

	watcher := registry.NewWatcher(reg, b, thr, cfg.Liveness.Interval.Duration)

	lease := cfg.Commands.LeaseTimeout.Duration
	if lease == 0 {
		lease = -1
	}
	dispatcher := command.NewDispatcher(st, reg, command.NewArtifacts(cfg.DataDir), b, m, command.Options{
		LeaseTimeout: lease,
		ResultLimit:  cfg.Commands.ResultLimit,
	})

	pruner := store.NewPruner(st, store.RetentionConfig{
		Reports:          cfg.ReportRetention.Duration,
		ResolvedAlerts:   cfg.AlertRetention.Duration,
		FinishedCommands: cfg.CommandRetention.Duration,
	}).WithInterval(cfg.PruneInterval.Duration)

	limiter := throttle.NewLimiter(throttle.NewMemoryStore(), cfg.RateLimit.Requests, cfg.RateLimit.Window.Duration)

	svc := ingest.NewService(ingest.Deps{
		Store:     st,
		Registry:  reg,
		Alerts:    alerts,
		Cache:     c,
		Publisher: b,
		Notifier:  thr,
		Sweeper:   pruner,
		Observer:  watcher,
		Metrics:   m,
	})

	server := api.NewServer(cfg.Listen, api.Deps{
		Store:       st,
		Registry:    reg,
		Ingest:      svc,
		Alerts:      alerts,
		Commands:    dispatcher,
		Cache:       c,
		Broadcaster: b,
		Notifier:    thr,
		Settings:    notify.NewSettings(st),
		Limiter:     limiter,
		Metrics:     m,
	}, api.Options{
		AdminToken: cfg.AdminToken,
		TrustProxy: cfg.TrustProxy,
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx) })
	g.Go(func() error { return pruner.Run(ctx) })
	g.Go(func() error { return watcher.Run(ctx) })
	g.Go(func() error { return dispatcher.Run(ctx) })
	g.Go(func() error { return sweepLimiter(ctx, limiter) })

	slog.Info("all components started",
		"notifications", len(providers),
		"admin_auth", cfg.AdminToken != "",
		"rate_limit", cfg.RateLimit.Requests,
	)

	err = g.Wait()

	drain, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if werr := pool.Wait(drain); werr != nil {
		slog.Warn("notifications still in flight at shutdown", "error", werr)
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// sweepLimiter drops idle rate limit windows once per window.
func sweepLimiter(ctx context.Context, l *throttle.Limiter) error {
	ticker := time.NewTicker(l.Window())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := l.Sweep(); n > 0 {
				slog.Debug("rate limit windows swept", "keys", n)
			}
		}
	}
}
