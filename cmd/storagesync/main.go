package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/carverauto/storagesync/pkg/config"
	"github.com/carverauto/storagesync/pkg/logger"
	"github.com/carverauto/storagesync/pkg/netbox"
	"github.com/carverauto/storagesync/pkg/notify"
	"github.com/carverauto/storagesync/pkg/reconciler"
	"github.com/carverauto/storagesync/pkg/store"
	"github.com/carverauto/storagesync/pkg/version"
	"github.com/carverauto/storagesync/pkg/zabbix"
)

func main() {
	configPath := flag.String("config", "/etc/storagesync/storagesync.json", "Path to config file")
	serve := flag.Bool("serve", false, "Run continuously at the configured poll interval")
	dryRun := flag.Bool("dry-run", false, "Report changes without writing to the target inventory")
	check := flag.Bool("check", false, "Verify connectivity to all dependencies and exit")
	report := flag.Bool("report", false, "Send the daily inventory report and exit")
	initTarget := flag.Bool("init", false, "Bootstrap the target inventory (role, custom fields) and exit")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Parse()

	if *showVersion {
		log.Printf("storagesync %s", version.GetFullVersion())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cfg reconciler.Config

	cfgLoader := config.NewConfig(nil)
	if err := cfgLoader.LoadAndValidate(ctx, *configPath, &cfg); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *dryRun {
		cfg.DryRun = true
	}

	logConfig := cfg.Logging
	if logConfig == nil {
		logConfig = logger.DefaultConfig()
	}

	lg, err := logger.NewComponent(logConfig, "storagesync")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	target := netbox.NewClient(&cfg.Target, lg)

	if *initTarget {
		if err := target.Bootstrap(ctx); err != nil {
			lg.Fatal().Err(err).Msg("Target bootstrap failed")
		}

		lg.Info().Msg("Target inventory bootstrapped")

		return
	}

	st, err := store.NewNatsStore(ctx, &cfg.Store)
	if err != nil {
		lg.Fatal().Err(err).Msg("Failed to open state store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			lg.Warn().Err(err).Msg("Failed to close state store")
		}
	}()

	source := zabbix.NewClient(&cfg.Source, lg)
	notifier := notify.FromConfig(cfg.Notify, lg)

	rec, err := reconciler.New(&cfg, st, source, target, notifier, nil, lg)
	if err != nil {
		lg.Fatal().Err(err).Msg("Failed to create reconciler")
	}

	switch {
	case *check:
		if err := rec.Preflight(ctx); err != nil {
			lg.Fatal().Err(err).Msg("Pre-flight check failed")
		}

		lg.Info().Msg("All dependencies reachable")
	case *report:
		if err := rec.Report(ctx); err != nil {
			lg.Fatal().Err(err).Msg("Daily report failed")
		}
	case *serve:
		runLoop(ctx, rec, &cfg, lg)
	default:
		summary, err := rec.Run(ctx)
		if err != nil {
			lg.Fatal().Err(err).Msg("Reconciliation pass failed")
		}

		if summary.Errors > 0 {
			lg.Error().Int("errors", summary.Errors).Msg("Pass finished with host errors")
			os.Exit(1)
		}
	}
}

// runLoop runs a pass immediately, then on every poll interval tick until
// the context is canceled. A held lease or failed pass does not stop the
// loop; the next tick retries.
func runLoop(ctx context.Context, rec *reconciler.Reconciler, cfg *reconciler.Config, lg logger.Logger) {
	interval := time.Duration(cfg.PollInterval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	lg.Info().Dur("interval", interval).Msg("Starting reconciliation loop")

	for {
		if _, err := rec.Run(ctx); err != nil {
			switch {
			case errors.Is(err, context.Canceled):
			case errors.Is(err, store.ErrLeaseHeld):
				lg.Warn().Msg("Another pass holds the lease, skipping")
			default:
				lg.Error().Err(err).Msg("Reconciliation pass failed")
			}
		}

		select {
		case <-ctx.Done():
			lg.Info().Msg("Shutting down")
			return
		case <-ticker.C:
		}
	}
}
