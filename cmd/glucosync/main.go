package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/claude/glucosync/internal/backend"
	"github.com/claude/glucosync/internal/config"
	"github.com/claude/glucosync/internal/endpoint"
	"github.com/claude/glucosync/internal/healthstore"
	"github.com/claude/glucosync/internal/insights"
	"github.com/claude/glucosync/internal/models"
	"github.com/claude/glucosync/internal/provider"
	"github.com/claude/glucosync/internal/scheduler"
	syncer "github.com/claude/glucosync/internal/sync"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: glucosync [flags] <command>

Commands:
  sync      run one sync (see -mode)
  insights  fetch insights (cached unless -refresh)
  daemon    run the auto-sync scheduler until interrupted
  seed      fill the local health store with demo samples
  clear     wipe the user's remote health data

`)
	flag.PrintDefaults()
}

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	mode := flag.String("mode", "auto", "sync mode: quick, incremental, full, refresh, auto, quick-then-full")
	windowDays := flag.Int("window", 0, "incremental window in days (minimum 7)")
	refresh := flag.Bool("refresh", false, "insights: bypass the cache")
	seedDays := flag.Int("seed-days", 30, "seed: how many days of demo data to generate")
	version := flag.Bool("version", false, "print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *version {
		fmt.Println("glucosync", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := healthstore.Open(cfg.Store.Path)
	if err != nil {
		log.Error("failed to open health store", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	resolver := endpoint.New(cfg.Client.Endpoints, log)
	client := backend.New(resolver, cfg.Client.APIKey, log)
	adapter := provider.New(store, log)

	manager := syncer.New(cfg.Client.UserID, adapter, client, cfg.Sync.WindowDays, log)
	manager.SetCooldown(time.Duration(cfg.Sync.CooldownMinutes) * time.Minute)

	insightSvc := insights.New(client, cfg.Client.UserID, log)
	insightSvc.SetTTL(time.Duration(cfg.Insights.CacheTTLMinutes) * time.Minute)

	ctx := context.Background()

	switch flag.Arg(0) {
	case "", "sync":
		runSync(ctx, manager, *mode, *windowDays, log)

	case "insights":
		resp := insightSvc.GetInsights(ctx, *refresh)
		for _, in := range resp.Insights {
			log.Info("insight",
				"type", in.Type, "priority", in.Priority,
				"title", in.Title, "description", in.Description)
		}
		if !resp.IsRemoteGenerated {
			log.Info("served by local fallback generator", "reason", resp.FallbackReason)
		}

	case "daemon":
		runDaemon(manager, cfg, log)

	case "seed":
		n, err := healthstore.SeedDemo(ctx, store, *seedDays, time.Now())
		if err != nil {
			log.Error("seed failed", "error", err)
			os.Exit(1)
		}
		log.Info("seeded demo data", "days", *seedDays, "samples", n)

	case "clear":
		msg, err := client.ClearAllHealthData(ctx, cfg.Client.UserID)
		if err != nil {
			log.Error("clear failed", "error", err)
			os.Exit(1)
		}
		log.Info("remote health data cleared", "message", msg)
		insightSvc.ClearCache()

	default:
		usage()
		os.Exit(1)
	}
}

func runSync(ctx context.Context, manager *syncer.Manager, mode string, windowDays int, log *slog.Logger) {
	var result models.SyncResult
	switch mode {
	case "quick":
		result = manager.RunSync(ctx, models.SyncQuickToday, windowDays, true)
	case "incremental":
		result = manager.RunSync(ctx, models.SyncIncremental, windowDays, true)
	case "full":
		result = manager.RunSync(ctx, models.SyncFullHistorical, windowDays, true)
	case "refresh":
		result = manager.RunSync(ctx, models.SyncPullToRefresh, windowDays, true)
	case "auto":
		result = manager.RunSync(ctx, models.SyncAutoDetect, windowDays, true)
	case "quick-then-full":
		result = manager.RunQuickThenFull(ctx)
	default:
		log.Error("unknown sync mode", "mode", mode)
		os.Exit(1)
	}

	if !result.Success {
		log.Error("sync failed", "mode", result.SyncType, "message", result.Message)
		os.Exit(1)
	}
	log.Info("sync finished",
		"mode", result.SyncType,
		"records", result.RecordsSynced,
		"message", result.Message,
	)
}

// runDaemon runs the scheduler until SIGINT/SIGTERM. SIGUSR1 simulates an
// app-foreground transition for testing trigger behavior.
func runDaemon(manager *syncer.Manager, cfg *config.Config, log *slog.Logger) {
	sched := scheduler.New(manager,
		time.Duration(cfg.Sync.AutoIntervalMin)*time.Minute, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	foreground := make(chan os.Signal, 1)
	signal.Notify(foreground, syscall.SIGUSR1)
	go func() {
		for range foreground {
			log.Info("foreground transition signaled")
			sched.NotifyForeground()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-quit
		log.Info("shutting down", "signal", sig)
		cancel()
	}()

	log.Info("auto-sync daemon starting",
		"interval_minutes", cfg.Sync.AutoIntervalMin,
		"cooldown_minutes", cfg.Sync.CooldownMinutes,
	)
	sched.Run(ctx)

	if _, err := sched.LastResult(); err != nil {
		log.Warn("daemon stopped with last sync failed", "error", err)
	}
	log.Info("daemon stopped")
}
