package main

import (
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/glucosync/internal/backend"
	"github.com/claude/glucosync/internal/config"
	"github.com/claude/glucosync/internal/endpoint"
	"github.com/claude/glucosync/internal/healthstore"
	"github.com/claude/glucosync/internal/insights"
	"github.com/claude/glucosync/internal/mcpserver"
	"github.com/claude/glucosync/internal/provider"
	syncer "github.com/claude/glucosync/internal/sync"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	// Stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

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

	s := mcpserver.New(manager, insightSvc, client, cfg.Client.UserID, Version, log)

	log.Info("glucosync mcp server starting", "version", Version, "user", cfg.Client.UserID)
	if err := server.ServeStdio(s); err != nil {
		log.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
