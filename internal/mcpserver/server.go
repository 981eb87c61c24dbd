// Package mcpserver exposes the sync layer to LLM assistants over MCP:
// triggering syncs, reading insights, and inspecting dashboard coverage.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/claude/glucosync/internal/backend"
	"github.com/claude/glucosync/internal/insights"
	"github.com/claude/glucosync/internal/models"
	syncer "github.com/claude/glucosync/internal/sync"
)

// New creates an MCP server with all tools registered.
func New(manager *syncer.Manager, insightSvc *insights.Service, client *backend.Client, userID, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("GlucoSync", version,
		server.WithToolCapabilities(false),
		server.WithInstructions("GlucoSync diabetes health-data client. Trigger health-data syncs, read generated insights, and inspect dashboard summaries and sync coverage for the configured user."),
	)

	h := &handlers{
		manager:  manager,
		insights: insightSvc,
		client:   client,
		userID:   userID,
		log:      log,
	}

	s.AddTools(
		server.ServerTool{Tool: toolRunSync, Handler: h.runSync},
		server.ServerTool{Tool: toolGetInsights, Handler: h.getInsights},
		server.ServerTool{Tool: toolGetDashboard, Handler: h.getDashboard},
		server.ServerTool{Tool: toolCheckCoverage, Handler: h.checkCoverage},
	)

	return s
}

// handlers holds dependencies for MCP tool handlers.
type handlers struct {
	manager  *syncer.Manager
	insights *insights.Service
	client   *backend.Client
	userID   string
	log      *slog.Logger
}

// --- Tool definitions ---

var toolRunSync = mcp.NewTool("run_sync",
	mcp.WithDescription("Run a health-data sync. Modes: quick (today only), incremental (recent window), full (entire history, slow), auto (backend coverage decides)."),
	mcp.WithString("mode", mcp.Description("Sync mode. Defaults to 'auto'."), mcp.Enum("quick", "incremental", "full", "auto")),
	mcp.WithNumber("window_days", mcp.Description("Incremental window in days. Minimum 7; defaults to the configured window.")),
)

var toolGetInsights = mcp.NewTool("get_insights",
	mcp.WithDescription("Get prioritized health insights. Served from a short-lived cache unless force_refresh is set."),
	mcp.WithBoolean("force_refresh", mcp.Description("Bypass the insight cache. Defaults to false.")),
)

var toolGetDashboard = mcp.NewTool("get_dashboard",
	mcp.WithDescription("Read the diabetes dashboard summary: glucose averages, time in range, post-meal response, activity, and sleep."),
	mcp.WithNumber("days", mcp.Description("Display window in days. Defaults to 7.")),
)

var toolCheckCoverage = mcp.NewTool("check_coverage",
	mcp.WithDescription("Inspect per-kind data coverage on the backend: unique days present per sample kind and overall."),
)

// --- Tool handlers ---

// syncModes maps tool arguments onto wire sync types.
var syncModes = map[string]models.SyncType{
	"quick":       models.SyncQuickToday,
	"incremental": models.SyncIncremental,
	"full":        models.SyncFullHistorical,
	"auto":        models.SyncAutoDetect,
}

func (h *handlers) runSync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, ok := syncModes[req.GetString("mode", "auto")]
	if !ok {
		return mcp.NewToolResultError("unknown sync mode"), nil
	}
	windowDays := req.GetInt("window_days", 0)

	// MCP-triggered syncs count as manual: the user asked for them.
	result := h.manager.RunSync(ctx, mode, windowDays, true)
	if !result.Success {
		h.log.Warn("mcp run_sync failed", "mode", mode, "message", result.Message)
	}
	return mcp.NewToolResultJSON(result)
}

func (h *handlers) getInsights(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	resp := h.insights.GetInsights(ctx, req.GetBool("force_refresh", false))
	return mcp.NewToolResultJSON(resp)
}

func (h *handlers) getDashboard(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	days := req.GetInt("days", 7)
	summary, err := h.client.Dashboard(ctx, h.userID, days, 0)
	if err != nil {
		h.log.Error("mcp get_dashboard", "error", err)
		return mcp.NewToolResultError("dashboard query failed: " + err.Error()), nil
	}
	return mcp.NewToolResultJSON(summary)
}

func (h *handlers) checkCoverage(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	coverage, err := h.client.Coverage(ctx, h.userID)
	if err != nil {
		h.log.Error("mcp check_coverage", "error", err)
		return mcp.NewToolResultError("coverage query failed: " + err.Error()), nil
	}
	return mcp.NewToolResultJSON(coverage)
}
