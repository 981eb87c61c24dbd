// Package sync orchestrates health-data synchronization: it decides which
// strategy to run, collects samples from the on-device provider,
// deduplicates and shapes the payload, and transmits it with mode-scaled
// timeouts, retry, and cooldown gating.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/glucosync/internal/backend"
	"github.com/claude/glucosync/internal/models"
	"github.com/claude/glucosync/internal/provider"
)

const (
	// MinIncrementalWindowDays is a workaround for a backend limitation:
	// the server replaces (does not merge) the dashboard display window on
	// every sync, so an incremental sync must cover at least 7 days even
	// when only 1-2 days of new data exist, or the visible history gets
	// truncated. Revisit if the backend gains merge semantics.
	MinIncrementalWindowDays = 7

	// fullHistoryYears bounds the full-historical backfill window.
	fullHistoryYears = 10

	defaultCooldown = 10 * time.Minute
)

// Auto-detect classification thresholds. Below any of these the user is
// treated as first-time and gets a full-historical sync.
const (
	minOverallUniqueDays = 30
	minKindsWithData     = 4
	minAvgDaysPerKind    = 15
)

// state is the per-manager sync state. It lives only in memory: a process
// restart forgets cooldown history and forces endpoint re-resolution (an
// accepted tradeoff).
type state struct {
	lastAutoSync time.Time
	inFlight     bool
	retryCount   int
}

// Manager runs syncs for one user. All fields are set at construction;
// the in-flight guard serializes RunSync calls on the same instance.
type Manager struct {
	userID     string
	provider   *provider.Adapter
	client     *backend.Client
	cooldown   time.Duration
	windowDays int
	log        *slog.Logger
	now        func() time.Time

	mu sync.Mutex
	st state
}

// New creates a Manager. windowDays is the default incremental window; it
// is raised to MinIncrementalWindowDays if smaller.
func New(userID string, prov *provider.Adapter, client *backend.Client, windowDays int, log *slog.Logger) *Manager {
	if windowDays < MinIncrementalWindowDays {
		windowDays = MinIncrementalWindowDays
	}
	return &Manager{
		userID:     userID,
		provider:   prov,
		client:     client,
		cooldown:   defaultCooldown,
		windowDays: windowDays,
		log:        log,
		now:        time.Now,
	}
}

// SetCooldown overrides the minimum interval between automatic syncs.
func (m *Manager) SetCooldown(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cooldown = d
}

// State reports the manager's current sync state for status displays.
func (m *Manager) State() (lastAutoSync time.Time, inFlight bool, retryCount int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.st.lastAutoSync, m.st.inFlight, m.st.retryCount
}

// RunSync executes one sync. mode may be any SyncType including
// SyncAutoDetect; windowDays <= 0 uses the manager default. manual marks a
// user-triggered sync, which bypasses the cooldown gate. The returned
// result always carries a human-readable message; failures never
// disappear silently.
func (m *Manager) RunSync(ctx context.Context, mode models.SyncType, windowDays int, manual bool) models.SyncResult {
	m.mu.Lock()
	if m.st.inFlight {
		m.mu.Unlock()
		return models.SyncResult{Success: false, Message: models.ErrSyncInFlight.Error(), SyncType: mode}
	}
	if !manual && m.now().Sub(m.st.lastAutoSync) < m.cooldown {
		m.mu.Unlock()
		return models.SyncResult{Success: true, Skipped: true, Message: "skipped", SyncType: mode}
	}
	m.st.inFlight = true
	if !manual {
		m.st.lastAutoSync = m.now()
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.st.inFlight = false
		m.mu.Unlock()
	}()

	result := m.runLocked(ctx, mode, windowDays)

	m.mu.Lock()
	if result.Success {
		m.st.retryCount = 0
	} else {
		m.st.retryCount++
	}
	m.mu.Unlock()

	return result
}

func (m *Manager) runLocked(ctx context.Context, mode models.SyncType, windowDays int) models.SyncResult {
	if windowDays <= 0 {
		windowDays = m.windowDays
	}

	requested := mode
	if mode == models.SyncAutoDetect {
		mode, windowDays = m.decideMode(ctx)
		m.log.Info("auto-detected sync mode", "mode", mode, "window_days", windowDays)
	}

	start, end := m.window(mode, windowDays)

	payload, sourceIDs, err := m.collect(ctx, mode, start, end)
	if err != nil {
		m.log.Error("sample collection failed", "mode", mode, "error", err)
		return models.SyncResult{Success: false, Message: err.Error(), SyncType: mode}
	}

	if payload.TotalRecords == 0 {
		return models.SyncResult{Success: true, Message: "no new data to sync", SyncType: mode}
	}

	timeout, attempts := transmitPolicy(mode)
	resp, err := m.client.SyncHealthData(ctx, *payload, timeout, attempts)
	if err != nil {
		m.log.Error("sync transmission failed",
			"mode", mode, "records", payload.TotalRecords, "error", err)
		return models.SyncResult{
			Success:  false,
			Message:  fmt.Sprintf("sync failed: %v", err),
			SyncType: mode,
		}
	}

	if err := m.provider.MarkTransmitted(ctx, sourceIDs, m.now()); err != nil {
		m.log.Warn("failed to record transmitted samples", "error", err)
	}

	records := resp.RecordsSynced
	if records == 0 && resp.RecordsArchived > 0 {
		records = resp.RecordsArchived
	}
	m.log.Info("sync complete",
		"mode", mode, "requested", requested,
		"sent", payload.TotalRecords, "synced", records)

	return models.SyncResult{
		Success:       true,
		Message:       resp.Message,
		RecordsSynced: records,
		SyncType:      mode,
	}
}

// decideMode classifies the user as first-time or refresh from the
// backend's coverage report. A failed coverage query defaults to
// first-time: over-syncing is safer than truncating a new user's history.
func (m *Manager) decideMode(ctx context.Context) (models.SyncType, int) {
	// Cheap pre-check: a user who has never synced needs no coverage query.
	// For everyone else coverage stays authoritative.
	if check, err := m.client.CheckFirstTime(ctx, m.userID); err == nil && check.IsFirstTime {
		m.log.Info("first-time user, running full historical sync")
		return models.SyncFullHistorical, fullHistoryYears * 365
	}

	coverage, err := m.client.Coverage(ctx, m.userID)
	if err != nil {
		m.log.Warn("coverage query failed, defaulting to full historical sync", "error", err)
		return models.SyncFullHistorical, fullHistoryYears * 365
	}
	return Classify(*coverage)
}

// Classify maps a coverage report onto a sync mode and window.
func Classify(c models.CoverageReport) (models.SyncType, int) {
	if c.OverallUniqueDays < minOverallUniqueDays ||
		c.KindsWithData() < minKindsWithData ||
		c.AvgDaysPerKind() < minAvgDaysPerKind {
		return models.SyncFullHistorical, fullHistoryYears * 365
	}
	return models.SyncIncremental, MinIncrementalWindowDays
}

// window computes the collection date range for a mode.
func (m *Manager) window(mode models.SyncType, windowDays int) (time.Time, time.Time) {
	end := m.now()
	switch mode {
	case models.SyncQuickToday:
		y, mo, d := end.Local().Date()
		return time.Date(y, mo, d, 0, 0, 0, 0, end.Location()), end
	case models.SyncFullHistorical:
		return end.AddDate(-fullHistoryYears, 0, 0), end
	default:
		if windowDays < MinIncrementalWindowDays {
			windowDays = MinIncrementalWindowDays
		}
		return end.AddDate(0, 0, -windowDays), end
	}
}

// collect gathers, deduplicates, and shapes samples for transmission.
// Distance is folded into one DailyAggregate per local calendar day; the
// per-day record caps apply in every mode except full-historical.
func (m *Manager) collect(ctx context.Context, mode models.SyncType, start, end time.Time) (*models.SyncPayload, []string, error) {
	healthData := make(map[models.SampleKind][]any)
	var sourceIDs []string
	total := 0

	filtered := mode != models.SyncFullHistorical

	for _, kind := range models.QuantityKinds {
		samples, err := m.provider.CollectQuantity(ctx, kind, start, end)
		if err != nil {
			return nil, nil, fmt.Errorf("collecting %s: %w", kind, err)
		}
		if len(samples) == 0 {
			continue
		}
		for _, s := range samples {
			sourceIDs = append(sourceIDs, s.SourceID)
		}

		if kind == models.KindDistance {
			aggs := provider.AggregateDaily(samples, kind)
			records := make([]any, len(aggs))
			for i, a := range aggs {
				records[i] = a
			}
			healthData[kind] = records
			total += len(aggs)
			continue
		}

		if filtered {
			samples = provider.CapPerDay(samples, kind)
		}
		records := make([]any, len(samples))
		for i, s := range samples {
			records[i] = s
		}
		healthData[kind] = records
		total += len(samples)
	}

	for _, kind := range models.CategoryKinds {
		samples, err := m.provider.CollectCategory(ctx, kind, start, end)
		if err != nil {
			return nil, nil, fmt.Errorf("collecting %s: %w", kind, err)
		}
		if len(samples) == 0 {
			continue
		}
		for _, s := range samples {
			sourceIDs = append(sourceIDs, s.SourceID)
		}
		if filtered {
			samples = provider.CapPerDay(samples, kind)
		}
		records := make([]any, len(samples))
		for i, s := range samples {
			records[i] = s
		}
		healthData[kind] = records
		total += len(samples)
	}

	payload := &models.SyncPayload{
		UserID:        m.userID,
		HealthData:    healthData,
		SyncTimestamp: m.now(),
		DataSource:    models.DataSourceName,
		SyncType:      mode,
		IsIncremental: mode != models.SyncFullHistorical,
		TotalRecords:  total,
	}
	return payload, sourceIDs, nil
}

// transmitPolicy returns the POST timeout and attempt budget for a mode.
// Quick and full-historical use a single attempt: quick to keep the UI
// snappy, full-historical to avoid double-submitting a huge payload.
func transmitPolicy(mode models.SyncType) (time.Duration, int) {
	switch mode {
	case models.SyncQuickToday:
		return backend.TimeoutShort, 1
	case models.SyncFullHistorical:
		return backend.TimeoutFull, 1
	default:
		return backend.TimeoutShort, 3
	}
}

// RunQuickThenFull runs a quick sync synchronously, then kicks off a
// full-historical sync in the background. Both go through the same
// manager, so the shared in-flight guard keeps them from overlapping.
func (m *Manager) RunQuickThenFull(ctx context.Context) models.SyncResult {
	quick := m.RunSync(ctx, models.SyncQuickToday, 0, true)

	go func() {
		full := m.RunSync(context.WithoutCancel(ctx), models.SyncFullHistorical, 0, true)
		if !full.Success {
			m.log.Warn("background full sync failed", "message", full.Message)
		}
	}()

	return quick
}
