package models

import "time"

// SyncType is the wire value telling the backend how to treat a sync.
type SyncType string

const (
	SyncQuickToday     SyncType = "quick_today_only"
	SyncIncremental    SyncType = "real_healthkit"
	SyncFullHistorical SyncType = "full_historical_sync_no_batching"
	SyncPullToRefresh  SyncType = "pull_to_refresh"
	SyncAutoDetect     SyncType = "auto_detect"
)

// DataSourceName identifies this client in every sync payload.
const DataSourceName = "external-health-provider"

// SyncPayload is the complete body of one sync POST. It is constructed
// fresh per attempt and never persisted locally. HealthData values are
// HealthSample or DailyAggregate records keyed by kind.
type SyncPayload struct {
	UserID        string                `json:"user_id"`
	HealthData    map[SampleKind][]any  `json:"health_data"`
	SyncTimestamp time.Time             `json:"sync_timestamp"`
	DataSource    string                `json:"data_source"`
	SyncType      SyncType              `json:"sync_type"`
	IsIncremental bool                  `json:"is_incremental"`
	TotalRecords  int                   `json:"total_records"`
}

// SyncResponse is the backend's reply to a sync POST.
type SyncResponse struct {
	RecordsSynced   int    `json:"records_synced"`
	RecordsArchived int    `json:"records_archived,omitempty"`
	Message         string `json:"message"`
}

// SyncResult is the client-facing outcome of one runSync call. A failure
// always carries a human-readable message; it is never dropped silently.
type SyncResult struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	RecordsSynced int      `json:"records_synced"`
	SyncType      SyncType `json:"sync_type,omitempty"`
	Skipped       bool     `json:"skipped,omitempty"`
}

// KindCoverage is the backend's per-kind data coverage.
type KindCoverage struct {
	UniqueDays int    `json:"unique_days"`
	DateRange  string `json:"date_range,omitempty"`
}

// CoverageReport answers GET /api/debug-health-data.
type CoverageReport struct {
	OverallUniqueDays int                         `json:"overall_unique_days"`
	PerKind           map[SampleKind]KindCoverage `json:"per_kind"`
}

// KindsWithData counts kinds that have at least one day of data.
func (c CoverageReport) KindsWithData() int {
	n := 0
	for _, kc := range c.PerKind {
		if kc.UniqueDays > 0 {
			n++
		}
	}
	return n
}

// AvgDaysPerKind is the mean unique-day count over kinds with data.
func (c CoverageReport) AvgDaysPerKind() float64 {
	total, n := 0, 0
	for _, kc := range c.PerKind {
		if kc.UniqueDays > 0 {
			total += kc.UniqueDays
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

// FirstTimeCheck answers GET /api/check-first-time-sync.
type FirstTimeCheck struct {
	IsFirstTime bool `json:"is_first_time"`
}

// DashboardSummary answers GET /api/diabetes-dashboard. It doubles as the
// reduced metrics snapshot the fallback insight generator runs on.
type DashboardSummary struct {
	Days               int     `json:"days"`
	AvgGlucose         float64 `json:"avg_glucose"`
	PrevAvgGlucose     float64 `json:"prev_avg_glucose"`
	MorningRiseDelta   float64 `json:"morning_rise_delta"`
	TimeInRangePct     float64 `json:"time_in_range_pct"`
	PrevTimeInRangePct float64 `json:"prev_time_in_range_pct"`
	AvgPostMealSpike   float64 `json:"avg_post_meal_spike"`
	AvgDailySteps      float64 `json:"avg_daily_steps"`
	AvgSleepHours      float64 `json:"avg_sleep_hours"`
	AvgDailyDistance   float64 `json:"avg_daily_distance"`
}
