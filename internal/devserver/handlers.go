package devserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/claude/glucosync/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	var payload models.SyncPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}
	if payload.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id required"})
		return
	}

	s.mu.Lock()
	u := s.user(payload.UserID)
	for kind, records := range payload.HealthData {
		if u.days[kind] == nil {
			u.days[kind] = make(map[string]bool)
		}
		for _, rec := range records {
			if day := recordDay(rec); day != "" {
				u.days[kind][day] = true
			}
		}
	}
	u.records += payload.TotalRecords
	u.syncs++
	s.mu.Unlock()

	s.log.Info("sync received",
		"user", payload.UserID,
		"sync_type", payload.SyncType,
		"records", payload.TotalRecords,
		"incremental", payload.IsIncremental,
	)

	resp := models.SyncResponse{
		RecordsSynced: payload.TotalRecords,
		Message:       fmt.Sprintf("synced %d records (%s)", payload.TotalRecords, payload.SyncType),
	}
	if payload.SyncType == models.SyncFullHistorical {
		// Full-historical payloads are written in one all-or-nothing pass.
		resp.RecordsArchived = payload.TotalRecords
	}
	writeJSON(w, http.StatusOK, resp)
}

// recordDay extracts the calendar day from a decoded health record, which
// is either a DailyAggregate ("date") or a HealthSample ("start_time").
func recordDay(rec any) string {
	m, ok := rec.(map[string]any)
	if !ok {
		return ""
	}
	if date, ok := m["date"].(string); ok && date != "" {
		return date
	}
	if start, ok := m["start_time"].(string); ok {
		if t, err := time.Parse(time.RFC3339, start); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return ""
}

func (s *Server) handleCoverage(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id parameter required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	report := models.CoverageReport{PerKind: make(map[models.SampleKind]models.KindCoverage)}
	u, ok := s.users[userID]
	if !ok {
		writeJSON(w, http.StatusOK, report)
		return
	}

	overall := make(map[string]bool)
	for kind, days := range u.days {
		sorted := make([]string, 0, len(days))
		for d := range days {
			sorted = append(sorted, d)
			overall[d] = true
		}
		sort.Strings(sorted)
		kc := models.KindCoverage{UniqueDays: len(sorted)}
		if len(sorted) > 0 {
			kc.DateRange = sorted[0] + ".." + sorted[len(sorted)-1]
		}
		report.PerKind[kind] = kc
	}
	report.OverallUniqueDays = len(overall)

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleFirstTimeCheck(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id parameter required"})
		return
	}

	s.mu.Lock()
	u, ok := s.users[userID]
	firstTime := !ok || u.syncs == 0
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.FirstTimeCheck{IsFirstTime: firstTime})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id parameter required"})
		return
	}
	days, err := strconv.Atoi(r.URL.Query().Get("days"))
	if err != nil || days <= 0 {
		days = 7
	}

	s.mu.Lock()
	u, ok := s.users[userID]
	var steps float64
	if ok {
		// Scale demo activity with how much data the user has pushed.
		steps = float64(min(u.records, 12000))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, models.DashboardSummary{
		Days:               days,
		AvgGlucose:         6.8,
		PrevAvgGlucose:     7.1,
		MorningRiseDelta:   0.9,
		TimeInRangePct:     74,
		PrevTimeInRangePct: 70,
		AvgPostMealSpike:   2.4,
		AvgDailySteps:      steps,
		AvgSleepHours:      7.2,
		AvgDailyDistance:   4.1,
	})
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.InsightsResponse{
		Success:           true,
		GeneratedAt:       time.Now(),
		IsRemoteGenerated: true,
		Insights: []models.Insight{
			{
				ID:          uuid.NewString(),
				Type:        models.InsightPositive,
				Icon:        "target",
				Title:       "Time in range trending up",
				Description: "Time in range improved 4 points over the last week.",
				Priority:    5,
				IsGenerated: true,
			},
			{
				ID:          uuid.NewString(),
				Type:        models.InsightTip,
				Icon:        "footprints",
				Title:       "Post-dinner walks help",
				Description: "Evenings with a walk show flatter overnight glucose.",
				Priority:    3,
				IsGenerated: true,
			},
		},
	})
}

func (s *Server) handleClearAll(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id required"})
		return
	}

	s.mu.Lock()
	delete(s.users, req.UserID)
	s.mu.Unlock()

	s.log.Info("cleared all health data", "user", req.UserID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "all health data cleared"})
}
