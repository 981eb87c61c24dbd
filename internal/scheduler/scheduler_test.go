package scheduler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/claude/glucosync/internal/backend"
	"github.com/claude/glucosync/internal/endpoint"
	"github.com/claude/glucosync/internal/healthstore"
	"github.com/claude/glucosync/internal/models"
	"github.com/claude/glucosync/internal/provider"
	"github.com/claude/glucosync/internal/sync"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestScheduler wires a Scheduler over a real manager and a backend
// whose sync endpoint answers with the given status and body.
func newTestScheduler(t *testing.T, syncStatus int, syncBody string, withData bool) (*Scheduler, *countingBackend) {
	t.Helper()

	cb := &countingBackend{syncStatus: syncStatus, syncBody: syncBody}
	srv := httptest.NewServer(cb.handler())
	t.Cleanup(srv.Close)

	store, err := healthstore.Open(filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if withData {
		now := time.Now()
		if _, err := store.Insert(context.Background(), []models.HealthSample{{
			Kind: models.KindSteps, Value: 500,
			StartTime: now.Add(-2 * time.Hour), EndTime: now.Add(-time.Hour),
		}}); err != nil {
			t.Fatalf("inserting sample: %v", err)
		}
	}

	resolver := endpoint.New([]string{srv.URL}, testLogger())
	client := backend.New(resolver, "", testLogger())
	manager := sync.New("user-1", provider.New(store, testLogger()), client, 7, testLogger())
	manager.SetCooldown(0)

	return New(manager, time.Hour, testLogger()), cb
}

// countingBackend always classifies the user as established and scripts
// the sync endpoint.
type countingBackend struct {
	syncStatus int
	syncBody   string
	covStatus  int
	syncs      int
}

func (b *countingBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(endpoint.HealthPath, func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/debug-health-data", func(w http.ResponseWriter, r *http.Request) {
		if b.covStatus != 0 {
			w.WriteHeader(b.covStatus)
			return
		}
		json.NewEncoder(w).Encode(models.CoverageReport{ //nolint:errcheck
			OverallUniqueDays: 60,
			PerKind: map[models.SampleKind]models.KindCoverage{
				models.KindSteps:        {UniqueDays: 55},
				models.KindDistance:     {UniqueDays: 50},
				models.KindActiveEnergy: {UniqueDays: 48},
				models.KindHeartRate:    {UniqueDays: 60},
			},
		})
	})
	mux.HandleFunc("/api/sync-dashboard-health-data", func(w http.ResponseWriter, r *http.Request) {
		b.syncs++
		if b.syncStatus != http.StatusOK {
			w.WriteHeader(b.syncStatus)
			io.WriteString(w, b.syncBody) //nolint:errcheck
			return
		}
		json.NewEncoder(w).Encode(models.SyncResponse{RecordsSynced: 1, Message: "ok"}) //nolint:errcheck
	})
	return mux
}

func TestTriggerManualRecordsResult(t *testing.T) {
	s, _ := newTestScheduler(t, http.StatusOK, "", true)

	result := s.TriggerManual(context.Background())
	if !result.Success {
		t.Fatalf("manual sync failed: %s", result.Message)
	}

	last, err := s.LastResult()
	if err != nil {
		t.Errorf("LastResult error = %v, want nil", err)
	}
	if !last.Success {
		t.Errorf("LastResult = %+v, want success", last)
	}
	if s.RetryCount() != 0 {
		t.Errorf("RetryCount = %d, want 0", s.RetryCount())
	}
}

func TestFailureLandsInStateNotPanic(t *testing.T) {
	s, _ := newTestScheduler(t, http.StatusBadRequest, "bad payload", true)

	result := s.TriggerManual(context.Background())
	if result.Success {
		t.Fatal("sync against a 400 backend reported success")
	}

	_, err := s.LastResult()
	if err == nil {
		t.Error("LastResult error = nil, want recorded failure")
	}
	if s.RetryCount() != 1 {
		t.Errorf("RetryCount = %d, want 1", s.RetryCount())
	}
}

func TestContentionRetriedWithBoundedBackoff(t *testing.T) {
	if testing.Short() {
		t.Skip("bounded backoff sleeps for real")
	}

	s, cb := newTestScheduler(t, http.StatusInternalServerError, "database is locked", true)
	// Coverage down too: auto-detect falls back to a single-attempt full
	// sync, so every backend hit here is one scheduler-level retry.
	cb.covStatus = http.StatusInternalServerError

	s.attempt(context.Background(), false)

	// Initial attempt plus contentionMaxRetries retries.
	if want := contentionMaxRetries + 1; s.RetryCount() != want {
		t.Errorf("RetryCount = %d, want %d", s.RetryCount(), want)
	}
	if cb.syncs < 2 {
		t.Errorf("backend saw %d sync attempts, want retries", cb.syncs)
	}

	if _, err := s.LastResult(); err == nil {
		t.Error("LastResult error = nil, want contention failure")
	}
}

func TestNonContentionFailureNotRetried(t *testing.T) {
	s, cb := newTestScheduler(t, http.StatusBadRequest, "user_id required", true)

	s.attempt(context.Background(), false)

	if cb.syncs != 1 {
		t.Errorf("backend saw %d sync attempts, want 1 (permanent failure)", cb.syncs)
	}
	if s.RetryCount() != 1 {
		t.Errorf("RetryCount = %d, want 1", s.RetryCount())
	}
}

func TestNotifyForegroundNeverBlocks(t *testing.T) {
	s, _ := newTestScheduler(t, http.StatusOK, "", false)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			s.NotifyForeground()
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyForeground blocked")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s, _ := newTestScheduler(t, http.StatusOK, "", false)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}

func TestIsContentionError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"sync failed: status 500: database is locked", true},
		{"Deadlock detected while writing samples", true},
		{"lock timeout exceeded", true},
		{"could not obtain lock on relation", true},
		{"sync failed: status 400: user_id required", false},
		{"no reachable endpoint", false},
	}
	for _, tt := range tests {
		if got := isContentionError(tt.msg); got != tt.want {
			t.Errorf("isContentionError(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}
