package endpoint

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/claude/glucosync/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// healthServer answers the liveness probe with the given status and counts
// how many probes it received.
func healthServer(t *testing.T, status int) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var probes atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != HealthPath {
			t.Errorf("probe hit %s, want %s", r.URL.Path, HealthPath)
		}
		probes.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &probes
}

func TestResolveProbesInOrder(t *testing.T) {
	down, downProbes := healthServer(t, http.StatusServiceUnavailable)
	up, upProbes := healthServer(t, http.StatusOK)
	spare, spareProbes := healthServer(t, http.StatusOK)

	r := New([]string{down.URL, up.URL, spare.URL}, testLogger())

	got, err := r.Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != up.URL {
		t.Errorf("resolved %s, want %s", got, up.URL)
	}
	if downProbes.Load() != 1 || upProbes.Load() != 1 {
		t.Errorf("probes = %d/%d, want 1/1", downProbes.Load(), upProbes.Load())
	}
	if spareProbes.Load() != 0 {
		t.Error("candidate after the winner was probed")
	}
}

func TestResolveCachesWithinTTL(t *testing.T) {
	up, probes := healthServer(t, http.StatusOK)
	r := New([]string{up.URL}, testLogger())

	for i := 0; i < 3; i++ {
		if _, err := r.Resolve(context.Background()); err != nil {
			t.Fatalf("Resolve %d: %v", i, err)
		}
	}
	if probes.Load() != 1 {
		t.Errorf("probes = %d, want 1 (cache should absorb repeat calls)", probes.Load())
	}
}

func TestResolveReprobesAfterTTL(t *testing.T) {
	up, probes := healthServer(t, http.StatusOK)
	r := New([]string{up.URL}, testLogger())

	current := time.Now()
	r.now = func() time.Time { return current }

	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	current = current.Add(r.ttl + time.Second)
	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve after TTL: %v", err)
	}
	if probes.Load() != 2 {
		t.Errorf("probes = %d, want 2 (TTL expiry should re-probe)", probes.Load())
	}
}

func TestInvalidateForcesReprobe(t *testing.T) {
	up, probes := healthServer(t, http.StatusOK)
	r := New([]string{up.URL}, testLogger())

	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	r.Invalidate()
	if _, err := r.Resolve(context.Background()); err != nil {
		t.Fatalf("Resolve after invalidation: %v", err)
	}
	if probes.Load() != 2 {
		t.Errorf("probes = %d, want 2", probes.Load())
	}
}

func TestResolveFailsClosed(t *testing.T) {
	down, _ := healthServer(t, http.StatusInternalServerError)
	r := New([]string{down.URL, "http://127.0.0.1:1"}, testLogger())
	r.probeTimeout = 500 * time.Millisecond

	_, err := r.Resolve(context.Background())
	if err == nil {
		t.Fatal("Resolve succeeded with no live candidate")
	}
	if !errors.Is(err, models.ErrNetworkUnreachable) {
		t.Errorf("error = %v, want ErrNetworkUnreachable", err)
	}
}

func TestDuplicateCandidatesProbedOnce(t *testing.T) {
	down, probes := healthServer(t, http.StatusServiceUnavailable)
	r := New([]string{down.URL, down.URL + "/", down.URL}, testLogger())

	if _, err := r.Resolve(context.Background()); err == nil {
		t.Fatal("Resolve succeeded with no live candidate")
	}
	if probes.Load() != 1 {
		t.Errorf("probes = %d, want 1 (duplicates should be skipped)", probes.Load())
	}
}
