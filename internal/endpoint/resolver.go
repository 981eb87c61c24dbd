// Package endpoint discovers which candidate backend base URL is currently
// reachable and caches the winner for a short TTL.
package endpoint

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/claude/glucosync/internal/models"
)

// HealthPath is the liveness probe path every backend instance serves.
const HealthPath = "/api/health"

const (
	defaultProbeTimeout = 3 * time.Second
	defaultTTL          = 5 * time.Minute
)

// Resolver probes an ordered list of candidate base URLs and caches the
// first one that answers the liveness check. A single Resolver instance is
// shared by every component that talks to the backend, so an invalidation
// triggered by one caller is visible to the next Resolve call from any
// other caller.
type Resolver struct {
	candidates   []string
	probeTimeout time.Duration
	ttl          time.Duration
	httpClient   *http.Client
	log          *slog.Logger
	now          func() time.Time

	mu         sync.Mutex
	cached     string
	resolvedAt time.Time
}

// New creates a Resolver over the given candidate base URLs. Trailing
// slashes are stripped so cache identity does not depend on formatting.
func New(candidates []string, log *slog.Logger) *Resolver {
	clean := make([]string, 0, len(candidates))
	for _, c := range candidates {
		clean = append(clean, strings.TrimRight(c, "/"))
	}
	return &Resolver{
		candidates:   clean,
		probeTimeout: defaultProbeTimeout,
		ttl:          defaultTTL,
		httpClient:   &http.Client{},
		log:          log,
		now:          time.Now,
	}
}

// Resolve returns a live base URL. Within the TTL the cached winner is
// returned without any network call. Candidates are probed strictly in
// order; the first success wins and the rest are skipped. If every
// candidate fails the resolver fails closed with ErrNetworkUnreachable;
// callers must not fall back to an arbitrary URL.
func (r *Resolver) Resolve(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.cached != "" && r.now().Sub(r.resolvedAt) < r.ttl {
		url := r.cached
		r.mu.Unlock()
		return url, nil
	}
	r.mu.Unlock()

	seen := make(map[string]bool, len(r.candidates))
	for _, base := range r.candidates {
		if seen[base] {
			continue
		}
		seen[base] = true

		if err := r.probe(ctx, base); err != nil {
			r.log.Warn("endpoint probe failed", "url", base, "error", err)
			continue
		}

		r.mu.Lock()
		r.cached = base
		r.resolvedAt = r.now()
		r.mu.Unlock()

		r.log.Info("endpoint resolved", "url", base)
		return base, nil
	}

	return "", fmt.Errorf("probed %d candidates: %w", len(seen), models.ErrNetworkUnreachable)
}

// Invalidate drops the cached URL so the next Resolve re-probes from the
// start of the candidate list. Callers report a failed request against the
// cached URL through this method.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cached != "" {
		r.log.Info("endpoint cache invalidated", "url", r.cached)
	}
	r.cached = ""
	r.resolvedAt = time.Time{}
}

// probe issues the liveness check against one candidate with a short
// per-candidate timeout.
func (r *Resolver) probe(ctx context.Context, base string) error {
	probeCtx, cancel := context.WithTimeout(ctx, r.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, base+HealthPath, nil)
	if err != nil {
		return fmt.Errorf("creating probe request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("probe returned status %d", resp.StatusCode)
	}
	return nil
}
