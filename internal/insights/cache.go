// Package insights serves health insights from a time-boxed cache in front
// of the backend's generation endpoint, with a deterministic rule-based
// fallback when the remote call fails or returns nothing.
package insights

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/claude/glucosync/internal/backend"
	"github.com/claude/glucosync/internal/models"
)

const (
	defaultTTL = 30 * time.Minute

	// snapshotDays is the dashboard window feeding the fallback generator.
	snapshotDays = 14
)

// Service owns the cache entry. A single instance is shared so that
// ClearCache after the user logs new data affects every reader.
type Service struct {
	client *backend.Client
	userID string
	ttl    time.Duration
	log    *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	cached   models.InsightsResponse
	cachedAt time.Time
	valid    bool
}

// New creates a Service over the backend client.
func New(client *backend.Client, userID string, log *slog.Logger) *Service {
	return &Service{
		client: client,
		userID: userID,
		ttl:    defaultTTL,
		log:    log,
		now:    time.Now,
	}
}

// SetTTL overrides the cache time-to-live.
func (s *Service) SetTTL(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ttl = d
}

// GetInsights returns insights, serving from cache when the entry is valid
// and inside its TTL (unless forceRefresh). Any remote failure falls back
// to the local rule-based generator, so the caller always gets a response.
func (s *Service) GetInsights(ctx context.Context, forceRefresh bool) models.InsightsResponse {
	s.mu.Lock()
	if !forceRefresh && s.valid && s.now().Sub(s.cachedAt) < s.ttl {
		resp := s.cached
		s.mu.Unlock()
		return resp
	}
	s.mu.Unlock()

	resp, err := s.client.Insights(ctx)
	switch {
	case err != nil:
		s.log.Warn("remote insight generation failed, using fallback", "error", err)
		return s.fallback(ctx, err.Error())
	case !resp.Success || len(resp.Insights) == 0:
		s.log.Warn("remote insight generation returned nothing, using fallback",
			"reason", resp.FallbackReason)
		return s.fallback(ctx, "remote generation returned no insights")
	}

	result := *resp
	result.GeneratedAt = s.now()
	result.IsRemoteGenerated = true
	s.store(result)
	return result
}

// ClearCache invalidates the entry so the next GetInsights bypasses the
// TTL check entirely. Called after the user logs new data.
func (s *Service) ClearCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.valid = false
}

// fallback builds insights locally from a reduced metrics snapshot. A
// failed snapshot fetch still produces the generic encouragement insight;
// the generator never returns an empty list.
func (s *Service) fallback(ctx context.Context, reason string) models.InsightsResponse {
	var snapshot models.DashboardSummary
	if summary, err := s.client.Dashboard(ctx, s.userID, snapshotDays, tzOffsetMinutes(s.now())); err != nil {
		s.log.Warn("metrics snapshot unavailable for fallback insights", "error", err)
	} else {
		snapshot = *summary
	}

	result := models.InsightsResponse{
		Success:           true,
		Insights:          Generate(snapshot),
		GeneratedAt:       s.now(),
		IsRemoteGenerated: false,
		FallbackReason:    reason,
	}
	s.store(result)
	return result
}

func (s *Service) store(resp models.InsightsResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = resp
	s.cachedAt = s.now()
	s.valid = true
}

// tzOffsetMinutes is the client's UTC offset for dashboard reads.
func tzOffsetMinutes(t time.Time) int {
	_, offset := t.Local().Zone()
	return offset / 60
}
