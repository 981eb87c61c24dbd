// Package scheduler drives the sync manager from a repeating timer and
// app-foreground transitions, with a manual override that bypasses both
// the timer and the cooldown.
package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	gosync "sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/claude/glucosync/internal/models"
	"github.com/claude/glucosync/internal/sync"
)

// contentionMaxRetries caps the bounded retry for recoverable backend
// contention errors before the scheduler gives up and waits for manual
// intervention.
const contentionMaxRetries = 3

// Scheduler owns the trigger sources. Failures land in component state
// (LastError, RetryCount) instead of propagating to the trigger.
type Scheduler struct {
	manager  *sync.Manager
	interval time.Duration
	log      *slog.Logger

	foreground chan struct{}

	mu         gosync.Mutex
	lastResult models.SyncResult
	lastErr    error
	retries    int
}

// New creates a Scheduler. interval must be at least the manager's
// cooldown so timer ticks are not systematically skipped.
func New(manager *sync.Manager, interval time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		manager:    manager,
		interval:   interval,
		log:        log,
		foreground: make(chan struct{}, 1),
	}
}

// Run blocks until the context is canceled, syncing on every tick and on
// every foreground notification. Overlapping triggers collapse into the
// manager's single in-flight call.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.attempt(ctx, false)
		case <-s.foreground:
			s.attempt(ctx, false)
		}
	}
}

// NotifyForeground signals an app-foreground transition. Non-blocking;
// a pending notification absorbs duplicates.
func (s *Scheduler) NotifyForeground() {
	select {
	case s.foreground <- struct{}{}:
	default:
	}
}

// TriggerManual runs a user-requested sync immediately, bypassing the
// timer and the cooldown.
func (s *Scheduler) TriggerManual(ctx context.Context) models.SyncResult {
	result := s.manager.RunSync(ctx, models.SyncAutoDetect, 0, true)
	s.record(result)
	return result
}

// LastResult returns the outcome of the most recent attempt.
func (s *Scheduler) LastResult() (models.SyncResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastResult, s.lastErr
}

// RetryCount returns consecutive failed attempts since the last success.
func (s *Scheduler) RetryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.retries
}

// attempt runs one automatic sync. Lock/deadlock-style backend contention
// gets a bounded exponential retry of its own; every other failure is
// recorded once and left for the next trigger.
func (s *Scheduler) attempt(ctx context.Context, manual bool) {
	op := func() error {
		result := s.manager.RunSync(ctx, models.SyncAutoDetect, 0, manual)
		s.record(result)
		if result.Success {
			return nil
		}
		if isContentionError(result.Message) {
			return errors.New(result.Message)
		}
		return backoff.Permanent(errors.New(result.Message))
	}

	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), contentionMaxRetries), ctx)
	if err := backoff.Retry(op, bo); err != nil {
		s.log.Warn("scheduled sync failed", "error", err)
	}
}

func (s *Scheduler) record(result models.SyncResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastResult = result
	if result.Success {
		s.lastErr = nil
		s.retries = 0
		return
	}
	s.lastErr = errors.New(result.Message)
	s.retries++
}

// isContentionError recognizes the narrow class of recoverable backend
// contention failures worth retrying at this level.
func isContentionError(msg string) bool {
	lower := strings.ToLower(msg)
	for _, marker := range []string{"deadlock", "database is locked", "lock timeout", "could not obtain lock"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
