// Package provider adapts the on-device health history store into the
// time-ranged, paginated sample queries the sync layer consumes.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/claude/glucosync/internal/healthstore"
	"github.com/claude/glucosync/internal/models"
)

const (
	defaultPageSize = 500

	// maxPasses bounds the drain loop against a source that keeps handing
	// out cursors without ever terminating.
	maxPasses = 50
)

// Page is one page of samples plus the anchor for the next fetch.
// NextCursor zero means the source is exhausted.
type Page struct {
	Samples    []models.HealthSample
	NextCursor int64
}

// PageFunc fetches the page after the given anchor cursor.
type PageFunc func(ctx context.Context, cursor int64) (Page, error)

// Drain iterates a PageFunc until the cursor is exhausted, a page yields no
// new unique samples, or maxPasses is reached. Samples are deduplicated by
// SourceID; insertion order is preserved. Pages are fetched strictly
// sequentially since the next anchor depends on the previous page.
func Drain(ctx context.Context, fetch PageFunc, passLimit int) ([]models.HealthSample, error) {
	var (
		collected []models.HealthSample
		seen      = make(map[string]bool)
		cursor    int64
	)

	for pass := 0; pass < passLimit; pass++ {
		page, err := fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}

		fresh := 0
		for _, s := range page.Samples {
			if seen[s.SourceID] {
				continue
			}
			seen[s.SourceID] = true
			collected = append(collected, s)
			fresh++
		}

		if page.NextCursor == 0 || fresh == 0 {
			return collected, nil
		}
		cursor = page.NextCursor
	}

	return collected, nil
}

// Adapter exposes the health store through the query shapes the sync
// orchestrator needs.
type Adapter struct {
	store    *healthstore.Store
	pageSize int
	log      *slog.Logger
}

// New creates an Adapter over the given store.
func New(store *healthstore.Store, log *slog.Logger) *Adapter {
	return &Adapter{store: store, pageSize: defaultPageSize, log: log}
}

// CollectQuantity drains every sample of a quantity kind in [start, end)
// via anchor-cursor pagination.
func (a *Adapter) CollectQuantity(ctx context.Context, kind models.SampleKind, start, end time.Time) ([]models.HealthSample, error) {
	fetch := func(ctx context.Context, cursor int64) (Page, error) {
		p, err := a.store.QuantityPage(ctx, kind, start, end, cursor, a.pageSize)
		if err != nil {
			return Page{}, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
		}
		return Page{Samples: p.Samples, NextCursor: p.NextCursor}, nil
	}
	return Drain(ctx, fetch, maxPasses)
}

// MarkTransmitted records which samples were sent to the backend. Pure
// bookkeeping; sync decisions never read it.
func (a *Adapter) MarkTransmitted(ctx context.Context, sourceIDs []string, at time.Time) error {
	if len(sourceIDs) == 0 {
		return nil
	}
	return a.store.MarkSynced(ctx, sourceIDs, at)
}

// CollectCategory fetches every sample of a category kind in one range
// query.
func (a *Adapter) CollectCategory(ctx context.Context, kind models.SampleKind, start, end time.Time) ([]models.HealthSample, error) {
	samples, err := a.store.CategoryRange(ctx, kind, start, end)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrProviderUnavailable, err)
	}
	return samples, nil
}
