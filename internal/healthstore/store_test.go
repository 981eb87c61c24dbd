package healthstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/claude/glucosync/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "health.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func stepSample(start time.Time, value float64) models.HealthSample {
	return models.HealthSample{
		Kind:      models.KindSteps,
		Value:     value,
		StartTime: start,
		EndTime:   start.Add(time.Hour),
	}
}

func TestInsertDerivesSourceIDAndDeduplicates(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	n, err := s.Insert(ctx, []models.HealthSample{stepSample(start, 500)})
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if n != 1 {
		t.Errorf("inserted %d rows, want 1", n)
	}

	// Same sample again: same derived source ID, must be ignored.
	n, err = s.Insert(ctx, []models.HealthSample{stepSample(start, 500)})
	if err != nil {
		t.Fatalf("Insert duplicate: %v", err)
	}
	if n != 0 {
		t.Errorf("duplicate insert affected %d rows, want 0", n)
	}

	count, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if count != 1 {
		t.Errorf("Count = %d, want 1", count)
	}
}

func TestQuantityPagePagination(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)

	var samples []models.HealthSample
	for i := 0; i < 5; i++ {
		samples = append(samples, stepSample(base.Add(time.Duration(i)*time.Hour), float64(100+i)))
	}
	if _, err := s.Insert(ctx, samples); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	start, end := base.Add(-time.Hour), base.Add(24*time.Hour)

	var (
		cursor int64
		pages  int
		total  int
	)
	for {
		page, err := s.QuantityPage(ctx, models.KindSteps, start, end, cursor, 2)
		if err != nil {
			t.Fatalf("QuantityPage: %v", err)
		}
		pages++
		total += len(page.Samples)
		if page.NextCursor == 0 {
			break
		}
		cursor = page.NextCursor
	}

	if pages != 3 {
		t.Errorf("pages = %d, want 3 (2+2+1)", pages)
	}
	if total != 5 {
		t.Errorf("total samples = %d, want 5", total)
	}
}

func TestQuantityPageHonorsRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 5, 1, 6, 0, 0, 0, time.UTC)

	if _, err := s.Insert(ctx, []models.HealthSample{
		stepSample(base, 100),
		stepSample(base.AddDate(0, 0, -3), 200), // outside window
	}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	page, err := s.QuantityPage(ctx, models.KindSteps, base.Add(-time.Hour), base.Add(time.Hour), 0, 10)
	if err != nil {
		t.Fatalf("QuantityPage: %v", err)
	}
	if len(page.Samples) != 1 {
		t.Fatalf("got %d samples, want 1 inside the window", len(page.Samples))
	}
	if page.Samples[0].Value != 100 {
		t.Errorf("Value = %g, want 100", page.Samples[0].Value)
	}
	if page.NextCursor != 0 {
		t.Errorf("NextCursor = %d, want 0 on a short page", page.NextCursor)
	}
}

func TestCategoryRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	night := time.Date(2026, 5, 1, 23, 0, 0, 0, time.UTC)

	if _, err := s.Insert(ctx, []models.HealthSample{{
		Kind:      models.KindSleep,
		Value:     7.5,
		StartTime: night,
		EndTime:   night.Add(7*time.Hour + 30*time.Minute),
	}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	samples, err := s.CategoryRange(ctx, models.KindSleep, night.Add(-time.Hour), night.Add(time.Hour))
	if err != nil {
		t.Fatalf("CategoryRange: %v", err)
	}
	if len(samples) != 1 {
		t.Fatalf("got %d samples, want 1", len(samples))
	}
	if samples[0].Value != 7.5 {
		t.Errorf("Value = %g, want 7.5", samples[0].Value)
	}
	if samples[0].SourceID == "" {
		t.Error("stored sample has no source ID")
	}
}

func TestSeedDemoIsIdempotent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	first, err := SeedDemo(ctx, s, 3, now)
	if err != nil {
		t.Fatalf("SeedDemo: %v", err)
	}
	if first == 0 {
		t.Fatal("first seed inserted nothing")
	}

	second, err := SeedDemo(ctx, s, 3, now)
	if err != nil {
		t.Fatalf("SeedDemo repeat: %v", err)
	}
	if second != 0 {
		t.Errorf("second seed inserted %d rows, want 0 (deterministic source IDs)", second)
	}
}
