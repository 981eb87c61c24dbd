package provider

import (
	"sort"

	"github.com/claude/glucosync/internal/models"
)

// Per-day record caps applied in quick/incremental modes. Full-historical
// syncs are never capped.
const (
	capStepLike    = 200 // steps, distance
	capCalorieLike = 100 // active energy
	capOther       = 50
)

// dailyCap returns the per-day record limit for a kind.
func dailyCap(kind models.SampleKind) int {
	switch kind {
	case models.KindSteps, models.KindDistance:
		return capStepLike
	case models.KindActiveEnergy:
		return capCalorieLike
	default:
		return capOther
	}
}

// AggregateDaily folds same-day samples of one kind into one DailyAggregate
// per local calendar day. Values are summed as raw scalars in
// provider-native units; no conversion happens client-side. The result is
// sorted by date.
func AggregateDaily(samples []models.HealthSample, kind models.SampleKind) []models.DailyAggregate {
	totals := make(map[string]float64)
	for _, s := range samples {
		totals[models.DayKey(s.StartTime)] += s.Value
	}

	aggs := make([]models.DailyAggregate, 0, len(totals))
	for date, total := range totals {
		aggs = append(aggs, models.DailyAggregate{
			Date:       date,
			Kind:       kind,
			TotalValue: total,
			IsDaily:    true,
		})
	}
	sort.Slice(aggs, func(i, j int) bool { return aggs[i].Date < aggs[j].Date })
	return aggs
}

// CapPerDay limits samples to the kind's per-day cap, keeping the
// most-recent records of each day (descending start time, then truncate).
func CapPerDay(samples []models.HealthSample, kind models.SampleKind) []models.HealthSample {
	limit := dailyCap(kind)

	byDay := make(map[string][]models.HealthSample)
	var dayOrder []string
	for _, s := range samples {
		day := models.DayKey(s.StartTime)
		if _, ok := byDay[day]; !ok {
			dayOrder = append(dayOrder, day)
		}
		byDay[day] = append(byDay[day], s)
	}
	sort.Strings(dayOrder)

	var kept []models.HealthSample
	for _, day := range dayOrder {
		daySamples := byDay[day]
		sort.Slice(daySamples, func(i, j int) bool {
			return daySamples[i].StartTime.After(daySamples[j].StartTime)
		})
		if len(daySamples) > limit {
			daySamples = daySamples[:limit]
		}
		kept = append(kept, daySamples...)
	}
	return kept
}
