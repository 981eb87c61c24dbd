package healthstore

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/claude/glucosync/internal/models"
)

// SeedDemo fills the store with plausible demo samples for the last N
// days so the full sync pipeline can run end to end against the dev
// backend. The generator is seeded deterministically so repeated runs
// produce the same data and the same source IDs, keeping inserts
// idempotent.
func SeedDemo(ctx context.Context, s *Store, days int, now time.Time) (int64, error) {
	rng := rand.New(rand.NewSource(42))
	var samples []models.HealthSample

	for d := 0; d < days; d++ {
		day := now.AddDate(0, 0, -d)
		y, mo, dd := day.Local().Date()
		morning := time.Date(y, mo, dd, 7, 0, 0, 0, day.Location())

		// Hourly steps and distance through the waking day.
		for h := 0; h < 14; h++ {
			start := morning.Add(time.Duration(h) * time.Hour)
			end := start.Add(time.Hour)
			samples = append(samples,
				models.HealthSample{Kind: models.KindSteps, Value: float64(200 + rng.Intn(900)), StartTime: start, EndTime: end},
				models.HealthSample{Kind: models.KindDistance, Value: 0.1 + rng.Float64()*0.7, StartTime: start, EndTime: end},
			)
			if h%2 == 0 {
				samples = append(samples, models.HealthSample{
					Kind: models.KindActiveEnergy, Value: float64(20 + rng.Intn(60)),
					StartTime: start, EndTime: end,
				})
			}
			samples = append(samples, models.HealthSample{
				Kind: models.KindHeartRate, Value: float64(58 + rng.Intn(50)),
				StartTime: start.Add(30 * time.Minute), EndTime: start.Add(30 * time.Minute),
			})
		}

		// One sleep block per night, value in hours.
		sleepStart := time.Date(y, mo, dd, 23, 0, 0, 0, day.Location()).AddDate(0, 0, -1)
		sleepHours := 6.0 + rng.Float64()*2.5
		samples = append(samples, models.HealthSample{
			Kind:      models.KindSleep,
			Value:     sleepHours,
			StartTime: sleepStart,
			EndTime:   sleepStart.Add(time.Duration(sleepHours * float64(time.Hour))),
		})
	}

	inserted, err := s.Insert(ctx, samples)
	if err != nil {
		return inserted, fmt.Errorf("seeding demo data: %w", err)
	}
	return inserted, nil
}
