package models

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// SampleKind identifies a class of health sample tracked by the client.
type SampleKind string

const (
	KindSteps        SampleKind = "steps"
	KindDistance     SampleKind = "distance"
	KindActiveEnergy SampleKind = "active_energy"
	KindHeartRate    SampleKind = "heart_rate"
	KindSleep        SampleKind = "sleep_analysis"
)

// QuantityKinds are sampled via anchor-cursor pagination.
// Category kinds (sleep) use a single range query instead.
var QuantityKinds = []SampleKind{KindSteps, KindDistance, KindActiveEnergy, KindHeartRate}

// CategoryKinds are sampled with one range query per sync.
var CategoryKinds = []SampleKind{KindSleep}

// IsQuantity reports whether the kind is a numeric quantity kind.
func (k SampleKind) IsQuantity() bool {
	for _, q := range QuantityKinds {
		if k == q {
			return true
		}
	}
	return false
}

// HealthSample is a single reading from the on-device health provider.
// Samples are immutable once read; they are transformed and discarded
// after transmission.
type HealthSample struct {
	Kind      SampleKind `json:"kind"`
	Value     float64    `json:"value"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	SourceID  string     `json:"source_id"`
}

// DeriveSourceID builds a deterministic dedup key for providers that do
// not supply a stable sample identifier.
func DeriveSourceID(start, end time.Time, value float64) string {
	h := sha256.Sum256([]byte(fmt.Sprintf("%d|%d|%g",
		start.UnixMilli(), end.UnixMilli(), value)))
	return hex.EncodeToString(h[:16])
}

// DailyAggregate is the per-day fold of same-day samples of one kind.
// Values are summed as raw scalars in provider-native units.
type DailyAggregate struct {
	Date       string     `json:"date"` // YYYY-MM-DD, local timezone
	Kind       SampleKind `json:"kind"`
	TotalValue float64    `json:"total_value"`
	IsDaily    bool       `json:"is_daily_total"`
}

// DayKey formats a timestamp as the local calendar day used for aggregation.
func DayKey(t time.Time) string {
	return t.Local().Format("2006-01-02")
}
