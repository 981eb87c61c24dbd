package models

import (
	"testing"
	"time"
)

func TestDeriveSourceID(t *testing.T) {
	start := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	a := DeriveSourceID(start, end, 512)
	b := DeriveSourceID(start, end, 512)
	if a != b {
		t.Errorf("same inputs produced different IDs: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("ID length = %d, want 32 hex chars", len(a))
	}

	if c := DeriveSourceID(start, end, 513); c == a {
		t.Error("different value produced the same ID")
	}
	if c := DeriveSourceID(start.Add(time.Millisecond), end, 512); c == a {
		t.Error("different start time produced the same ID")
	}
}

func TestCoverageReportMetrics(t *testing.T) {
	report := CoverageReport{
		OverallUniqueDays: 40,
		PerKind: map[SampleKind]KindCoverage{
			KindSteps:        {UniqueDays: 30},
			KindDistance:     {UniqueDays: 20},
			KindActiveEnergy: {UniqueDays: 10},
			KindHeartRate:    {UniqueDays: 0},
		},
	}

	if got := report.KindsWithData(); got != 3 {
		t.Errorf("KindsWithData() = %d, want 3", got)
	}
	if got := report.AvgDaysPerKind(); got != 20 {
		t.Errorf("AvgDaysPerKind() = %g, want 20", got)
	}

	empty := CoverageReport{}
	if got := empty.AvgDaysPerKind(); got != 0 {
		t.Errorf("empty report AvgDaysPerKind() = %g, want 0", got)
	}
}

func TestIsQuantity(t *testing.T) {
	for _, kind := range QuantityKinds {
		if !kind.IsQuantity() {
			t.Errorf("%s.IsQuantity() = false", kind)
		}
	}
	if KindSleep.IsQuantity() {
		t.Error("sleep_analysis.IsQuantity() = true, want false")
	}
}
