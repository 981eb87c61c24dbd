package backend

import (
	"testing"
	"time"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 4 * time.Second}, // capped
		{10, 4 * time.Second},
		{0, time.Second}, // clamped to first attempt
		{-5, time.Second},
	}

	for _, tt := range tests {
		if got := DefaultBackoff.Delay(tt.attempt); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestBackoffDelayOverflowCapped(t *testing.T) {
	b := Backoff{Base: time.Second, Max: 4 * time.Second}
	// Large attempt numbers shift past the duration range; the cap must
	// still hold.
	if got := b.Delay(80); got != b.Max {
		t.Errorf("Delay(80) = %v, want %v", got, b.Max)
	}
}
