package insights

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/claude/glucosync/internal/models"
)

// Rule thresholds for the fallback generator. Each rule only fires when
// the snapshot actually contains data for its metric, so an empty snapshot
// produces the generic encouragement insight alone.
const (
	morningRiseThreshold   = 1.5 // mmol/L rise from overnight baseline
	timeInRangeDeltaPoints = 5.0 // percentage-point change worth calling out
	stepsHighThreshold     = 8000
	stepsLowThreshold      = 3000
	postMealSpikeThreshold = 3.0 // mmol/L
	sleepLowThresholdHours = 6.5

	maxInsights = 3
)

// Generate evaluates the fixed, ordered rule set against a metrics
// snapshot, sorts the matches by priority descending, and truncates to
// maxInsights. It never returns an empty list.
func Generate(snap models.DashboardSummary) []models.Insight {
	var matched []models.Insight

	if snap.MorningRiseDelta > morningRiseThreshold {
		matched = append(matched, newInsight(models.InsightWarning, "sunrise", 4,
			"Morning rise pattern detected",
			fmt.Sprintf("Your glucose climbs about %.1f mmol/L in the early morning. Discuss dawn-phenomenon timing with your care team.", snap.MorningRiseDelta)))
	}

	if snap.TimeInRangePct > 0 && snap.PrevTimeInRangePct > 0 {
		delta := snap.TimeInRangePct - snap.PrevTimeInRangePct
		if delta >= timeInRangeDeltaPoints {
			matched = append(matched, newInsight(models.InsightPositive, "target", 5,
				"Time in range improved",
				fmt.Sprintf("Time in range is up %.0f points compared with the previous period. Whatever changed is working.", delta)))
		} else if delta <= -timeInRangeDeltaPoints {
			matched = append(matched, newInsight(models.InsightWarning, "target", 5,
				"Time in range declined",
				fmt.Sprintf("Time in range dropped %.0f points compared with the previous period. Worth reviewing recent meals and activity.", -delta)))
		}
	}

	if snap.AvgDailySteps >= stepsHighThreshold {
		matched = append(matched, newInsight(models.InsightPositive, "footprints", 3,
			"Strong activity level",
			fmt.Sprintf("Averaging %.0f steps a day. Regular movement helps flatten glucose curves.", snap.AvgDailySteps)))
	} else if snap.AvgDailySteps > 0 && snap.AvgDailySteps < stepsLowThreshold {
		matched = append(matched, newInsight(models.InsightTip, "footprints", 2,
			"Room for more movement",
			fmt.Sprintf("Averaging %.0f steps a day. Even a short walk after meals can reduce spikes.", snap.AvgDailySteps)))
	}

	if snap.AvgPostMealSpike > postMealSpikeThreshold {
		matched = append(matched, newInsight(models.InsightWarning, "utensils", 4,
			"Large post-meal spikes",
			fmt.Sprintf("Meals are raising glucose by %.1f mmol/L on average. Consider pre-bolusing earlier or adjusting carb portions.", snap.AvgPostMealSpike)))
	}

	if snap.AvgSleepHours > 0 && snap.AvgSleepHours < sleepLowThresholdHours {
		matched = append(matched, newInsight(models.InsightTip, "moon", 2,
			"Short on sleep",
			fmt.Sprintf("Averaging %.1f hours of sleep. Short nights are linked to higher insulin resistance the next day.", snap.AvgSleepHours)))
	}

	if len(matched) == 0 {
		return []models.Insight{newInsight(models.InsightNeutral, "sparkles", 1,
			"Keep logging",
			"Keep logging your glucose, meals, and activity. More data means sharper insights here.")}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Priority > matched[j].Priority
	})
	if len(matched) > maxInsights {
		matched = matched[:maxInsights]
	}
	return matched
}

func newInsight(t models.InsightType, icon string, priority int, title, description string) models.Insight {
	return models.Insight{
		ID:          uuid.NewString(),
		Type:        t,
		Icon:        icon,
		Title:       title,
		Description: description,
		Priority:    priority,
		IsGenerated: true,
		IsFallback:  true,
	}
}
