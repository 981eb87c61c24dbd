package models

import "time"

// InsightType classifies the tone of an insight card.
type InsightType string

const (
	InsightPositive InsightType = "positive"
	InsightNeutral  InsightType = "neutral"
	InsightWarning  InsightType = "warning"
	InsightTip      InsightType = "tip"
)

// Insight is a short, prioritized observation derived from recent health
// metrics. Priority runs 1 (lowest) to 5 (highest).
type Insight struct {
	ID          string      `json:"id"`
	Type        InsightType `json:"type"`
	Icon        string      `json:"icon"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Priority    int         `json:"priority"`
	IsGenerated bool        `json:"is_generated"`
	IsFallback  bool        `json:"is_fallback"`
}

// InsightsResponse is what getInsights returns, whether served from cache,
// fetched remotely, or produced by the local rule-based fallback.
type InsightsResponse struct {
	Success           bool      `json:"success"`
	Insights          []Insight `json:"insights"`
	GeneratedAt       time.Time `json:"generated_at"`
	IsRemoteGenerated bool      `json:"llmUsed"`
	FallbackReason    string    `json:"fallbackReason,omitempty"`
}
