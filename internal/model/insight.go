package model

import "time"

// InsightKind classifies an automatically generated finding.
type InsightKind string

const (
	InsightLowSignal      InsightKind = "low_signal"
	InsightTrend          InsightKind = "trend"
	InsightRecommendation InsightKind = "recommendation"
	InsightAnomaly        InsightKind = "anomaly"
)

// Insight is a human-readable finding mined from the aggregate store.
// Insights are immutable once created and are never superseded
// automatically: re-running the miner on unchanged data produces
// equivalent duplicates.
type Insight struct {
	ID          int64       `json:"id"`
	Kind        InsightKind `json:"kind"`
	Title       string      `json:"title"`
	Description string      `json:"description"`

	// Data carries the transparent inputs behind the finding
	// (counts, averages, thresholds).
	Data       map[string]any `json:"data,omitempty"`
	Confidence float64        `json:"confidence"` // 0 to 1

	// Optional scoping.
	FormationType  string     `json:"formation_type,omitempty"`
	TrainerID      string     `json:"trainer_id,omitempty"`
	DateRangeStart *time.Time `json:"date_range_start,omitempty"`
	DateRangeEnd   *time.Time `json:"date_range_end,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}
