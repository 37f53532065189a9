package model

import "time"

// Sentiment is the polarity assigned to a comment.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// SentimentResult is the outcome of scoring one comment.
// Label is a free-text tag naming the model or rule that produced the
// result, e.g. "positive (rule-based)" or a raw classifier label.
type SentimentResult struct {
	Polarity   Sentiment `json:"sentiment"`
	Score      float64   `json:"score"`      // -1 to 1, sign matches polarity
	Confidence float64   `json:"confidence"` // 0 to 1
	Label      string    `json:"label"`
}

// Analysis holds the per-evaluation output of the text pipeline.
type Analysis struct {
	ID           int64 `json:"id"`
	EvaluationID int64 `json:"evaluation_id"`

	DetectedLanguage Language  `json:"detected_language"`
	Sentiment        Sentiment `json:"sentiment"`
	SentimentScore   float64   `json:"sentiment_score"`
	SentimentLabel   string    `json:"sentiment_label,omitempty"`

	Themes    []string  `json:"themes"`
	Embedding []float64 `json:"embedding,omitempty"`
	ClusterID *int64    `json:"cluster_id,omitempty"`

	ProcessedAt  time.Time `json:"processed_at"`
	ModelVersion string    `json:"model_version"`
}

// Cluster is one batch-scoped group of semantically close comments,
// persisted after a clustering run. Never mutated except by a full re-run.
type Cluster struct {
	ID     int64  `json:"id"`
	Label  string `json:"label"`
	Number int    `json:"number"`
	Size   int    `json:"size"`

	RepresentativeThemes []string  `json:"representative_themes"` // top-5 by in-cluster frequency
	AvgSentiment         float64   `json:"avg_sentiment"`
	Centroid             []float64 `json:"centroid"`

	CreatedAt time.Time `json:"created_at"`
}

// Theme is a corpus-wide theme counter, unique per (Name, Language).
// Frequency only ever grows.
type Theme struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Language  Language  `json:"language"`
	Frequency int       `json:"frequency"`
	Keywords  []string  `json:"keywords"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
