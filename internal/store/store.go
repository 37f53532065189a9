// Package store persists evaluations, pipeline output, and mined insights.
// Two implementations exist: a Postgres-backed store for real deployments
// and a volatile in-memory store for tests and quick local runs.
package store

import (
	"time"

	"github.com/obennaji/retour/internal/model"
)

// ThemeDelta is one batch's contribution to a corpus-wide theme counter.
// Frequencies are added to the existing counter, never replace it.
type ThemeDelta struct {
	Name      string
	Language  model.Language
	Frequency int
	Keywords  []string
}

// EvaluationFilter narrows ListEvaluations. Zero values mean no filter.
type EvaluationFilter struct {
	FormationType string
	TrainerID     string
	Since         time.Time
	Until         time.Time
	Limit         int
}

// FormationStat aggregates satisfaction per formation type.
type FormationStat struct {
	FormationType string
	AvgScore      float64
	Count         int
}

// TrainerStat aggregates satisfaction per trainer.
type TrainerStat struct {
	TrainerID string
	AvgScore  float64
	Count     int
}

// SentimentCounts tallies analyses by polarity.
type SentimentCounts struct {
	Positive int
	Negative int
	Neutral  int
}

// Total returns the number of counted analyses.
func (c SentimentCounts) Total() int {
	return c.Positive + c.Negative + c.Neutral
}

// Store is the persistence boundary for the whole application.
//
// CommitBatch and SaveInsights are atomic: either every row of the call is
// persisted or none is.
type Store interface {
	// InsertEvaluations persists raw evaluations and assigns IDs in place.
	InsertEvaluations(evals []*model.Evaluation) error
	ListEvaluations(filter EvaluationFilter) ([]model.Evaluation, error)

	// CommitBatch persists one pipeline run: per-evaluation analyses, the
	// batch's clusters, and theme frequency deltas, in a single transaction.
	// Cluster IDs are assigned in place and analyses referencing a cluster
	// by Number are rewired to the stored ID.
	CommitBatch(analyses []*model.Analysis, clusters []*model.Cluster, themes []ThemeDelta) error

	TopThemes(language model.Language, limit int) ([]model.Theme, error)

	FormationSatisfaction() ([]FormationStat, error)
	TrainerSatisfaction() ([]TrainerStat, error)

	// SentimentCountsSince tallies analyses whose evaluation is dated at
	// or after since. The window follows the evaluation date, not the
	// processing time. A zero since counts everything.
	SentimentCountsSince(since time.Time) (SentimentCounts, error)

	SaveInsights(insights []*model.Insight) error
	RecentInsights(limit int) ([]model.Insight, error)

	Close() error
}

// New opens the store selected by configuration.
func New(cfg model.DatabaseConfig) (Store, error) {
	if cfg.UseInMemory {
		return NewMemoryStore(), nil
	}
	return NewPostgresStore(cfg)
}
