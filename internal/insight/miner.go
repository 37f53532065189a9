// Package insight mines human-readable findings from the aggregate store.
// Three fixed rules run on every pass; insights are append-only, so mining
// the same data twice produces equivalent duplicates.
package insight

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/obennaji/retour/internal/model"
	"github.com/obennaji/retour/internal/store"
)

// Rule thresholds. Satisfaction is rated 1-5.
const (
	lowSatisfactionThreshold = 3.0
	topTrainerAvgThreshold   = 4.5
	topTrainerMinCount       = 5
	negativeShiftWindow      = 7 * 24 * time.Hour
	negativeShiftPctLimit    = 30.0
)

type Miner struct {
	store  store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewMiner(st store.Store, logger *zap.Logger) *Miner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Miner{store: st, logger: logger, now: time.Now}
}

// Mine runs all rules, persists the findings atomically, and returns them.
// A save failure discards the whole pass.
func (m *Miner) Mine() ([]model.Insight, error) {
	var generated []*model.Insight
	generated = append(generated, m.lowSatisfactionFormations()...)
	generated = append(generated, m.excellentTrainers()...)
	if finding := m.negativeShift(); finding != nil {
		generated = append(generated, finding)
	}

	if len(generated) == 0 {
		m.logger.Info("insight mining produced no findings")
		return nil, nil
	}

	if err := m.store.SaveInsights(generated); err != nil {
		return nil, fmt.Errorf("save insights: %w", err)
	}
	m.logger.Info("generated insights", zap.Int("count", len(generated)))

	out := make([]model.Insight, len(generated))
	for i, insight := range generated {
		out[i] = *insight
	}
	return out, nil
}

// lowSatisfactionFormations flags every formation type whose average
// satisfaction sits below the acceptable threshold.
func (m *Miner) lowSatisfactionFormations() []*model.Insight {
	stats, err := m.store.FormationSatisfaction()
	if err != nil {
		m.logger.Error("formation satisfaction query failed", zap.Error(err))
		return nil
	}

	var insights []*model.Insight
	for _, stat := range stats {
		if stat.AvgScore >= lowSatisfactionThreshold {
			continue
		}
		insights = append(insights, &model.Insight{
			Kind:  model.InsightLowSignal,
			Title: fmt.Sprintf("Attention: Satisfaction faible pour %s", stat.FormationType),
			Description: fmt.Sprintf(
				"La formation '%s' a une satisfaction moyenne de %.2f/5, ce qui est en dessous du seuil acceptable.",
				stat.FormationType, stat.AvgScore),
			Data: map[string]any{
				"formation":        stat.FormationType,
				"avg_satisfaction": stat.AvgScore,
			},
			Confidence:    0.9,
			FormationType: stat.FormationType,
		})
	}
	return insights
}

// excellentTrainers flags trainers with sustained top satisfaction over a
// minimum number of evaluations.
func (m *Miner) excellentTrainers() []*model.Insight {
	stats, err := m.store.TrainerSatisfaction()
	if err != nil {
		m.logger.Error("trainer satisfaction query failed", zap.Error(err))
		return nil
	}

	var insights []*model.Insight
	for _, stat := range stats {
		if stat.AvgScore < topTrainerAvgThreshold || stat.Count < topTrainerMinCount {
			continue
		}
		insights = append(insights, &model.Insight{
			Kind:  model.InsightTrend,
			Title: fmt.Sprintf("Formateur excellent: %s", stat.TrainerID),
			Description: fmt.Sprintf(
				"Le formateur %s obtient une satisfaction exceptionnelle de %.2f/5 sur %d évaluations.",
				stat.TrainerID, stat.AvgScore, stat.Count),
			Data: map[string]any{
				"formateur":        stat.TrainerID,
				"avg_satisfaction": stat.AvgScore,
				"evaluations":      stat.Count,
			},
			Confidence: 0.95,
			TrainerID:  stat.TrainerID,
		})
	}
	return insights
}

// negativeShift fires when more than 30% of the last week's analyses are
// negative. Returns nil when the window is empty or below the limit.
func (m *Miner) negativeShift() *model.Insight {
	end := m.now()
	start := end.Add(-negativeShiftWindow)

	counts, err := m.store.SentimentCountsSince(start)
	if err != nil {
		m.logger.Error("sentiment counts query failed", zap.Error(err))
		return nil
	}
	total := counts.Total()
	if total == 0 {
		return nil
	}

	negativePct := float64(counts.Negative) / float64(total) * 100
	if negativePct <= negativeShiftPctLimit {
		return nil
	}

	return &model.Insight{
		Kind:  model.InsightAnomaly,
		Title: "Augmentation des sentiments négatifs",
		Description: fmt.Sprintf(
			"%.1f%% des évaluations récentes (7 derniers jours) expriment un sentiment négatif.",
			negativePct),
		Data: map[string]any{
			"sentiment_distribution": map[string]int{
				"positive": counts.Positive,
				"neutral":  counts.Neutral,
				"negative": counts.Negative,
			},
			"negative_percentage": negativePct,
		},
		Confidence:     0.8,
		DateRangeStart: &start,
		DateRangeEnd:   &end,
	}
}
