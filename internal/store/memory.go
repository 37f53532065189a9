package store

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/obennaji/retour/internal/model"
)

// MemoryStore keeps everything in process memory. Used by tests and by
// runs configured with database.use_in_memory.
type MemoryStore struct {
	mu sync.RWMutex

	evaluations []model.Evaluation
	analyses    []model.Analysis
	clusters    []model.Cluster
	themes      map[string]*model.Theme // key: name + "\x00" + language
	insights    []model.Insight

	nextEvalID     int64
	nextAnalysisID int64
	nextClusterID  int64
	nextThemeID    int64
	nextInsightID  int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		themes:         make(map[string]*model.Theme),
		nextEvalID:     1,
		nextAnalysisID: 1,
		nextClusterID:  1,
		nextThemeID:    1,
		nextInsightID:  1,
	}
}

func themeKey(name string, lang model.Language) string {
	return name + "\x00" + string(lang)
}

func (s *MemoryStore) InsertEvaluations(evals []*model.Evaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, eval := range evals {
		eval.ID = s.nextEvalID
		s.nextEvalID++
		if eval.CreatedAt.IsZero() {
			eval.CreatedAt = now
		}
		s.evaluations = append(s.evaluations, *eval)
	}
	return nil
}

func (s *MemoryStore) ListEvaluations(filter EvaluationFilter) ([]model.Evaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Evaluation
	for _, eval := range s.evaluations {
		if filter.FormationType != "" && eval.FormationType != filter.FormationType {
			continue
		}
		if filter.TrainerID != "" && eval.TrainerID != filter.TrainerID {
			continue
		}
		if !filter.Since.IsZero() && eval.Date.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && eval.Date.After(filter.Until) {
			continue
		}
		out = append(out, eval)
		if filter.Limit > 0 && len(out) >= filter.Limit {
			break
		}
	}
	return out, nil
}

func (s *MemoryStore) CommitBatch(analyses []*model.Analysis, clusters []*model.Cluster, themes []ThemeDelta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	// Assign cluster IDs first so analyses can be rewired from the
	// batch-local cluster number to the stored ID.
	numberToID := make(map[int64]int64, len(clusters))
	for _, cluster := range clusters {
		cluster.ID = s.nextClusterID
		s.nextClusterID++
		if cluster.CreatedAt.IsZero() {
			cluster.CreatedAt = now
		}
		numberToID[int64(cluster.Number)] = cluster.ID
		s.clusters = append(s.clusters, *cluster)
	}

	for _, analysis := range analyses {
		analysis.ID = s.nextAnalysisID
		s.nextAnalysisID++
		if analysis.ClusterID != nil {
			if id, ok := numberToID[*analysis.ClusterID]; ok {
				stored := id
				analysis.ClusterID = &stored
			}
		}
		s.analyses = append(s.analyses, *analysis)
	}

	for _, delta := range themes {
		key := themeKey(delta.Name, delta.Language)
		if existing, ok := s.themes[key]; ok {
			existing.Frequency += delta.Frequency
			existing.Keywords = mergeKeywords(existing.Keywords, delta.Keywords)
			existing.UpdatedAt = now
			continue
		}
		s.themes[key] = &model.Theme{
			ID:        s.nextThemeID,
			Name:      delta.Name,
			Language:  delta.Language,
			Frequency: delta.Frequency,
			Keywords:  append([]string(nil), delta.Keywords...),
			CreatedAt: now,
			UpdatedAt: now,
		}
		s.nextThemeID++
	}

	return nil
}

func mergeKeywords(existing, incoming []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, k := range existing {
		seen[k] = true
	}
	for _, k := range incoming {
		if !seen[k] {
			existing = append(existing, k)
			seen[k] = true
		}
	}
	return existing
}

func (s *MemoryStore) TopThemes(language model.Language, limit int) ([]model.Theme, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Theme
	for _, theme := range s.themes {
		if language != "" && theme.Language != language {
			continue
		}
		out = append(out, *theme)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Frequency != out[j].Frequency {
			return out[i].Frequency > out[j].Frequency
		}
		return strings.Compare(out[i].Name, out[j].Name) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) FormationSatisfaction() ([]FormationStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, eval := range s.evaluations {
		if eval.FormationType == "" || eval.Satisfaction == 0 {
			continue
		}
		sums[eval.FormationType] += eval.Satisfaction
		counts[eval.FormationType]++
	}

	stats := make([]FormationStat, 0, len(sums))
	for formationType, sum := range sums {
		stats = append(stats, FormationStat{
			FormationType: formationType,
			AvgScore:      float64(sum) / float64(counts[formationType]),
			Count:         counts[formationType],
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].FormationType < stats[j].FormationType })
	return stats, nil
}

func (s *MemoryStore) TrainerSatisfaction() ([]TrainerStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[string]int)
	counts := make(map[string]int)
	for _, eval := range s.evaluations {
		if eval.TrainerID == "" || eval.Satisfaction == 0 {
			continue
		}
		sums[eval.TrainerID] += eval.Satisfaction
		counts[eval.TrainerID]++
	}

	stats := make([]TrainerStat, 0, len(sums))
	for trainerID, sum := range sums {
		stats = append(stats, TrainerStat{
			TrainerID: trainerID,
			AvgScore:  float64(sum) / float64(counts[trainerID]),
			Count:     counts[trainerID],
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].TrainerID < stats[j].TrainerID })
	return stats, nil
}

func (s *MemoryStore) SentimentCountsSince(since time.Time) (SentimentCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make(map[int64]time.Time, len(s.evaluations))
	for _, eval := range s.evaluations {
		dates[eval.ID] = eval.Date
	}

	var counts SentimentCounts
	for _, analysis := range s.analyses {
		if !since.IsZero() {
			// The window follows the evaluation date, not the processing
			// time, so re-analyzing old evaluations never inflates it.
			date, ok := dates[analysis.EvaluationID]
			if !ok || date.Before(since) {
				continue
			}
		}
		switch analysis.Sentiment {
		case model.SentimentPositive:
			counts.Positive++
		case model.SentimentNegative:
			counts.Negative++
		case model.SentimentNeutral:
			counts.Neutral++
		}
	}
	return counts, nil
}

func (s *MemoryStore) SaveInsights(insights []*model.Insight) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for _, insight := range insights {
		insight.ID = s.nextInsightID
		s.nextInsightID++
		if insight.CreatedAt.IsZero() {
			insight.CreatedAt = now
		}
		s.insights = append(s.insights, *insight)
	}
	return nil
}

func (s *MemoryStore) RecentInsights(limit int) ([]model.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]model.Insight(nil), s.insights...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
