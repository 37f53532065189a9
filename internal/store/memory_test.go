package store

import (
	"testing"
	"time"

	"github.com/obennaji/retour/internal/model"
)

func TestMemoryStore_InsertAndListEvaluations(t *testing.T) {
	s := NewMemoryStore()

	evals := []*model.Evaluation{
		{FormationType: "Management", TrainerID: "T1", Satisfaction: 4, Comment: "bien", Date: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)},
		{FormationType: "Technique", TrainerID: "T2", Satisfaction: 2, Comment: "bof", Date: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)},
		{FormationType: "Management", TrainerID: "T1", Satisfaction: 5, Comment: "super", Date: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)},
	}
	if err := s.InsertEvaluations(evals); err != nil {
		t.Fatalf("InsertEvaluations: %v", err)
	}
	for i, eval := range evals {
		if eval.ID == 0 {
			t.Errorf("evals[%d].ID not assigned", i)
		}
	}

	all, err := s.ListEvaluations(EvaluationFilter{})
	if err != nil {
		t.Fatalf("ListEvaluations: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d evaluations, want 3", len(all))
	}

	management, _ := s.ListEvaluations(EvaluationFilter{FormationType: "Management"})
	if len(management) != 2 {
		t.Errorf("formation filter: got %d, want 2", len(management))
	}

	recent, _ := s.ListEvaluations(EvaluationFilter{Since: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)})
	if len(recent) != 2 {
		t.Errorf("since filter: got %d, want 2", len(recent))
	}

	limited, _ := s.ListEvaluations(EvaluationFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit filter: got %d, want 1", len(limited))
	}
}

func TestMemoryStore_CommitBatchRewiresClusterIDs(t *testing.T) {
	s := NewMemoryStore()

	zero := int64(0)
	one := int64(1)
	analyses := []*model.Analysis{
		{EvaluationID: 1, Sentiment: model.SentimentPositive, ClusterID: &zero},
		{EvaluationID: 2, Sentiment: model.SentimentNegative, ClusterID: &one},
		{EvaluationID: 3, Sentiment: model.SentimentNeutral},
	}
	clusters := []*model.Cluster{
		{Number: 0, Size: 1},
		{Number: 1, Size: 1},
	}

	if err := s.CommitBatch(analyses, clusters, nil); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	if clusters[0].ID == 0 || clusters[1].ID == 0 {
		t.Fatal("cluster IDs not assigned")
	}
	if *analyses[0].ClusterID != clusters[0].ID {
		t.Errorf("analyses[0].ClusterID = %d, want stored cluster ID %d", *analyses[0].ClusterID, clusters[0].ID)
	}
	if *analyses[1].ClusterID != clusters[1].ID {
		t.Errorf("analyses[1].ClusterID = %d, want stored cluster ID %d", *analyses[1].ClusterID, clusters[1].ID)
	}
	if analyses[2].ClusterID != nil {
		t.Error("unclustered analysis gained a cluster ID")
	}
}

func TestMemoryStore_ThemeFrequenciesAccumulate(t *testing.T) {
	s := NewMemoryStore()

	deltas := []ThemeDelta{
		{Name: "formateur", Language: model.LangFrench, Frequency: 3, Keywords: []string{"formateur"}},
		{Name: "salle", Language: model.LangFrench, Frequency: 1, Keywords: []string{"salle"}},
	}
	if err := s.CommitBatch(nil, nil, deltas); err != nil {
		t.Fatalf("first CommitBatch: %v", err)
	}
	// Second batch bumps one counter and adds a keyword.
	if err := s.CommitBatch(nil, nil, []ThemeDelta{
		{Name: "formateur", Language: model.LangFrench, Frequency: 2, Keywords: []string{"pédagogie"}},
	}); err != nil {
		t.Fatalf("second CommitBatch: %v", err)
	}

	themes, err := s.TopThemes(model.LangFrench, 10)
	if err != nil {
		t.Fatalf("TopThemes: %v", err)
	}
	if len(themes) != 2 {
		t.Fatalf("got %d themes, want 2", len(themes))
	}
	if themes[0].Name != "formateur" || themes[0].Frequency != 5 {
		t.Errorf("top theme = %q freq %d, want formateur freq 5", themes[0].Name, themes[0].Frequency)
	}
	if len(themes[0].Keywords) != 2 {
		t.Errorf("keywords = %v, want merged distinct set of 2", themes[0].Keywords)
	}
}

func TestMemoryStore_SatisfactionAggregates(t *testing.T) {
	s := NewMemoryStore()

	evals := []*model.Evaluation{
		{FormationType: "Management", TrainerID: "T1", Satisfaction: 5},
		{FormationType: "Management", TrainerID: "T1", Satisfaction: 4},
		{FormationType: "Technique", TrainerID: "T2", Satisfaction: 2},
		{TrainerID: "T2", Satisfaction: 0}, // unrated, excluded
	}
	if err := s.InsertEvaluations(evals); err != nil {
		t.Fatalf("InsertEvaluations: %v", err)
	}

	formations, err := s.FormationSatisfaction()
	if err != nil {
		t.Fatalf("FormationSatisfaction: %v", err)
	}
	if len(formations) != 2 {
		t.Fatalf("got %d formation stats, want 2", len(formations))
	}
	if formations[0].FormationType != "Management" || formations[0].AvgScore != 4.5 || formations[0].Count != 2 {
		t.Errorf("management stat = %+v, want avg 4.5 count 2", formations[0])
	}

	trainers, err := s.TrainerSatisfaction()
	if err != nil {
		t.Fatalf("TrainerSatisfaction: %v", err)
	}
	if len(trainers) != 2 {
		t.Fatalf("got %d trainer stats, want 2", len(trainers))
	}
	if trainers[1].TrainerID != "T2" || trainers[1].Count != 1 {
		t.Errorf("trainer stat = %+v, want T2 count 1", trainers[1])
	}
}

func TestMemoryStore_SentimentCountsSince(t *testing.T) {
	s := NewMemoryStore()

	old := time.Now().AddDate(0, 0, -30)
	recent := time.Now().AddDate(0, 0, -1)
	evals := []*model.Evaluation{
		{Comment: "bof", Date: old},
		{Comment: "nul", Date: recent},
		{Comment: "bien", Date: recent},
		{Comment: "ok", Date: recent},
	}
	if err := s.InsertEvaluations(evals); err != nil {
		t.Fatalf("InsertEvaluations: %v", err)
	}

	// All four analyzed just now; the month-old evaluation must still
	// fall outside the window because its date does.
	now := time.Now()
	analyses := []*model.Analysis{
		{EvaluationID: evals[0].ID, Sentiment: model.SentimentNegative, ProcessedAt: now},
		{EvaluationID: evals[1].ID, Sentiment: model.SentimentNegative, ProcessedAt: now},
		{EvaluationID: evals[2].ID, Sentiment: model.SentimentPositive, ProcessedAt: now},
		{EvaluationID: evals[3].ID, Sentiment: model.SentimentNeutral, ProcessedAt: now},
	}
	if err := s.CommitBatch(analyses, nil, nil); err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}

	counts, err := s.SentimentCountsSince(time.Now().AddDate(0, 0, -7))
	if err != nil {
		t.Fatalf("SentimentCountsSince: %v", err)
	}
	if counts.Negative != 1 || counts.Positive != 1 || counts.Neutral != 1 {
		t.Errorf("counts = %+v, want one of each within the window", counts)
	}
	if counts.Total() != 3 {
		t.Errorf("Total() = %d, want 3", counts.Total())
	}

	all, _ := s.SentimentCountsSince(time.Time{})
	if all.Total() != 4 {
		t.Errorf("unbounded total = %d, want 4", all.Total())
	}
}

func TestMemoryStore_InsightsAppendOnly(t *testing.T) {
	s := NewMemoryStore()

	batch := []*model.Insight{
		{Kind: model.InsightLowSignal, Title: "Signal faible", Confidence: 0.9},
		{Kind: model.InsightTrend, Title: "Formateur excellent", Confidence: 0.95},
	}
	if err := s.SaveInsights(batch); err != nil {
		t.Fatalf("SaveInsights: %v", err)
	}
	// Re-running the miner on unchanged data appends duplicates.
	if err := s.SaveInsights([]*model.Insight{
		{Kind: model.InsightLowSignal, Title: "Signal faible", Confidence: 0.9},
	}); err != nil {
		t.Fatalf("second SaveInsights: %v", err)
	}

	insights, err := s.RecentInsights(10)
	if err != nil {
		t.Fatalf("RecentInsights: %v", err)
	}
	if len(insights) != 3 {
		t.Errorf("got %d insights, want 3 (duplicates kept)", len(insights))
	}

	limited, _ := s.RecentInsights(1)
	if len(limited) != 1 {
		t.Errorf("limit: got %d, want 1", len(limited))
	}
}
