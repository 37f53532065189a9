// Package pipeline orchestrates the full analysis of an evaluation batch:
// language detection, sentiment, themes, embeddings, clustering, and the
// atomic commit of everything to the store.
package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/stat"

	"github.com/obennaji/retour/internal/cache"
	"github.com/obennaji/retour/internal/cluster"
	"github.com/obennaji/retour/internal/insight"
	"github.com/obennaji/retour/internal/lang"
	"github.com/obennaji/retour/internal/model"
	"github.com/obennaji/retour/internal/sentiment"
	"github.com/obennaji/retour/internal/store"
	"github.com/obennaji/retour/internal/themes"
	"github.com/obennaji/retour/internal/worker"
)

const modelVersion = "1.0"

// Pipeline wires the per-evaluation analyzers with batch-level clustering
// and persistence. The clusterer is optional: without an embedding provider
// batches are processed and stored unclustered.
type Pipeline struct {
	detector  *lang.Detector
	analyzer  *sentiment.Analyzer
	extractor *themes.Extractor
	clusterer *cluster.Clusterer
	store     store.Store
	cfg       *model.Config
	logger    *zap.Logger
}

// New builds a pipeline from configuration. embedder may be nil.
func New(cfg *model.Config, st store.Store, embedder cluster.Embedder, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}

	ttl := time.Duration(cfg.Inference.CacheTTL) * time.Minute
	responseCache := cache.NewMemoryCache(ttl, 2*ttl)

	var clusterer *cluster.Clusterer
	if embedder != nil {
		clusterer = cluster.NewClusterer(embedder, cfg.Clustering, logger)
	}

	return &Pipeline{
		detector:  lang.NewDetector(),
		analyzer:  sentiment.NewAnalyzer(cfg.Inference, responseCache, logger),
		extractor: themes.NewExtractor(),
		clusterer: clusterer,
		store:     st,
		cfg:       cfg,
		logger:    logger,
	}
}

// BatchResult carries the committed analyses of one ProcessBatch run plus
// run-level summary figures.
type BatchResult struct {
	RunID     string
	Analyses  []*model.Analysis
	Processed int
	Failed    int

	Languages  map[model.Language]int
	Sentiments store.SentimentCounts
	ThemeCount int

	ClusterInfo cluster.Info
}

// AnalyzeEvaluation runs the per-item stages: language, sentiment, themes.
// A declared evaluation language always wins over detection.
func (p *Pipeline) AnalyzeEvaluation(ctx context.Context, eval model.Evaluation) (*model.Analysis, error) {
	language := eval.Language
	if language == "" {
		language = p.detector.Detect(eval.Comment)
	}

	sentimentResult := p.analyzer.Analyze(ctx, eval.Comment, language)
	themeList := p.extractor.ExtractOne(eval.Comment, language, themes.DefaultTopN)

	return &model.Analysis{
		EvaluationID:     eval.ID,
		DetectedLanguage: language,
		Sentiment:        sentimentResult.Polarity,
		SentimentScore:   sentimentResult.Score,
		SentimentLabel:   sentimentResult.Label,
		Themes:           themeList,
		ProcessedAt:      time.Now().UTC(),
		ModelVersion:     modelVersion,
	}, nil
}

// ProcessBatch persists the raw evaluations, analyzes them concurrently,
// clusters the batch when an embedder is available, and commits the whole
// run atomically. A commit failure fails the batch.
func (p *Pipeline) ProcessBatch(ctx context.Context, evals []model.Evaluation) (*BatchResult, error) {
	if len(evals) == 0 {
		return &BatchResult{RunID: uuid.NewString()}, nil
	}

	runID := uuid.NewString()
	logger := p.logger.With(zap.String("run_id", runID))
	logger.Info("processing batch", zap.Int("evaluations", len(evals)))

	inserted := make([]*model.Evaluation, len(evals))
	for i := range evals {
		inserted[i] = &evals[i]
	}
	if err := p.store.InsertEvaluations(inserted); err != nil {
		return nil, fmt.Errorf("insert evaluations: %w", err)
	}

	processor := worker.NewBatchProcessor(p, p.cfg.Processing.MaxWorkers)
	results := processor.ProcessEvaluations(ctx, evals)

	result := &BatchResult{
		RunID:     runID,
		Languages: make(map[model.Language]int),
	}

	var analyses []*model.Analysis
	var analyzedIdx []int
	for i, res := range results {
		if res.GetError() != nil {
			result.Failed++
			logger.Warn("evaluation analysis failed",
				zap.Int64("evaluation_id", evals[i].ID),
				zap.Error(res.GetError()))
			continue
		}
		analyses = append(analyses, res.Analysis)
		analyzedIdx = append(analyzedIdx, i)
	}
	result.Processed = len(analyses)

	for _, analysis := range analyses {
		result.Languages[analysis.DetectedLanguage]++
		switch analysis.Sentiment {
		case model.SentimentPositive:
			result.Sentiments.Positive++
		case model.SentimentNegative:
			result.Sentiments.Negative++
		case model.SentimentNeutral:
			result.Sentiments.Neutral++
		}
	}

	clusters := p.clusterBatch(ctx, evals, analyses, analyzedIdx, &result.ClusterInfo, logger)

	deltas := coalesceThemes(analyses)
	result.ThemeCount = len(deltas)

	if err := p.store.CommitBatch(analyses, clusters, deltas); err != nil {
		return nil, fmt.Errorf("commit batch: %w", err)
	}
	result.Analyses = analyses

	logger.Info("batch committed",
		zap.Int("processed", result.Processed),
		zap.Int("failed", result.Failed),
		zap.Int("clusters", result.ClusterInfo.NClusters),
		zap.Int("themes", result.ThemeCount))
	return result, nil
}

// clusterBatch embeds the analyzed comments, partitions them, and builds
// per-cluster metadata. Analyses are annotated in place with embeddings and
// batch-local cluster numbers; the store rewires those to row IDs.
func (p *Pipeline) clusterBatch(ctx context.Context, evals []model.Evaluation, analyses []*model.Analysis, analyzedIdx []int, info *cluster.Info, logger *zap.Logger) []*model.Cluster {
	if p.clusterer == nil || len(analyses) == 0 {
		return nil
	}

	texts := make([]string, len(analyses))
	for i, idx := range analyzedIdx {
		texts[i] = evals[idx].Comment
	}

	embeddings, labels, clusterInfo, err := p.clusterer.Cluster(ctx, texts, "", cluster.Params{})
	if err != nil {
		logger.Warn("clustering failed, storing batch unclustered", zap.Error(err))
		return nil
	}
	if len(labels) != len(analyses) {
		// Embedding failure already logged by the clusterer.
		return nil
	}
	*info = clusterInfo

	members := make(map[int][]int) // label -> analysis indices
	for i, label := range labels {
		analyses[i].Embedding = embeddings[i]
		if label == cluster.Noise {
			continue
		}
		number := int64(label)
		analyses[i].ClusterID = &number
		members[label] = append(members[label], i)
	}

	labelsSorted := make([]int, 0, len(members))
	for label := range members {
		labelsSorted = append(labelsSorted, label)
	}
	sort.Ints(labelsSorted)

	var clusters []*model.Cluster
	for _, label := range labelsSorted {
		indices := members[label]
		clusters = append(clusters, &model.Cluster{
			Label:                fmt.Sprintf("Cluster %d", label),
			Number:               label,
			Size:                 len(indices),
			RepresentativeThemes: topClusterThemes(analyses, indices, 5),
			AvgSentiment:         avgSentiment(analyses, indices),
			Centroid:             centroid(embeddings, indices),
		})
	}
	return clusters
}

// topClusterThemes returns the most frequent themes across the cluster's
// analyses, ties broken by first appearance.
func topClusterThemes(analyses []*model.Analysis, indices []int, n int) []string {
	counts := make(map[string]int)
	var order []string
	for _, idx := range indices {
		for _, theme := range analyses[idx].Themes {
			if counts[theme] == 0 {
				order = append(order, theme)
			}
			counts[theme]++
		}
	}

	firstSeen := make(map[string]int, len(order))
	for i, theme := range order {
		firstSeen[theme] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if counts[order[i]] != counts[order[j]] {
			return counts[order[i]] > counts[order[j]]
		}
		return firstSeen[order[i]] < firstSeen[order[j]]
	})

	if len(order) > n {
		order = order[:n]
	}
	return order
}

func avgSentiment(analyses []*model.Analysis, indices []int) float64 {
	scores := make([]float64, len(indices))
	for i, idx := range indices {
		scores[i] = analyses[idx].SentimentScore
	}
	return stat.Mean(scores, nil)
}

func centroid(embeddings [][]float64, indices []int) []float64 {
	if len(indices) == 0 || len(embeddings) == 0 {
		return nil
	}
	dims := len(embeddings[indices[0]])
	sum := make([]float64, dims)
	for _, idx := range indices {
		for d, v := range embeddings[idx] {
			sum[d] += v
		}
	}
	for d := range sum {
		sum[d] /= float64(len(indices))
	}
	return sum
}

// GenerateInsights runs the mining rules over the aggregate store.
func (p *Pipeline) GenerateInsights() ([]model.Insight, error) {
	return insight.NewMiner(p.store, p.logger).Mine()
}

// CategorizedThemes aggregates the top-N corpus themes into the four fixed
// categories.
func (p *Pipeline) CategorizedThemes(topN int) (map[themes.Category]*themes.CategoryStats, error) {
	top, err := p.store.TopThemes("", topN)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	return themes.NewCategorizer().Breakdown(top), nil
}

// coalesceThemes merges every analysis's themes into per-(name, language)
// frequency deltas for the corpus-wide counters.
func coalesceThemes(analyses []*model.Analysis) []store.ThemeDelta {
	type key struct {
		name string
		lang model.Language
	}
	counts := make(map[key]int)
	var order []key
	for _, analysis := range analyses {
		for _, theme := range analysis.Themes {
			if theme == "" {
				continue
			}
			k := key{name: theme, lang: analysis.DetectedLanguage}
			if counts[k] == 0 {
				order = append(order, k)
			}
			counts[k]++
		}
	}

	deltas := make([]store.ThemeDelta, 0, len(order))
	for _, k := range order {
		deltas = append(deltas, store.ThemeDelta{
			Name:      k.name,
			Language:  k.lang,
			Frequency: counts[k],
			Keywords:  []string{k.name},
		})
	}
	return deltas
}
