package worker

import (
	"context"

	"github.com/obennaji/retour/internal/model"
)

// Analyzer produces the text-analysis part of one evaluation: language,
// sentiment, and themes. Embedding and clustering happen at batch level
// and are out of its scope.
type Analyzer interface {
	AnalyzeEvaluation(ctx context.Context, eval model.Evaluation) (*model.Analysis, error)
}

// AnalysisJob analyzes one evaluation. Index ties the out-of-order pool
// result back to its position in the batch.
type AnalysisJob struct {
	Index      int
	Evaluation model.Evaluation
	Analyzer   Analyzer
}

func (j *AnalysisJob) Execute(ctx context.Context) Result {
	analysis, err := j.Analyzer.AnalyzeEvaluation(ctx, j.Evaluation)
	return &AnalysisResult{
		Index:    j.Index,
		Analysis: analysis,
		Error:    err,
	}
}

// AnalysisResult is the per-evaluation outcome.
type AnalysisResult struct {
	Index    int
	Analysis *model.Analysis
	Error    error
}

func (r *AnalysisResult) GetError() error {
	return r.Error
}

// BatchProcessor analyzes evaluations concurrently with a bounded pool.
type BatchProcessor struct {
	analyzer    Analyzer
	concurrency int
}

func NewBatchProcessor(analyzer Analyzer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		analyzer:    analyzer,
		concurrency: concurrency,
	}
}

// ProcessEvaluations runs one job per evaluation and returns the results
// ordered by batch position.
func (b *BatchProcessor) ProcessEvaluations(ctx context.Context, evals []model.Evaluation) []*AnalysisResult {
	if len(evals) == 0 {
		return []*AnalysisResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for i, eval := range evals {
		pool.Submit(&AnalysisJob{
			Index:      i,
			Evaluation: eval,
			Analyzer:   b.analyzer,
		})
	}

	results := pool.Wait()

	ordered := make([]*AnalysisResult, len(evals))
	for _, result := range results {
		analysisResult := result.(*AnalysisResult)
		ordered[analysisResult.Index] = analysisResult
	}

	return ordered
}
