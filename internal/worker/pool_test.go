package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/obennaji/retour/internal/model"
)

// gateAnalyzer holds each evaluation for a fixed duration and tracks how
// many run at once.
type gateAnalyzer struct {
	hold    time.Duration
	started chan struct{}
	once    sync.Once

	mu       sync.Mutex
	current  int
	peak     int
	executed int
}

func (a *gateAnalyzer) AnalyzeEvaluation(ctx context.Context, eval model.Evaluation) (*model.Analysis, error) {
	if a.started != nil {
		a.once.Do(func() { close(a.started) })
	}

	a.mu.Lock()
	a.current++
	if a.current > a.peak {
		a.peak = a.current
	}
	a.mu.Unlock()

	if a.hold > 0 {
		select {
		case <-time.After(a.hold):
		case <-ctx.Done():
			a.mu.Lock()
			a.current--
			a.mu.Unlock()
			return nil, ctx.Err()
		}
	}

	a.mu.Lock()
	a.current--
	a.executed++
	a.mu.Unlock()
	return &model.Analysis{EvaluationID: eval.ID}, nil
}

func submitAnalysisJobs(pool *Pool, analyzer Analyzer, comments []string) {
	for i, comment := range comments {
		pool.Submit(&AnalysisJob{
			Index:      i,
			Evaluation: model.Evaluation{ID: int64(i + 1), Comment: comment},
			Analyzer:   analyzer,
		})
	}
}

func TestNewPool_ClampsWorkerCount(t *testing.T) {
	if p := NewPool(5); p.workers != 5 {
		t.Errorf("workers = %d, want 5", p.workers)
	}
	if p := NewPool(0); p.workers != 1 {
		t.Errorf("workers = %d, want 1 for zero input", p.workers)
	}
	if p := NewPool(-1); p.workers != 1 {
		t.Errorf("workers = %d, want 1 for negative input", p.workers)
	}
}

func TestPool_AnalyzesEveryEvaluation(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	analyzer := &gateAnalyzer{}
	comments := make([]string, 10)
	for i := range comments {
		comments[i] = "bien"
	}
	submitAnalysisJobs(pool, analyzer, comments)

	results := pool.Wait()
	if len(results) != len(comments) {
		t.Fatalf("got %d results, want %d", len(results), len(comments))
	}
	if analyzer.executed != len(comments) {
		t.Errorf("analyzed %d evaluations, want %d", analyzer.executed, len(comments))
	}

	// Results arrive out of order; every batch position must appear once.
	seen := make(map[int]bool)
	for _, result := range results {
		analysisResult := result.(*AnalysisResult)
		if analysisResult.Analysis.EvaluationID != int64(analysisResult.Index+1) {
			t.Errorf("result for index %d carries evaluation %d", analysisResult.Index, analysisResult.Analysis.EvaluationID)
		}
		seen[analysisResult.Index] = true
	}
	if len(seen) != len(comments) {
		t.Errorf("got %d distinct batch positions, want %d", len(seen), len(comments))
	}
}

func TestPool_ConcurrencyBounded(t *testing.T) {
	workers := 4
	pool := NewPool(workers)
	pool.Start()

	analyzer := &gateAnalyzer{hold: 10 * time.Millisecond}
	comments := make([]string, 20)
	for i := range comments {
		comments[i] = "bien"
	}
	submitAnalysisJobs(pool, analyzer, comments)
	pool.Wait()

	if analyzer.executed != len(comments) {
		t.Errorf("analyzed %d evaluations, want %d", analyzer.executed, len(comments))
	}
	if analyzer.peak > workers {
		t.Errorf("peak concurrency %d exceeded %d workers", analyzer.peak, workers)
	}
}

func TestPool_ErrorsSurfaceInResults(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	submitAnalysisJobs(pool, echoAnalyzer{}, []string{"fail here", "bien"})

	results := pool.Wait()
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}

	failures := 0
	for _, res := range results {
		if res.GetError() != nil {
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("got %d failed results, want 1", failures)
	}
}

func TestPool_SubmitAfterShutdownDoesNotBlock(t *testing.T) {
	pool := NewPool(2)
	pool.Start()
	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		submitAnalysisJobs(pool, echoAnalyzer{}, []string{"bien"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Submit after Shutdown blocked")
	}
}

func TestPool_ShutdownClosesResults(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	analyzer := &gateAnalyzer{hold: 200 * time.Millisecond, started: make(chan struct{})}
	submitAnalysisJobs(pool, analyzer, []string{"bien"})
	<-analyzer.started

	pool.Shutdown()

	done := make(chan struct{})
	go func() {
		for range pool.results {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("results channel never closed after Shutdown")
	}
}
