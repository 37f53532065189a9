// Package sentiment scores comment polarity per language. The primary path
// submits the comment to a remote text-classification model; any failure
// there degrades that one item to a rule-based lexicon scorer, never the
// whole batch.
package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/obennaji/retour/internal/cache"
	"github.com/obennaji/retour/internal/model"
)

// confidenceThreshold is the minimum classifier certainty required before
// accepting a non-neutral remote label.
const confidenceThreshold = 0.55

// maxInputRunes bounds the payload submitted to the remote model.
const maxInputRunes = 512

// Analyzer scores sentiment with a remote-then-rules fallback chain.
// Construct once and reuse across batches.
type Analyzer struct {
	cfg        model.InferenceConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      cache.Cache
	logger     *zap.Logger
}

// NewAnalyzer creates a sentiment analyzer. responseCache may be nil to
// disable caching of remote responses.
func NewAnalyzer(cfg model.InferenceConfig, responseCache cache.Cache, logger *zap.Logger) *Analyzer {
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 2
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}

	return &Analyzer{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		cache:      responseCache,
		logger:     logger,
	}
}

// inferenceRequest is the payload expected by the remote endpoint.
type inferenceRequest struct {
	Inputs string `json:"inputs"`
}

// classifierScore is one label/confidence pair from the remote model.
type classifierScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Analyze scores one comment. Empty text short-circuits to neutral without
// touching either path.
func (a *Analyzer) Analyze(ctx context.Context, text string, language model.Language) model.SentimentResult {
	if strings.TrimSpace(text) == "" {
		return model.SentimentResult{
			Polarity:   model.SentimentNeutral,
			Score:      0,
			Confidence: 0,
			Label:      "neutral",
		}
	}

	if a.cfg.BaseURL != "" {
		if result, err := a.analyzeRemote(ctx, text, language); err == nil {
			return result
		} else {
			a.logger.Warn("remote sentiment inference failed, using rule-based fallback",
				zap.String("language", string(language)),
				zap.Error(err))
		}
	}

	return a.ruleBased(text)
}

// AnalyzeBatch scores each comment independently. A remote failure on one
// item degrades only that item.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, texts []string, languages []model.Language) []model.SentimentResult {
	results := make([]model.SentimentResult, len(texts))
	for i, text := range texts {
		results[i] = a.Analyze(ctx, text, languages[i])
	}
	return results
}

func (a *Analyzer) analyzeRemote(ctx context.Context, text string, language model.Language) (model.SentimentResult, error) {
	modelName := a.cfg.SentimentModel(language)
	payload := truncateRunes(text, maxInputRunes)

	key := cache.Key(modelName, payload)
	if a.cache != nil {
		if raw, found := a.cache.Get(key); found {
			var cached model.SentimentResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	if err := a.limiter.Wait(ctx); err != nil {
		return model.SentimentResult{}, fmt.Errorf("rate limit wait: %w", err)
	}

	score, err := a.queryModel(ctx, modelName, payload)
	if err != nil {
		return model.SentimentResult{}, err
	}

	result := normalizeRemote(score.Label, score.Score)

	if a.cache != nil {
		if raw, err := json.Marshal(result); err == nil {
			ttl := time.Duration(a.cfg.CacheTTL) * time.Minute
			if ttl <= 0 {
				ttl = time.Hour
			}
			_ = a.cache.Set(key, raw, ttl)
		}
	}

	return result, nil
}

// queryModel posts {"inputs": text} to the configured endpoint and returns
// the first label/score pair. The endpoint answers with a list of scored
// labels, sometimes nested one level.
func (a *Analyzer) queryModel(ctx context.Context, modelName, text string) (*classifierScore, error) {
	body, err := json.Marshal(inferenceRequest{Inputs: text})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := strings.TrimSuffix(a.cfg.BaseURL, "/") + "/" + modelName
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return parseClassifierResponse(respBody)
}

func parseClassifierResponse(raw []byte) (*classifierScore, error) {
	var flat []classifierScore
	if err := json.Unmarshal(raw, &flat); err == nil && len(flat) > 0 && flat[0].Label != "" {
		return &flat[0], nil
	}

	var nested [][]classifierScore
	if err := json.Unmarshal(raw, &nested); err == nil && len(nested) > 0 && len(nested[0]) > 0 {
		return &nested[0][0], nil
	}

	return nil, fmt.Errorf("malformed classifier response: %s", string(raw))
}

// normalizeRemote maps a raw model label and confidence onto the standard
// polarity/score form. Low-confidence or unrecognized labels collapse to
// neutral.
func normalizeRemote(label string, confidence float64) model.SentimentResult {
	lower := strings.ToLower(label)

	result := model.SentimentResult{
		Polarity:   model.SentimentNeutral,
		Score:      0,
		Confidence: confidence,
		Label:      label,
	}

	switch {
	case containsAny(lower, "pos", "positive", "1", "5_stars", "4_stars"):
		if confidence >= confidenceThreshold {
			result.Polarity = model.SentimentPositive
			result.Score = confidence
		}
	case containsAny(lower, "neg", "negative", "0", "1_star", "2_stars"):
		if confidence >= confidenceThreshold {
			result.Polarity = model.SentimentNegative
			result.Score = -confidence
		}
	}

	return result
}

// ruleBased counts lexicon hits. Ties between positive and negative hits
// resolve to negative.
func (a *Analyzer) ruleBased(text string) model.SentimentResult {
	lower := strings.ToLower(text)

	posHits := countHits(lower, positiveWords)
	negHits := countHits(lower, negativeWords)

	switch {
	case negHits > 0 && negHits >= posHits:
		return model.SentimentResult{
			Polarity:   model.SentimentNegative,
			Score:      -math.Min(0.8, 0.5+float64(negHits)*0.15),
			Confidence: math.Min(0.75, 0.5+float64(negHits)*0.1),
			Label:      "negative (rule-based)",
		}
	case posHits > negHits:
		return model.SentimentResult{
			Polarity:   model.SentimentPositive,
			Score:      math.Min(0.8, 0.5+float64(posHits)*0.15),
			Confidence: math.Min(0.75, 0.5+float64(posHits)*0.1),
			Label:      "positive (rule-based)",
		}
	default:
		return model.SentimentResult{
			Polarity:   model.SentimentNeutral,
			Score:      0,
			Confidence: 0.5,
			Label:      "neutral (rule-based)",
		}
	}
}

func countHits(lower string, words []string) int {
	count := 0
	for _, w := range words {
		if strings.Contains(lower, w) {
			count++
		}
	}
	return count
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

