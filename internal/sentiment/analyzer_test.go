package sentiment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/obennaji/retour/internal/cache"
	"github.com/obennaji/retour/internal/model"
)

func newTestAnalyzer(baseURL string) *Analyzer {
	cfg := model.InferenceConfig{
		BaseURL:           baseURL,
		Timeout:           2,
		FrenchModel:       "test/french-model",
		ArabicModel:       "test/arabic-model",
		DarijaModel:       "test/darija-model",
		RequestsPerSecond: 100,
		Burst:             100,
	}
	return NewAnalyzer(cfg, nil, zap.NewNop())
}

func TestAnalyze_EmptyText(t *testing.T) {
	a := newTestAnalyzer("")

	result := a.Analyze(context.Background(), "   ", model.LangFrench)
	if result.Polarity != model.SentimentNeutral {
		t.Errorf("polarity = %s, want neutral", result.Polarity)
	}
	if result.Score != 0 || result.Confidence != 0 {
		t.Errorf("score/confidence = %v/%v, want 0/0", result.Score, result.Confidence)
	}
}

func TestAnalyze_RemoteSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", r.Header.Get("Authorization"))
		}
		// Nested list shape, as returned by hosted text-classification models.
		w.Write([]byte(`[[{"label":"POSITIVE","score":0.97},{"label":"NEGATIVE","score":0.03}]]`))
	}))
	defer server.Close()

	a := newTestAnalyzer(server.URL)
	a.cfg.APIKey = "secret"

	result := a.Analyze(context.Background(), "excellente formation", model.LangFrench)
	if result.Polarity != model.SentimentPositive {
		t.Fatalf("polarity = %s, want positive", result.Polarity)
	}
	if result.Score != 0.97 {
		t.Errorf("score = %v, want 0.97", result.Score)
	}
	if result.Label != "POSITIVE" {
		t.Errorf("label = %q, want raw model label", result.Label)
	}
}

func TestAnalyze_RemoteFailureFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	a := newTestAnalyzer(server.URL)

	result := a.Analyze(context.Background(), "formation décevante, mal organisée", model.LangFrench)
	if result.Polarity != model.SentimentNegative {
		t.Errorf("polarity = %s, want negative via rule fallback", result.Polarity)
	}
	if result.Label != "negative (rule-based)" {
		t.Errorf("label = %q, want rule-based tag", result.Label)
	}
}

func TestAnalyze_MalformedResponseFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"loading"}`))
	}))
	defer server.Close()

	a := newTestAnalyzer(server.URL)

	result := a.Analyze(context.Background(), "excellent contenu, formateur compétent", model.LangFrench)
	if result.Polarity != model.SentimentPositive {
		t.Errorf("polarity = %s, want positive via rule fallback", result.Polarity)
	}
}

func TestAnalyze_CachesRemoteResults(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`[{"label":"positive","score":0.9}]`))
	}))
	defer server.Close()

	a := newTestAnalyzer(server.URL)
	a.cache = cache.NewMemoryCache(time.Minute, time.Minute)

	for i := 0; i < 3; i++ {
		result := a.Analyze(context.Background(), "très bien", model.LangFrench)
		if result.Polarity != model.SentimentPositive {
			t.Fatalf("polarity = %s, want positive", result.Polarity)
		}
	}
	if calls != 1 {
		t.Errorf("remote calls = %d, want 1 (cached afterwards)", calls)
	}
}

func TestNormalizeRemote(t *testing.T) {
	tests := []struct {
		label      string
		confidence float64
		want       model.Sentiment
		wantScore  float64
	}{
		{"POSITIVE", 0.9, model.SentimentPositive, 0.9},
		{"5_stars", 0.8, model.SentimentPositive, 0.8},
		{"negative", 0.95, model.SentimentNegative, -0.95},
		{"2_stars", 0.7, model.SentimentNegative, -0.7},
		// Below the confidence threshold everything is neutral.
		{"positive", 0.5, model.SentimentNeutral, 0},
		{"negative", 0.54, model.SentimentNeutral, 0},
		{"neutral", 0.99, model.SentimentNeutral, 0},
		{"3_stars", 0.8, model.SentimentNeutral, 0},
		{"label_weird", 0.99, model.SentimentNeutral, 0},
	}

	for _, tc := range tests {
		got := normalizeRemote(tc.label, tc.confidence)
		if got.Polarity != tc.want || got.Score != tc.wantScore {
			t.Errorf("normalizeRemote(%q, %v) = %s/%v, want %s/%v",
				tc.label, tc.confidence, got.Polarity, got.Score, tc.want, tc.wantScore)
		}
		if got.Confidence != tc.confidence {
			t.Errorf("normalizeRemote(%q) confidence = %v, want raw %v", tc.label, got.Confidence, tc.confidence)
		}
	}
}

func TestRuleBased_TieResolvesNegative(t *testing.T) {
	a := newTestAnalyzer("")

	// One positive hit ("bon"), one negative hit ("mauvais").
	result := a.Analyze(context.Background(), "bon mais mauvais", model.LangFrench)
	if result.Polarity != model.SentimentNegative {
		t.Errorf("tie resolved to %s, want negative", result.Polarity)
	}
}

func TestRuleBased_ScoreScaling(t *testing.T) {
	a := newTestAnalyzer("")

	// Three negative hits (mauvais, nul, ennuyeux): the raw 0.5 + 3*0.15
	// would be 0.95, so the magnitude pins at the 0.8 cap.
	result := a.Analyze(context.Background(), "mauvais, nul et ennuyeux", model.LangFrench)
	if result.Polarity != model.SentimentNegative {
		t.Fatalf("polarity = %s, want negative", result.Polarity)
	}
	wantScore := -0.8
	if diff := result.Score - wantScore; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("score = %v, want %v", result.Score, wantScore)
	}
	if result.Confidence != 0.75 {
		t.Errorf("confidence = %v, want capped 0.75", result.Confidence)
	}
}

func TestAnalyze_ScoreSignMatchesPolarity(t *testing.T) {
	a := newTestAnalyzer("")

	texts := []string{
		"excellent formation, formateur compétent",
		"formation décevante, mal organisée",
		"la session a eu lieu jeudi",
		"bon mais mauvais",
		"mezyan bezzaf",
	}
	for _, text := range texts {
		r := a.Analyze(context.Background(), text, model.LangFrench)
		if r.Score < -1 || r.Score > 1 {
			t.Errorf("%q: score %v outside [-1,1]", text, r.Score)
		}
		switch r.Polarity {
		case model.SentimentPositive:
			if r.Score <= 0 {
				t.Errorf("%q: positive polarity with score %v", text, r.Score)
			}
		case model.SentimentNegative:
			if r.Score >= 0 {
				t.Errorf("%q: negative polarity with score %v", text, r.Score)
			}
		case model.SentimentNeutral:
			if r.Score != 0 {
				t.Errorf("%q: neutral polarity with score %v", text, r.Score)
			}
		}
	}
}
