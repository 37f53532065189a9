// Package cluster turns comment batches into embedding vectors and
// partitions them with K-Means (default) or DBSCAN.
package cluster

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/obennaji/retour/internal/model"
)

// Embedder maps texts to fixed-dimension vectors. Implementations are
// expensive to initialize and meant to live for the whole process.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// OpenAIEmbedder generates multilingual sentence embeddings through an
// OpenAI-compatible embeddings endpoint.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     openai.EmbeddingModel
	batchSize int
	timeout   time.Duration
}

// NewOpenAIEmbedder creates an embedder from configuration.
func NewOpenAIEmbedder(cfg model.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	embeddingModel := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		embeddingModel = openai.SmallEmbedding3
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientConfig),
		model:     embeddingModel,
		batchSize: batchSize,
		timeout:   timeout,
	}, nil
}

// Embed returns one vector per input text, preserving order. Requests are
// chunked by the configured batch size.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float64, 0, len(texts))

	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
		resp, err := e.client.CreateEmbeddings(reqCtx, openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: e.model,
		})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("create embeddings: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("embeddings response size mismatch: got %d, want %d", len(resp.Data), end-start)
		}

		for _, item := range resp.Data {
			vec := make([]float64, len(item.Embedding))
			for i, v := range item.Embedding {
				vec[i] = float64(v)
			}
			embeddings = append(embeddings, vec)
		}
	}

	return embeddings, nil
}

// logEmbedFailure records a degraded embedding run; callers treat the empty
// result as "no clustering possible", never as a batch failure.
func logEmbedFailure(logger *zap.Logger, err error, n int) {
	logger.Error("embedding generation failed, skipping clustering",
		zap.Int("texts", n),
		zap.Error(err))
}
