package cluster

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/obennaji/retour/internal/model"
)

// MethodKMeans and MethodDBSCAN are the supported clustering methods.
const (
	MethodKMeans = "kmeans"
	MethodDBSCAN = "dbscan"
)

// Params overrides per-run clustering parameters. Zero values fall back to
// the configured defaults.
type Params struct {
	NClusters  *int
	Eps        float64
	MinSamples int
}

// Info summarizes one clustering run.
type Info struct {
	Method       string
	NClusters    int
	Inertia      float64
	ClusterSizes map[int]int
	NNoise       int
}

// Clusterer embeds texts and partitions them into clusters. Failures
// degrade: an embedding error skips clustering entirely, a fitting error
// yields a single trivial partition instead of aborting the batch.
type Clusterer struct {
	embedder Embedder
	cfg      model.ClusteringConfig
	logger   *zap.Logger
}

func NewClusterer(embedder Embedder, cfg model.ClusteringConfig, logger *zap.Logger) *Clusterer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Clusterer{embedder: embedder, cfg: cfg, logger: logger}
}

// Cluster embeds texts and assigns each a cluster label. The returned
// embeddings slice is parallel to texts; labels[i] is the cluster of
// texts[i], with -1 marking DBSCAN noise.
func (c *Clusterer) Cluster(ctx context.Context, texts []string, method string, params Params) ([][]float64, []int, Info, error) {
	if len(texts) == 0 {
		return nil, nil, Info{}, nil
	}
	if method == "" {
		method = c.cfg.Method
	}
	if method != MethodKMeans && method != MethodDBSCAN {
		return nil, nil, Info{}, fmt.Errorf("unknown clustering method %q", method)
	}

	embeddings, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		logEmbedFailure(c.logger, err, len(texts))
		return nil, nil, Info{}, nil
	}
	if len(embeddings) != len(texts) {
		logEmbedFailure(c.logger, fmt.Errorf("got %d vectors for %d texts", len(embeddings), len(texts)), len(texts))
		return nil, nil, Info{}, nil
	}

	var labels []int
	var info Info
	switch method {
	case MethodKMeans:
		labels, info = c.runKMeans(embeddings, params)
	case MethodDBSCAN:
		labels, info = c.runDBSCAN(embeddings, params)
	}

	c.logger.Info("clustering complete",
		zap.String("method", info.Method),
		zap.Int("texts", len(texts)),
		zap.Int("clusters", info.NClusters),
		zap.Int("noise", info.NNoise))

	return embeddings, labels, info, nil
}

// runKMeans standardizes the embeddings, resolves k, and fits. Resolution
// order: explicit per-run override, then the configured default, then the
// elbow heuristic.
func (c *Clusterer) runKMeans(embeddings [][]float64, params Params) ([]int, Info) {
	scaled := standardize(embeddings)

	k := 0
	switch {
	case params.NClusters != nil:
		k = *params.NClusters
	case c.cfg.DefaultNClusters != nil:
		k = *c.cfg.DefaultNClusters
	default:
		maxK := c.cfg.MaxClusters
		if maxK < 2 {
			maxK = 10
		}
		k = optimalKElbow(scaled, maxK)
		c.logger.Debug("elbow heuristic selected k", zap.Int("k", k))
	}
	if k < 1 {
		k = 1
	}
	if k > len(embeddings) {
		k = len(embeddings)
	}

	result := fitKMeans(scaled, k, defaultNInit)
	if len(result.labels) != len(embeddings) {
		// Degenerate fit; keep the batch alive with one cluster.
		c.logger.Warn("k-means fit failed, assigning all points to cluster 0",
			zap.Int("k", k))
		labels := make([]int, len(embeddings))
		return labels, Info{Method: MethodKMeans}
	}

	return result.labels, Info{
		Method:       MethodKMeans,
		NClusters:    k,
		Inertia:      result.inertia,
		ClusterSizes: sizes(result.labels),
	}
}

func (c *Clusterer) runDBSCAN(embeddings [][]float64, params Params) ([]int, Info) {
	eps := params.Eps
	if eps <= 0 {
		eps = c.cfg.Eps
	}
	minSamples := params.MinSamples
	if minSamples <= 0 {
		minSamples = c.cfg.MinSamples
	}

	// Density estimation works on the raw embedding space; eps is
	// calibrated to unscaled distances. Only the K-Means path rescales.
	labels := fitDBSCAN(embeddings, eps, minSamples)

	clusterSizes := sizes(labels)
	nNoise := clusterSizes[Noise]
	delete(clusterSizes, Noise)

	return labels, Info{
		Method:       MethodDBSCAN,
		NClusters:    len(clusterSizes),
		ClusterSizes: clusterSizes,
		NNoise:       nNoise,
	}
}

func sizes(labels []int) map[int]int {
	m := make(map[int]int)
	for _, l := range labels {
		m[l]++
	}
	return m
}
