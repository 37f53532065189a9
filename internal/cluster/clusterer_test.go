package cluster

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"go.uber.org/zap"

	"github.com/obennaji/retour/internal/model"
)

// fixedEmbedder maps each text to a pre-baked vector.
type fixedEmbedder struct {
	vectors [][]float64
	err     error
}

func (f *fixedEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vectors[:len(texts)], nil
}

// threeClouds returns perCloud points around each of three well-separated
// centers, plus matching placeholder texts.
func threeClouds(perCloud int) ([]string, [][]float64) {
	rng := rand.New(rand.NewSource(7))
	centers := [][]float64{{0, 0}, {10, 10}, {-10, 10}}

	var texts []string
	var vectors [][]float64
	for _, center := range centers {
		for i := 0; i < perCloud; i++ {
			vectors = append(vectors, []float64{
				center[0] + rng.NormFloat64()*0.3,
				center[1] + rng.NormFloat64()*0.3,
			})
			texts = append(texts, "comment")
		}
	}
	return texts, vectors
}

func TestCluster_KMeansLabelsWithinK(t *testing.T) {
	texts, vectors := threeClouds(5)
	k := 3
	c := NewClusterer(&fixedEmbedder{vectors: vectors}, model.ClusteringConfig{Method: MethodKMeans}, zap.NewNop())

	embeddings, labels, info, err := c.Cluster(context.Background(), texts, MethodKMeans, Params{NClusters: &k})
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if len(embeddings) != len(texts) || len(labels) != len(texts) {
		t.Fatalf("got %d embeddings, %d labels for %d texts", len(embeddings), len(labels), len(texts))
	}
	if info.NClusters != k {
		t.Errorf("info.NClusters = %d, want %d", info.NClusters, k)
	}
	for i, label := range labels {
		if label < 0 || label >= k {
			t.Errorf("labels[%d] = %d, outside [0, %d)", i, label, k)
		}
	}
	total := 0
	for _, size := range info.ClusterSizes {
		total += size
	}
	if total != len(texts) {
		t.Errorf("cluster sizes sum to %d, want %d", total, len(texts))
	}
}

func TestCluster_ElbowFindsSeparatedClouds(t *testing.T) {
	texts, vectors := threeClouds(6) // n=18, enough for the elbow scan
	cfg := model.ClusteringConfig{Method: MethodKMeans, MaxClusters: 10}
	c := NewClusterer(&fixedEmbedder{vectors: vectors}, cfg, zap.NewNop())

	_, labels, info, err := c.Cluster(context.Background(), texts, MethodKMeans, Params{})
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if len(labels) != len(texts) {
		t.Fatalf("got %d labels for %d texts", len(labels), len(texts))
	}
	// The consecutive-drop heuristic should land near the true count.
	if info.NClusters < 2 || info.NClusters > 4 {
		t.Errorf("elbow selected k=%d for 3 separated clouds, want 2..4", info.NClusters)
	}
}

func TestCluster_DBSCANNoiseAndSizesCoverInput(t *testing.T) {
	texts, vectors := threeClouds(6)
	// Append two far outliers that no dense region can absorb.
	vectors = append(vectors, []float64{100, -100}, []float64{-100, -100})
	texts = append(texts, "comment", "comment")

	cfg := model.ClusteringConfig{Method: MethodDBSCAN, Eps: 0.5, MinSamples: 5}
	c := NewClusterer(&fixedEmbedder{vectors: vectors}, cfg, zap.NewNop())

	_, labels, info, err := c.Cluster(context.Background(), texts, MethodDBSCAN, Params{})
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}

	covered := info.NNoise
	for _, size := range info.ClusterSizes {
		covered += size
	}
	if covered != len(texts) {
		t.Errorf("noise + cluster sizes = %d, want %d", covered, len(texts))
	}
	if info.NNoise < 2 {
		t.Errorf("NNoise = %d, want the outliers labeled noise", info.NNoise)
	}
	for i, label := range labels {
		if label < Noise {
			t.Errorf("labels[%d] = %d, below noise marker", i, label)
		}
	}
}

func TestCluster_DBSCANMeasuresRawDistances(t *testing.T) {
	// Six points within 0.15 of each other form one dense region at
	// eps=0.5 in the raw space. Standardizing this batch would stretch
	// the pairwise distances past eps and mark every point noise.
	vectors := [][]float64{
		{0, 0}, {0.05, 0}, {0, 0.05}, {-0.05, 0}, {0, -0.05}, {0.05, 0.05},
	}
	texts := []string{"a", "b", "c", "d", "e", "f"}

	cfg := model.ClusteringConfig{Method: MethodDBSCAN, Eps: 0.5, MinSamples: 5}
	c := NewClusterer(&fixedEmbedder{vectors: vectors}, cfg, zap.NewNop())

	_, labels, info, err := c.Cluster(context.Background(), texts, MethodDBSCAN, Params{})
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if info.NClusters != 1 || info.NNoise != 0 {
		t.Errorf("NClusters=%d NNoise=%d, want one dense cluster and no noise", info.NClusters, info.NNoise)
	}
	for i, label := range labels {
		if label != 0 {
			t.Errorf("labels[%d] = %d, want 0", i, label)
		}
	}
}

func TestCluster_EmbedFailureSkipsClustering(t *testing.T) {
	c := NewClusterer(&fixedEmbedder{err: errors.New("quota exceeded")},
		model.ClusteringConfig{Method: MethodKMeans}, zap.NewNop())

	embeddings, labels, info, err := c.Cluster(context.Background(), []string{"a", "b"}, MethodKMeans, Params{})
	if err != nil {
		t.Fatalf("embedding failure must not fail the batch: %v", err)
	}
	if embeddings != nil || labels != nil {
		t.Errorf("got embeddings=%v labels=%v, want none", embeddings, labels)
	}
	if info.NClusters != 0 {
		t.Errorf("info.NClusters = %d, want 0", info.NClusters)
	}
}

func TestCluster_UnknownMethodErrors(t *testing.T) {
	c := NewClusterer(&fixedEmbedder{}, model.ClusteringConfig{}, zap.NewNop())
	if _, _, _, err := c.Cluster(context.Background(), []string{"a"}, "spectral", Params{}); err == nil {
		t.Fatal("expected error for unknown method")
	}
}

func TestStandardize_ConstantDimension(t *testing.T) {
	scaled := standardize([][]float64{{1, 5}, {2, 5}, {3, 5}})
	for i := range scaled {
		if scaled[i][1] != 0 {
			t.Errorf("constant dimension scaled[%d][1] = %v, want 0", i, scaled[i][1])
		}
	}
	if scaled[0][0] >= 0 || scaled[2][0] <= 0 {
		t.Errorf("varying dimension not centered: %v", scaled)
	}
}
