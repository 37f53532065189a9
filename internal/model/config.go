package model

// Config holds the full application configuration.
// Hierarchy: CLI flags > RETOUR_* env vars > config file > defaults.
type Config struct {
	Database   DatabaseConfig   `yaml:"database" mapstructure:"database"`
	Inference  InferenceConfig  `yaml:"inference" mapstructure:"inference"`
	Embedding  EmbeddingConfig  `yaml:"embedding" mapstructure:"embedding"`
	Clustering ClusteringConfig `yaml:"clustering" mapstructure:"clustering"`
	Processing ProcessingConfig `yaml:"processing" mapstructure:"processing"`
}

// DatabaseConfig configures the Postgres store. When UseInMemory is set the
// process runs against a volatile in-memory store instead.
type DatabaseConfig struct {
	Host        string `yaml:"host" mapstructure:"host"`
	Port        int    `yaml:"port" mapstructure:"port"`
	User        string `yaml:"user" mapstructure:"user"`
	Password    string `yaml:"password" mapstructure:"password"`
	DBName      string `yaml:"dbname" mapstructure:"dbname"`
	SSLMode     string `yaml:"sslmode" mapstructure:"sslmode"`
	UseInMemory bool   `yaml:"use_in_memory" mapstructure:"use_in_memory"`
}

// InferenceConfig configures the remote sentiment classification endpoint
// and the per-language model selection.
type InferenceConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	APIKey  string `yaml:"api_key" mapstructure:"api_key"`
	Timeout int    `yaml:"timeout" mapstructure:"timeout"` // seconds

	FrenchModel string `yaml:"french_model" mapstructure:"french_model"`
	ArabicModel string `yaml:"arabic_model" mapstructure:"arabic_model"`
	DarijaModel string `yaml:"darija_model" mapstructure:"darija_model"`

	// RequestsPerSecond caps calls to the inference endpoint.
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`

	// CacheTTL is the lifetime, in minutes, of cached remote responses.
	CacheTTL int `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// EmbeddingConfig configures the sentence-embedding provider.
type EmbeddingConfig struct {
	APIKey    string `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url" mapstructure:"base_url"`
	Model     string `yaml:"model" mapstructure:"model"`
	BatchSize int    `yaml:"batch_size" mapstructure:"batch_size"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
}

// ClusteringConfig selects and parameterizes the clustering method.
type ClusteringConfig struct {
	Method string `yaml:"method" mapstructure:"method"` // kmeans or dbscan

	// MaxClusters bounds the elbow scan. DefaultNClusters, when non-nil,
	// skips auto-detection entirely.
	MaxClusters      int  `yaml:"max_clusters" mapstructure:"max_clusters"`
	DefaultNClusters *int `yaml:"default_n_clusters" mapstructure:"default_n_clusters"`

	// DBSCAN parameters.
	Eps        float64 `yaml:"eps" mapstructure:"eps"`
	MinSamples int     `yaml:"min_samples" mapstructure:"min_samples"`
}

// ProcessingConfig bounds batch processing.
type ProcessingConfig struct {
	MaxWorkers int `yaml:"max_workers" mapstructure:"max_workers"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	three := 3
	return &Config{
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			DBName:  "retour",
			SSLMode: "disable",
		},
		Inference: InferenceConfig{
			BaseURL:           "https://api-inference.huggingface.co/models",
			Timeout:           10,
			FrenchModel:       "cmarkea/distilcamembert-base-sentiment",
			ArabicModel:       "CAMeL-Lab/bert-base-arabic-camelbert-msa-sentiment",
			DarijaModel:       "SI2M-Lab/DarijaBERT",
			RequestsPerSecond: 2,
			Burst:             5,
			CacheTTL:          60,
		},
		Embedding: EmbeddingConfig{
			Model:     "text-embedding-3-small",
			BatchSize: 32,
			Timeout:   30,
		},
		Clustering: ClusteringConfig{
			Method:           "kmeans",
			MaxClusters:      10,
			DefaultNClusters: &three,
			Eps:              0.5,
			MinSamples:       5,
		},
		Processing: ProcessingConfig{
			MaxWorkers: 4,
		},
	}
}

// SentimentModel returns the inference model configured for a language,
// falling back to the French model for unknown codes.
func (c InferenceConfig) SentimentModel(lang Language) string {
	switch lang {
	case LangArabic:
		return c.ArabicModel
	case LangDarija:
		return c.DarijaModel
	default:
		return c.FrenchModel
	}
}
