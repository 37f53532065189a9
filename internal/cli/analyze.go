package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/obennaji/retour/internal/cluster"
	"github.com/obennaji/retour/internal/ingest"
	"github.com/obennaji/retour/internal/model"
	"github.com/obennaji/retour/internal/pipeline"
	"github.com/obennaji/retour/internal/store"
)

var (
	analyzeTimeout   time.Duration
	analyzeInMemory  bool
	analyzeNoEmbed   bool
	analyzeWorkers   int
	analyzeMethod    string
	analyzeNClusters int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file.csv>",
	Short: "Ingest a CSV of evaluations and run the full analysis batch",
	Long: `Analyze reads an evaluation CSV, stores the raw rows, and runs the
text pipeline over every comment: language detection, sentiment, theme
extraction, and (when an embedding key is configured) clustering.

Example:
  retour analyze evaluations.csv
  retour analyze evaluations.csv --in-memory --no-embeddings
  retour analyze evaluations.csv --method dbscan`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().DurationVar(&analyzeTimeout, "timeout", 10*time.Minute, "overall batch timeout")
	analyzeCmd.Flags().BoolVar(&analyzeInMemory, "in-memory", false, "use the volatile in-memory store instead of Postgres")
	analyzeCmd.Flags().BoolVar(&analyzeNoEmbed, "no-embeddings", false, "skip embedding generation and clustering")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "concurrent analysis workers (0 = configured default)")
	analyzeCmd.Flags().StringVar(&analyzeMethod, "method", "", "clustering method: kmeans or dbscan (default from config)")
	analyzeCmd.Flags().IntVar(&analyzeNClusters, "clusters", 0, "fixed cluster count for kmeans (0 = auto)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyAnalyzeFlags(cfg)

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	st, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	embedder, err := buildEmbedder(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), analyzeTimeout)
	defer cancel()

	evals, err := ingest.NewReader(logger).ReadCSV(path)
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	if len(evals) == 0 {
		return fmt.Errorf("no valid evaluations in %s", path)
	}

	result, err := pipeline.New(cfg, st, embedder, logger).ProcessBatch(ctx, evals)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	printBatchSummary(result)
	return nil
}

func applyAnalyzeFlags(cfg *model.Config) {
	if analyzeInMemory {
		cfg.Database.UseInMemory = true
	}
	if analyzeWorkers > 0 {
		cfg.Processing.MaxWorkers = analyzeWorkers
	}
	if analyzeMethod != "" {
		cfg.Clustering.Method = analyzeMethod
	}
	if analyzeNClusters > 0 {
		n := analyzeNClusters
		cfg.Clustering.DefaultNClusters = &n
	}
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// buildEmbedder returns nil when embeddings are disabled or no API key is
// available; the pipeline then stores the batch unclustered.
func buildEmbedder(cfg *model.Config, logger *zap.Logger) (cluster.Embedder, error) {
	if analyzeNoEmbed {
		return nil, nil
	}
	if cfg.Embedding.APIKey == "" {
		logger.Warn("no embedding API key configured, clustering disabled")
		return nil, nil
	}
	embedder, err := cluster.NewOpenAIEmbedder(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return embedder, nil
}

func printBatchSummary(result *pipeline.BatchResult) {
	fmt.Printf("Run %s\n", result.RunID)
	fmt.Printf("  Processed: %d (failed: %d)\n", result.Processed, result.Failed)

	langs := make([]string, 0, len(result.Languages))
	for lang := range result.Languages {
		langs = append(langs, string(lang))
	}
	sort.Strings(langs)
	fmt.Printf("  Languages:")
	for _, lang := range langs {
		fmt.Printf(" %s=%d", lang, result.Languages[model.Language(lang)])
	}
	fmt.Println()

	fmt.Printf("  Sentiment: positive=%d negative=%d neutral=%d\n",
		result.Sentiments.Positive, result.Sentiments.Negative, result.Sentiments.Neutral)
	fmt.Printf("  Themes:    %d distinct\n", result.ThemeCount)

	if result.ClusterInfo.NClusters > 0 {
		fmt.Printf("  Clusters:  %d (%s", result.ClusterInfo.NClusters, result.ClusterInfo.Method)
		if result.ClusterInfo.NNoise > 0 {
			fmt.Printf(", %d noise", result.ClusterInfo.NNoise)
		}
		fmt.Println(")")
	}
}
