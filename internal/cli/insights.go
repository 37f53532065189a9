package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/obennaji/retour/internal/insight"
	"github.com/obennaji/retour/internal/store"
)

var (
	insightsInMemory bool
	insightsRecent   int
)

var insightsCmd = &cobra.Command{
	Use:   "insights",
	Short: "Mine insights from stored evaluations and analyses",
	Long: `Insights runs the mining rules over the aggregate store: formations
with low satisfaction, consistently excellent trainers, and recent spikes
in negative sentiment. Findings are stored and printed.

Use --recent to list previously stored insights instead of mining.`,
	RunE: runInsights,
}

func init() {
	rootCmd.AddCommand(insightsCmd)

	insightsCmd.Flags().BoolVar(&insightsInMemory, "in-memory", false, "use the volatile in-memory store instead of Postgres")
	insightsCmd.Flags().IntVar(&insightsRecent, "recent", 0, "list the N most recent stored insights instead of mining")
}

func runInsights(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if insightsInMemory {
		cfg.Database.UseInMemory = true
	}

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

	if insightsRecent > 0 {
		stored, err := st.RecentInsights(insightsRecent)
		if err != nil {
			return fmt.Errorf("list insights: %w", err)
		}
		if len(stored) == 0 {
			fmt.Println("No stored insights.")
			return nil
		}
		for _, item := range stored {
			fmt.Printf("[%s] %s (confidence %.2f)\n  %s\n", item.Kind, item.Title, item.Confidence, item.Description)
		}
		return nil
	}

	mined, err := insight.NewMiner(st, logger).Mine()
	if err != nil {
		return fmt.Errorf("mine insights: %w", err)
	}
	if len(mined) == 0 {
		fmt.Println("No insights generated.")
		return nil
	}

	fmt.Printf("Generated %d insights:\n\n", len(mined))
	for _, item := range mined {
		fmt.Printf("[%s] %s (confidence %.2f)\n  %s\n\n", item.Kind, item.Title, item.Confidence, item.Description)
	}
	return nil
}
