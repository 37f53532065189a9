package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/obennaji/retour/internal/model"
	"github.com/obennaji/retour/internal/store"
	"github.com/obennaji/retour/internal/themes"
)

var (
	themesInMemory bool
	themesTop      int
	themesLanguage string
)

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "Show the top extracted themes and their category breakdown",
	Long: `Themes lists the most frequent corpus-wide themes and aggregates them
into the four fixed categories: Formation Quality, Trainer Competence,
Logistics & Organization, and Applicability & Usefulness.

Example:
  retour themes --top 10
  retour themes --language DARIJA`,
	RunE: runThemes,
}

func init() {
	rootCmd.AddCommand(themesCmd)

	themesCmd.Flags().BoolVar(&themesInMemory, "in-memory", false, "use the volatile in-memory store instead of Postgres")
	themesCmd.Flags().IntVar(&themesTop, "top", 20, "number of themes to list")
	themesCmd.Flags().StringVar(&themesLanguage, "language", "", "filter by language code (FR, AR, DARIJA)")
}

func runThemes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if themesInMemory {
		cfg.Database.UseInMemory = true
	}

	var language model.Language
	if themesLanguage != "" {
		language = model.Language(strings.ToUpper(themesLanguage))
		if !language.Valid() {
			return fmt.Errorf("unknown language %q (expected FR, AR, or DARIJA)", themesLanguage)
		}
	}

	st, err := store.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = st.Close() }()

	topThemes, err := st.TopThemes(language, themesTop)
	if err != nil {
		return fmt.Errorf("list themes: %w", err)
	}
	if len(topThemes) == 0 {
		fmt.Println("No themes recorded.")
		return nil
	}

	fmt.Printf("Top %d themes:\n", len(topThemes))
	for _, theme := range topThemes {
		fmt.Printf("  %-30s %-7s %d\n", theme.Name, theme.Language, theme.Frequency)
	}

	breakdown := themes.NewCategorizer().Breakdown(topThemes)
	fmt.Println("\nCategory breakdown:")
	for _, category := range themes.Categories() {
		stats := breakdown[category]
		fmt.Printf("  %-28s %5.1f%%  (%d themes, total frequency %d)\n",
			category, stats.Percentage, stats.Count, stats.TotalFrequency)
	}
	return nil
}
