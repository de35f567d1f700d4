package cli

import (
	"fmt"

	"github.com/raphaelgruber/compere-go/internal/models"
	"github.com/raphaelgruber/compere-go/internal/simulation"
	"github.com/spf13/cobra"
)

var (
	leaderboardLimit      int
	leaderboardSimilar    bool
	leaderboardDissimilar bool
)

var leaderboardCmd = &cobra.Command{
	Use:     "leaderboard",
	Aliases: []string{"ratings"},
	Short:   "Show entities ranked by rating",
	Long: `Show the Elo leaderboard with rank badges.

Examples:
  compere leaderboard
  compere leaderboard --limit 10
  compere leaderboard --similar
  compere leaderboard --dissimilar`,
	RunE: runLeaderboard,
}

func init() {
	leaderboardCmd.Flags().IntVarP(&leaderboardLimit, "limit", "n", 0, "show only the top N (0 = all)")
	leaderboardCmd.Flags().BoolVar(&leaderboardSimilar, "similar", false, "show the most similarly rated entities")
	leaderboardCmd.Flags().BoolVar(&leaderboardDissimilar, "dissimilar", false, "show the least similarly rated entities")
	leaderboardCmd.MarkFlagsMutuallyExclusive("similar", "dissimilar")
}

func runLeaderboard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	switch {
	case leaderboardSimilar:
		entities, err := apiClient.Ratings.Similar(ctx)
		if err != nil {
			return err
		}
		printRanking("Similar entities", entities)
		return nil
	case leaderboardDissimilar:
		entities, err := apiClient.Ratings.Dissimilar(ctx)
		if err != nil {
			return err
		}
		printRanking("Dissimilar entities", entities)
		return nil
	}

	if err := resultError(comparisonStore.FetchRatings(ctx)); err != nil {
		return fmt.Errorf("fetch ratings: %w", err)
	}

	entities := comparisonStore.Ratings()
	if leaderboardLimit > 0 && len(entities) > leaderboardLimit {
		entities = entities[:leaderboardLimit]
	}
	printRanking("Leaderboard", entities)

	if verbose {
		fmt.Printf("\nAverage rating: %s\n", simulation.FormatRating(float64(comparisonStore.Stats().AverageRating)))
	}
	return nil
}

func printRanking(title string, entities []models.Entity) {
	if len(entities) == 0 {
		fmt.Println("No ratings yet.")
		return
	}

	fmt.Printf("%s (%d):\n\n", title, len(entities))
	for i, e := range entities {
		badge := simulation.RatingBadge(e.Rating)
		fmt.Printf("%3d. %-32s %s  %s\n",
			i+1,
			e.Name,
			tierStyle(e.Rating).Render(fmt.Sprintf("%6s", simulation.FormatRating(e.Rating))),
			defaultTheme.hintStyle().Render(badge.Text),
		)
	}
}
