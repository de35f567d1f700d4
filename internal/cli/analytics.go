package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/raphaelgruber/compere-go/internal/client"
	"github.com/raphaelgruber/compere-go/internal/simulation"
	"github.com/spf13/cobra"
)

var (
	analyticsLimit  int
	analyticsEntity int
)

var analyticsCmd = &cobra.Command{
	Use:     "analytics",
	Aliases: []string{"history"},
	Short:   "Show comparison statistics and history",
	Long: `Show totals, recent activity, the average rating and the comparison
history, newest first.

Examples:
  compere analytics
  compere analytics --limit 20
  compere analytics --entity 3`,
	RunE: runAnalytics,
}

func init() {
	analyticsCmd.Flags().IntVarP(&analyticsLimit, "limit", "n", 20, "history entries to show")
	analyticsCmd.Flags().IntVarP(&analyticsEntity, "entity", "e", 0, "only comparisons involving this entity id")
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := resultError(comparisonStore.FetchComparisons(ctx, client.ComparisonListParams{EntityID: analyticsEntity})); err != nil {
		return fmt.Errorf("fetch comparisons: %w", err)
	}
	if err := resultError(comparisonStore.FetchRatings(ctx)); err != nil {
		return fmt.Errorf("fetch ratings: %w", err)
	}

	stats := comparisonStore.Stats()
	fmt.Printf("Comparisons:     %s\n", humanize.Comma(int64(stats.TotalComparisons)))
	fmt.Printf("Last 24 hours:   %s\n", humanize.Comma(int64(stats.RecentComparisons)))
	fmt.Printf("Average rating:  %s\n", simulation.FormatRating(float64(stats.AverageRating)))

	names := make(map[int]string)
	for _, e := range comparisonStore.Ratings() {
		names[e.ID] = e.Name
	}
	name := func(id int) string {
		if n, ok := names[id]; ok {
			return n
		}
		return fmt.Sprintf("#%d", id)
	}

	history := comparisonStore.History()
	if len(history) == 0 {
		fmt.Println("\nNo comparisons yet.")
		return nil
	}
	if analyticsLimit > 0 && len(history) > analyticsLimit {
		history = history[:analyticsLimit]
	}

	fmt.Printf("\nHistory (%d):\n\n", len(history))
	for _, c := range history {
		when := "unknown"
		if !c.Created().IsZero() {
			when = humanize.Time(c.Created())
		}
		fmt.Printf("- #%d %s vs %s → %s  %s\n",
			c.ID, name(c.Entity1ID), name(c.Entity2ID), name(c.SelectedEntityID),
			defaultTheme.hintStyle().Render(when))
	}
	return nil
}
