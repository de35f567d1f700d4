package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/compere-go/internal/models"
	"github.com/raphaelgruber/compere-go/internal/simulation"
	"github.com/spf13/cobra"
)

var (
	compareMAB    bool
	compareWinner int
	compareRounds int
)

var compareCmd = &cobra.Command{
	Use:   "compare [entity1-id entity2-id]",
	Short: "Judge entities two at a time",
	Long: `Record pairwise judgments.

Without arguments, compare runs interactively: it shows the suggested pair,
you pick 1 or 2 (s skips, q quits), and the next pair loads automatically.
With two ids and --winner, it records a single comparison.

Examples:
  compere compare
  compere compare --mab
  compere compare --rounds 10
  compere compare 3 7 --winner 7`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 0 && len(args) != 2 {
			return fmt.Errorf("expected no arguments or two entity ids")
		}
		return nil
	},
	RunE: runCompare,
}

func init() {
	compareCmd.Flags().BoolVar(&compareMAB, "mab", false, "use the bandit's suggested pairs")
	compareCmd.Flags().IntVarP(&compareWinner, "winner", "w", 0, "winning entity id (with two ids)")
	compareCmd.Flags().IntVarP(&compareRounds, "rounds", "r", 0, "stop after this many comparisons (0 = until quit)")
}

func runCompare(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if len(args) == 2 {
		e1, err := parseID(args[0])
		if err != nil {
			return err
		}
		e2, err := parseID(args[1])
		if err != nil {
			return err
		}
		if compareWinner == 0 {
			return fmt.Errorf("--winner is required when comparing two ids")
		}
		res := comparisonStore.CreateComparison(ctx, models.ComparisonInput{
			Entity1ID: e1, Entity2ID: e2, SelectedEntityID: compareWinner,
		})
		if err := resultError(res); err != nil {
			if res.Data != nil {
				fmt.Printf("Comparison #%d recorded, but follow-up failed.\n", res.Data.ID)
			}
			return fmt.Errorf("create comparison: %w", err)
		}
		fmt.Printf("Recorded comparison #%d\n", res.Data.ID)
		return nil
	}

	return compareInteractive(ctx, bufio.NewReader(os.Stdin))
}

func compareInteractive(ctx context.Context, in *bufio.Reader) error {
	pair, err := loadPair(ctx)
	if err != nil {
		return err
	}

	done := 0
	for compareRounds == 0 || done < compareRounds {
		comparisonStore.SetCurrent(pair)
		fmt.Println()
		printChoice(1, pair.Entity1)
		printChoice(2, pair.Entity2)
		fmt.Print("\nWinner [1/2, s=skip, q=quit]: ")

		line, err := in.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}

		var winner models.Entity
		switch strings.TrimSpace(strings.ToLower(line)) {
		case "1":
			winner = pair.Entity1
		case "2":
			winner = pair.Entity2
		case "s":
			if pair, err = loadPair(ctx); err != nil {
				return err
			}
			continue
		case "q", "quit", "exit":
			return nil
		default:
			fmt.Println(defaultTheme.hintStyle().Render("Please enter 1, 2, s or q."))
			continue
		}

		res := comparisonStore.SubmitComparison(ctx, pair.Entity1.ID, pair.Entity2.ID, winner.ID)
		if !res.Success {
			return fmt.Errorf("submit comparison: %s", res.Error)
		}
		done++
		fmt.Println(defaultTheme.completedStyle().Render("✓ " + winner.Name + " wins"))

		if compareMAB {
			pair = comparisonStore.MabSuggestion()
		} else {
			pair = comparisonStore.Next()
		}
		if pair == nil {
			return fmt.Errorf("no further pair available")
		}
	}

	fmt.Printf("\n%d comparisons recorded.\n", done)
	return nil
}

func loadPair(ctx context.Context) (*models.NextComparison, error) {
	if compareMAB {
		res := comparisonStore.GetMabSuggestion(ctx)
		if err := resultError(res); err != nil {
			return nil, fmt.Errorf("get MAB suggestion: %w", err)
		}
		return res.Data, nil
	}
	res := comparisonStore.GetNextComparison(ctx)
	if err := resultError(res); err != nil {
		return nil, fmt.Errorf("get next comparison: %w", err)
	}
	return res.Data, nil
}

func printChoice(n int, e models.Entity) {
	fmt.Printf("  [%d] %s  %s\n", n, e.Name, tierStyle(e.Rating).Render(simulation.FormatRating(e.Rating)))
	if e.Description != "" {
		fmt.Printf("      %s\n", defaultTheme.hintStyle().Render(e.Description))
	}
}
