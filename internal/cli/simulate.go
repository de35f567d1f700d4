package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/compere-go/internal/simulation"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	simulateCount      int
	simulateFile       string
	simulateList       bool
	simulateNoProgress bool
)

var simulateCmd = &cobra.Command{
	Use:       "simulate [scenario]",
	ValidArgs: simulation.Keys(),
	Short:     "Seed a demo scenario with random comparisons",
	Long: `Create every entity of a scenario, then record random comparisons
between them. Creations are paced so the API is not overwhelmed.

Built-in scenarios: restaurants, gamers, movies, products.
Use --file to load scenarios from a YAML file instead.

Examples:
  compere simulate --list
  compere simulate movies
  compere simulate restaurants --count 50
  compere simulate coffee --file ./scenarios.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSimulate,
}

func init() {
	simulateCmd.Flags().IntVarP(&simulateCount, "count", "n", simulation.DefaultCount, "comparisons to create")
	simulateCmd.Flags().StringVarP(&simulateFile, "file", "f", "", "YAML file with scenarios")
	simulateCmd.Flags().BoolVarP(&simulateList, "list", "l", false, "list scenarios and exit")
	simulateCmd.Flags().BoolVar(&simulateNoProgress, "no-progress", false, "plain output instead of the progress bar")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	scenarios := simulation.Scenarios()
	if simulateFile != "" {
		loaded, err := simulation.LoadScenarioFile(simulateFile)
		if err != nil {
			return err
		}
		scenarios = loaded
	}

	if simulateList || len(args) == 0 {
		printScenarios(scenarios)
		return nil
	}

	scenario, ok := findScenario(scenarios, args[0])
	if !ok {
		return fmt.Errorf("unknown scenario %q", args[0])
	}
	if simulateCount < 1 {
		return fmt.Errorf("count must be positive")
	}

	ctx := cmd.Context()
	opts := simulation.Options{Pacing: cfg.SimulationPacing}

	if simulateNoProgress || !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Printf("Seeding %s (%d entities, %d comparisons)...\n", scenario.Name, len(scenario.Entities), simulateCount)
		res := simulation.SimulateComparisons(ctx, entityStore, comparisonStore, scenario, simulateCount, opts)
		var b strings.Builder
		writeResult(&b, &res, defaultTheme)
		fmt.Print(b.String())
		return simulationError(res)
	}

	res, err := RunSimulationProgress(ctx, scenario, simulateCount, opts)
	if err != nil {
		return err
	}
	return simulationError(res)
}

// simulationError fails the command only when nothing was created.
func simulationError(res simulation.Result) error {
	if res.Created == 0 && len(res.Errors) > 0 {
		return fmt.Errorf("simulation failed: %s", res.Errors[len(res.Errors)-1])
	}
	return nil
}

func findScenario(scenarios []simulation.Scenario, key string) (simulation.Scenario, bool) {
	for _, s := range scenarios {
		if s.Key == key {
			return s, true
		}
	}
	return simulation.Scenario{}, false
}

func printScenarios(scenarios []simulation.Scenario) {
	fmt.Printf("Scenarios (%d):\n\n", len(scenarios))
	for _, s := range scenarios {
		fmt.Printf("- %s %s: %s (%d entities)\n", s.Icon, s.Key, s.Name, len(s.Entities))
		if verbose && s.Description != "" {
			fmt.Printf("  %s\n", s.Description)
		}
	}
}
