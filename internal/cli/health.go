package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check that the API is reachable",
	RunE:  runHealth,
}

func runHealth(cmd *cobra.Command, args []string) error {
	start := time.Now()
	if err := apiClient.Health.Check(cmd.Context()); err != nil {
		fmt.Println(defaultTheme.errorStyle().Render("✗ " + apiClient.BaseURL() + " unreachable"))
		return err
	}
	fmt.Printf("%s %s (%s)\n",
		defaultTheme.completedStyle().Render("✓"),
		apiClient.BaseURL(),
		time.Since(start).Round(time.Millisecond))
	return nil
}
