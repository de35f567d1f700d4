// Package cli provides the command-line interface for compere.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/raphaelgruber/compere-go/internal/client"
	"github.com/raphaelgruber/compere-go/internal/config"
	"github.com/raphaelgruber/compere-go/internal/metrics"
	"github.com/raphaelgruber/compere-go/internal/session"
	"github.com/raphaelgruber/compere-go/internal/store"
	"github.com/spf13/cobra"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global flags
	verbose   bool
	apiURL    string
	showStats bool

	// Global config and API wiring
	cfg       config.Config
	logger    *slog.Logger
	closeLog  func() error
	collector *metrics.Collector
	apiClient *client.Client

	entityStore     *store.Entities
	comparisonStore *store.Comparisons
	authStore       *store.Auth
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "compere",
	Short: "Rank anything by pairwise comparison",
	Long: `Compere is a client for the Compere rating API.

Add entities, judge them two at a time, and watch the Elo leaderboard
settle. The multi-armed bandit suggests the pairs worth comparing next.

Configuration is read from the environment (and an optional .env file):
  COMPERE_API_URL      API base URL (default http://localhost:8000)
  COMPERE_API_TIMEOUT  request deadline (default 10s)
  COMPERE_SESSION_FILE where the login token is kept
  COMPERE_LOG_FILE     JSON log file (default /tmp/compere.log)
  COMPERE_LOG_LEVEL    DEBUG, INFO, WARN or ERROR`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip setup for version and help commands
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}
		return setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if showStats && collector != nil {
			printCallStats(collector.Snapshot())
		}
		if closeLog != nil {
			if err := closeLog(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// setup loads config and builds the client and stores.
func setup() error {
	cfg = config.Load()
	if apiURL != "" {
		cfg.APIURL = apiURL
	}

	level := cfg.LogLevel
	if verbose {
		level = slog.LevelDebug
	}
	logger, closeLog = config.SetupLogger(cfg.LogFile, level)

	sess, err := session.New(session.NewFileStore(cfg.SessionFile))
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	collector = metrics.NewCollector(prometheus.NewRegistry())
	apiClient = client.New(client.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.APITimeout,
		Session: sess,
		Logger:  logger,
		Metrics: collector,
	})

	entityStore = store.NewEntities(apiClient.Entities)
	comparisonStore = store.NewComparisons(apiClient.Comparisons, apiClient.Ratings, apiClient.MAB)
	authStore = store.NewAuth(apiClient.Auth, sess, logger)
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Commands stop between API calls once ctx is cancelled.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "API base URL (overrides COMPERE_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&showStats, "stats", false, "print API call statistics when done")

	// Add subcommands
	rootCmd.AddCommand(entitiesCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(leaderboardCmd)
	rootCmd.AddCommand(analyticsCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(healthCmd)
}

// resultError turns a failed store result into an error.
func resultError[T any](res store.Result[T]) error {
	if res.Success {
		return nil
	}
	return fmt.Errorf("%s", res.Error)
}
