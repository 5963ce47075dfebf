package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-loader/internal/audit"
	"github.com/mind-engage/mindengage-loader/internal/config"
	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/db"
	"github.com/mind-engage/mindengage-loader/internal/form"
	"github.com/mind-engage/mindengage-loader/internal/handoff"
	"github.com/mind-engage/mindengage-loader/internal/logging"
	"github.com/mind-engage/mindengage-loader/internal/session"
)

var (
	// Global flags
	verbose     bool
	envName     string
	targetsFile string
	strict      bool
	noBrowser   bool

	cfg    = config.FromEnv()
	logger *zap.Logger

	// swapped in tests
	newClipboard = func() handoff.Clipboard { return handoff.SystemClipboard{} }
	newOpener    = func() handoff.Opener {
		if noBrowser {
			return handoff.PrintOpener{Printf: func(format string, args ...any) { fmt.Printf(format, args...) }}
		}
		return handoff.BrowserOpener{Logger: logger}
	}
)

var rootCmd = &cobra.Command{
	Use:   "loader",
	Short: "Prepare assessment content payloads for the admin pages",
	Long: `loader checks content archives and builds the JSON payload an admin task
expects for MCQ spreadsheets, code analysis and coding question sets.

Each form is gated: a step unlocks only once the step before it holds.
Run "loader tui" for the interactive form.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		var err error
		logger, err = logging.New(level, true)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&envName, "env", "e", string(content.Prod), "Target environment (PROD or BETA)")
	rootCmd.PersistentFlags().StringVar(&targetsFile, "targets", cfg.TargetsFile, "YAML file overriding environment URLs")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", cfg.StrictGating, "Editing an earlier step re-locks later steps")
	rootCmd.PersistentFlags().BoolVar(&noBrowser, "no-browser", false, "Print pages instead of opening them")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(payloadCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(tuiCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func environment() (content.Environment, error) {
	return content.ParseEnvironment(envName)
}

func sessionConfig() (session.Config, error) {
	table, err := content.LoadTargets(targetsFile)
	if err != nil {
		return session.Config{}, err
	}
	return session.Config{
		Targets:        table,
		Form:           form.Options{Strict: strict},
		InspectTimeout: cfg.InspectTimeout,
		Logger:         logger,
	}, nil
}

// openHistory returns the handoff log configured through HISTORY_DB_DRIVER.
// When fallback is set and nothing is configured, a local sqlite file is used.
func openHistory(ctx context.Context, fallback bool) (audit.Log, func(), error) {
	driver := cfg.HistoryDBDriver
	if driver == "" {
		if !fallback {
			return audit.Nop{}, func() {}, nil
		}
		driver = string(db.DriverSQLite)
	}
	dbh, err := db.Open(ctx, db.Driver(driver), cfg.HistoryDBDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}
	return audit.NewSQLLog(dbh), func() { _ = dbh.Close() }, nil
}
