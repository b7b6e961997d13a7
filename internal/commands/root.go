package commands

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/roruizf/yahoo-finance-stock-db/pkg/config"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/logger"
)

var (
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stockdb",
	Short: "Incremental Yahoo Finance bar store",
	Long: `Maintains a local SQLite store of OHLCV price bars, one table per
(symbol, interval) series, kept current by incremental synchronization
against Yahoo Finance.

Series to maintain are declared in a JSON file of symbol groups and
interval groups; each sync cycle fetches only the window each series is
missing and merges it without duplicate keys.`,
	Version: "1.0.0",
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setup loads .env + environment configuration and builds the logger.
func setup() (*config.Config, *logrus.Logger, error) {
	config.LoadDotEnv()

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if verbose {
		cfg.Logging.Level = "debug"
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return cfg, log, nil
}
