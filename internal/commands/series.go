package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roruizf/yahoo-finance-stock-db/internal/services"
	"github.com/roruizf/yahoo-finance-stock-db/pkg/logger"
)

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "List the configured series",
	Long: `Resolves the series-groups file into the flat set of (symbol, interval)
series the sync engine maintains, reporting any invalid combinations.
A missing file resolves to an empty set.`,
	RunE: runSeries,
}

func init() {
	rootCmd.AddCommand(seriesCmd)
}

func runSeries(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}

	groups, err := services.LoadGroups(cfg.Sync.SeriesFile)
	if err != nil {
		return fmt.Errorf("failed to load series config: %w", err)
	}

	keys, invalid := services.ResolveSeries(groups, logger.WithComponent(log, "resolver"))

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TABLE\tSYMBOL\tINTERVAL")
	for _, key := range keys {
		fmt.Fprintf(w, "%s\t%s\t%s\n", key.TableName(), key.Symbol, key.Interval)
	}
	w.Flush()

	if len(invalid) > 0 {
		fmt.Printf("\n%d invalid series skipped:\n", len(invalid))
		for _, e := range invalid {
			fmt.Printf("  %s: %s\n", e.Table, e.Error)
		}
	}

	fmt.Printf("\n%d series configured\n", len(keys))

	return nil
}
