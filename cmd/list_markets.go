package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/polystrat/strategy-core/internal/strategy"
	"github.com/polystrat/strategy-core/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var listMarketsCmd = &cobra.Command{
	Use:   "list-markets",
	Short: "List the configured market rows this core operates over",
	Long:  `Reads MARKETS_CONFIG_PATH and displays every market row this core is configured to trade.`,
	RunE:  runListMarkets,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(listMarketsCmd)
	listMarketsCmd.Flags().BoolP("verbose", "v", false, "Show tick size, trade size, and neg-risk flag")
}

func runListMarkets(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	data, err := os.ReadFile(cfg.MarketsConfigPath)
	if err != nil {
		return fmt.Errorf("read markets config %s: %w", cfg.MarketsConfigPath, err)
	}

	var markets []strategy.MarketConfig
	if err := json.Unmarshal(data, &markets); err != nil {
		return fmt.Errorf("decode markets config %s: %w", cfg.MarketsConfigPath, err)
	}

	if len(markets) == 0 {
		fmt.Println("no markets configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CONDITION ID\tQUESTION\tPARAM TYPE\n")
	fmt.Fprintf(w, "------------\t--------\t----------\n")

	for _, m := range markets {
		question := m.Question
		if len(question) > 60 {
			question = question[:57] + "..."
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n", m.ConditionID, question, m.ParamType)

		if verbose {
			fmt.Fprintf(w, "\tToken1: %s  Token2: %s\n", m.Token1, m.Token2)
			fmt.Fprintf(w, "\tTickSize: %s  TradeSize: %s  NegRisk: %v\n\n", m.TickSize, m.TradeSize, m.Bool())
		}
	}

	w.Flush()

	fmt.Printf("\ntotal: %d markets\n", len(markets))

	return nil
}
