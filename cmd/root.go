package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

//nolint:gochecknoglobals // Cobra boilerplate
var rootCmd = &cobra.Command{
	Use:   "strategy-core",
	Short: "Binary-outcome prediction market strategy execution core",
	Long: `strategy-core runs the Dutch Arb and Market Maker strategies against a
static set of binary-outcome markets: two-leg arbitrage when both outcome
asks sum below par, and continuous two-sided quoting with stop-loss and
take-profit otherwise.

Market discovery and order-book delivery are external collaborators; this
core consumes a configured market list and a live or paper exchange client.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	// Flags can be added here if needed
}
