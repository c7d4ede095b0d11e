package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/polystrat/strategy-core/internal/app"
	"github.com/polystrat/strategy-core/pkg/config"
)

//nolint:gochecknoglobals // Cobra boilerplate
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the strategy execution core",
	Long: `Starts the strategy core, which will:
1. Load the configured market list and per-market strategy assignments
2. Open a live or paper exchange client depending on EXECUTION_MODE
3. Run Dutch Arb and/or Market Maker for every configured market on a poll loop

Use --single-market to track only one market by condition id, for debugging.`,
	RunE: runBot,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringP("single-market", "s", "", "Track only a single market by condition id (for debugging)")
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	singleMarket, _ := cmd.Flags().GetString("single-market")

	application, err := app.New(cfg, logger, &app.Options{SingleMarket: singleMarket})
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}

	if err := application.Run(); err != nil {
		return fmt.Errorf("run app: %w", err)
	}

	return nil
}
