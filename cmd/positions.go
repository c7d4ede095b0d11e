package cmd

import (
	"context"
	"crypto/ecdsa"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/polystrat/strategy-core/pkg/config"
	"github.com/polystrat/strategy-core/pkg/wallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var positionsCmd = &cobra.Command{
	Use:   "positions",
	Short: "List held outcome token positions",
	Long: `Fetches the configured wallet's held positions from Polymarket's Data API
and displays them with cost basis and P&L. Status is determined from the
position's value ratio: a near-zero or near-full value relative to cost
basis reads as settled, anything else as still active.`,
	RunE: runPositions,
}

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(positionsCmd)
	positionsCmd.Flags().String("format", "table", "Output format: table, json, csv")
	positionsCmd.Flags().Bool("sort-by-pnl", false, "Sort positions by percent P&L, worst first")
}

// determineStatusFromValue classifies a position purely from its current
// value relative to its cost basis, since no market-metadata collaborator
// (closed/resolved flags) is in scope for this core. A position settled at
// $1 reads as a near-full value ratio; one settled at $0 reads as near-zero.
func determineStatusFromValue(pos wallet.Position) string {
	if pos.InitialValue <= 0 {
		return "ACTIVE"
	}

	ratio := pos.Value / pos.InitialValue
	switch {
	case ratio >= 1.9:
		return "SETTLED_WIN"
	case ratio <= 0.05:
		return "SETTLED_LOSS"
	default:
		return "ACTIVE"
	}
}

func runPositions(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.WalletPrivateKey == "" {
		return fmt.Errorf("WALLET_PRIVATE_KEY is not set")
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.WalletPrivateKey, "0x"))
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}
	publicKeyECDSA, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return fmt.Errorf("derive public key: unexpected key type")
	}
	address := crypto.PubkeyToAddress(*publicKeyECDSA)

	logger, err := config.NewLogger()
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	client, err := wallet.NewClient(cfg.RPCURL, logger)
	if err != nil {
		return fmt.Errorf("build wallet client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	positions, err := client.GetPositions(ctx, address.Hex())
	if err != nil {
		return fmt.Errorf("get positions: %w", err)
	}

	sortByPnL, _ := cmd.Flags().GetBool("sort-by-pnl")
	if sortByPnL {
		sort.Slice(positions, func(i, j int) bool { return positions[i].PercentPnL < positions[j].PercentPnL })
	}

	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "json":
		return displayPositionsJSON(positions)
	case "csv":
		return displayPositionsCSV(positions)
	default:
		return displayPositionsTable(positions)
	}
}

func displayPositionsTable(positions []wallet.Position) error {
	if len(positions) == 0 {
		fmt.Println("no active positions")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "MARKET\tOUTCOME\tSIZE\tAVG PRICE\tVALUE\tP&L\tSTATUS\n")
	fmt.Fprintf(w, "------\t-------\t----\t---------\t-----\t---\t------\n")

	var totalValue, totalPnL float64
	for _, pos := range positions {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.4f\t$%.2f\t%.2f%%\t%s\n",
			pos.MarketSlug, pos.Outcome, pos.Size, pos.AvgPrice, pos.Value, pos.PercentPnL, determineStatusFromValue(pos))
		totalValue += pos.Value
		totalPnL += pos.CashPnL
	}
	w.Flush()

	fmt.Printf("\nTotal value: $%.2f  Total P&L: $%.2f\n", totalValue, totalPnL)
	return nil
}

func displayPositionsJSON(positions []wallet.Position) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(positions)
}

func displayPositionsCSV(positions []wallet.Position) error {
	w := csv.NewWriter(os.Stdout)
	defer w.Flush()

	header := []string{"market", "outcome", "size", "avg_price", "value", "cash_pnl", "percent_pnl", "status"}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, pos := range positions {
		row := []string{
			pos.MarketSlug,
			pos.Outcome,
			fmt.Sprintf("%.4f", pos.Size),
			fmt.Sprintf("%.4f", pos.AvgPrice),
			fmt.Sprintf("%.2f", pos.Value),
			fmt.Sprintf("%.2f", pos.CashPnL),
			fmt.Sprintf("%.2f", pos.PercentPnL),
			determineStatusFromValue(pos),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return nil
}
