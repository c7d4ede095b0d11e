package cmd

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/spf13/cobra"

	"github.com/polystrat/strategy-core/pkg/config"
	"github.com/polystrat/strategy-core/pkg/wallet"
)

//nolint:gochecknoglobals // Cobra boilerplate
var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Check wallet balances and held positions",
	Long: `Display the configured wallet's current holdings:
- MATIC balance (for gas)
- USDC balance (for trading)
- USDC allowance (approved to the CTF Exchange)
- Active positions (outcome tokens held)`,
	RunE: runBalance,
}

//nolint:gochecknoglobals // Cobra boilerplate
var showPositions bool

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(balanceCmd)
	balanceCmd.Flags().BoolVarP(&showPositions, "positions", "p", true, "Show active positions")
}

func runBalance(_ *cobra.Command, _ []string) error {
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

	fmt.Printf("=== Wallet Balance Sheet ===\n\n")
	fmt.Printf("Address: %s\n\n", address.Hex())

	balances, err := client.GetBalances(ctx, address)
	if err != nil {
		return fmt.Errorf("get balances: %w", err)
	}

	maticFloat := new(big.Float).Quo(new(big.Float).SetInt(balances.MATIC), big.NewFloat(1e18))
	fmt.Printf("MATIC Balance: %s MATIC\n", maticFloat.Text('f', 6))

	usdcFloat := new(big.Float).Quo(new(big.Float).SetInt(balances.USDC), big.NewFloat(1e6))
	fmt.Printf("USDC Balance: %s USDC\n", usdcFloat.Text('f', 2))

	allowanceFloat := new(big.Float).Quo(new(big.Float).SetInt(balances.USDCAllowance), big.NewFloat(1e6))
	if balances.USDCAllowance.Cmp(big.NewInt(0).SetUint64(1e18)) > 0 {
		fmt.Printf("USDC Allowance: unlimited\n")
	} else {
		fmt.Printf("USDC Allowance: %s USDC\n", allowanceFloat.Text('f', 2))
	}

	if showPositions {
		fmt.Printf("\n=== Active Positions ===\n\n")
		positions, err := client.GetPositions(ctx, address.Hex())
		if err != nil {
			fmt.Printf("error fetching positions: %v\n", err)
		} else if len(positions) == 0 {
			fmt.Printf("no active positions\n")
		} else {
			totalValue := 0.0
			for _, pos := range positions {
				fmt.Printf("Market: %s\n", pos.MarketSlug)
				fmt.Printf("  Outcome: %s\n", pos.Outcome)
				fmt.Printf("  Size: %.2f tokens\n", pos.Size)
				fmt.Printf("  Value: $%.2f\n\n", pos.Value)
				totalValue += pos.Value
			}
			fmt.Printf("Total Position Value: $%.2f\n", totalValue)
		}
	}

	fmt.Printf("\n=== Summary ===\n")
	readyToTrade := balances.USDC.Cmp(big.NewInt(1000000)) >= 0 && balances.USDCAllowance.Cmp(big.NewInt(0)) > 0
	fmt.Printf("Ready to trade: %v\n", readyToTrade)
	if !readyToTrade {
		if balances.USDC.Cmp(big.NewInt(1000000)) < 0 {
			fmt.Printf("  - need more USDC (minimum $1.00)\n")
		}
		if balances.USDCAllowance.Cmp(big.NewInt(0)) == 0 {
			fmt.Printf("  - need to approve USDC spending on the CTF Exchange\n")
		}
	}

	return nil
}
