package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fairside/validator/internal/core/acctlock"
	"github.com/fairside/validator/internal/core/config"
	"github.com/fairside/validator/internal/core/wallet"
	"github.com/fairside/validator/internal/infra/storage/postgres"
)

var walletCreditCmd = &cobra.Command{
	Use:   "wallet-credit [address] [delta]",
	Short: "Apply a signed delta to a wallet balance through the account lock",
	Args:  cobra.ExactArgs(2),
	Run:   runWalletCredit,
}

func init() {
	rootCmd.AddCommand(walletCreditCmd)
}

func runWalletCredit(cmd *cobra.Command, args []string) {
	address := args[0]
	delta, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		fmt.Printf("Invalid delta: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	svc := wallet.NewService(postgres.NewWalletRepo(db), acctlock.NewLocker())
	if err := svc.ApplyDelta(ctx, address, delta); err != nil {
		slog.Error("Failed to apply delta", "error", err)
		os.Exit(1)
	}

	balance, err := svc.Balance(ctx, address)
	if err != nil {
		slog.Error("Failed to read balance", "error", err)
		os.Exit(1)
	}
	fmt.Printf("Wallet %s balance: %d\n", address, balance)
}
