package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fairside/validator/internal/core/config"
	"github.com/fairside/validator/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show every sync cursor and how far it has scraped",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
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

	cursors, err := postgres.NewCursorRepo(db).List(ctx)
	if err != nil {
		slog.Error("Failed to query cursors", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "CHAIN\tEVENT\tCREATED\tSYNC\tUPDATED")
	for _, c := range cursors {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%s\n",
			c.ChainID, c.EventName, c.BlockCreated, c.BlockSync,
			c.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	_ = w.Flush()
}
