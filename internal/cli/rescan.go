package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Wikid82/logwarden/internal/database"
	"github.com/Wikid82/logwarden/internal/pipeline"
)

func newRescanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rescan <path>",
		Short: "Ingest a whole file once and wait for its analyses",
		Long: `Read every line of a file, store the ones not seen before for that file and
analyze them. Alerts are raised exactly as for tailed lines.

Examples:
  logwarden rescan /var/log/app/api.log`,
		Args: cobra.ExactArgs(1),
		RunE: runRescan,
	}
}

func runRescan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	p, err := pipeline.New(cfg, db, pipeline.WithoutMetrics())
	if err != nil {
		return err
	}
	defer p.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	n, err := p.Rescan(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "processed %d lines from %s\n", n, args[0])
	return nil
}
