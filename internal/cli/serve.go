package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Wikid82/logwarden/internal/database"
	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/pipeline"
	"github.com/Wikid82/logwarden/internal/server"
	"github.com/Wikid82/logwarden/internal/version"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the pipeline and the HTTP API until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Log().WithField("version", version.Full()).Infof("starting %s", version.Name)

	db, err := database.Connect(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	p, err := pipeline.New(cfg, db)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := p.Start(ctx); err != nil {
		p.Shutdown()
		return err
	}

	srvErr := server.New(cfg, p.RouteDependencies()).Run(ctx)
	stop()
	p.Shutdown()
	if srvErr != nil {
		return fmt.Errorf("server error: %w", srvErr)
	}
	return nil
}
