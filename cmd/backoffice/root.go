package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/agency-backoffice/app"
	"github.com/upb/agency-backoffice/config"
	"github.com/upb/agency-backoffice/internal/observability"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "backoffice",
		Short:         "Agency back office API and maintenance commands",
		Long:          `backoffice serves the agency back office API and runs migrations and background jobs against the same configuration.`,
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(serveCmd())
	cmd.AddCommand(migrateCmd())
	cmd.AddCommand(jobsCmd())
	cmd.AddCommand(orgCmd())
	cmd.AddCommand(devTokenCmd())

	return cmd
}

// initLogger builds the process logger from the observability settings
func initLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := observability.NewLogger(cfg.Observability.LogLevel, cfg.Observability.LogFormat)
	if err != nil {
		return nil, err
	}
	return logger.With(zap.String("environment", cfg.Environment)), nil
}

// loadRuntime reads the environment and builds the logger every command shares
func loadRuntime(ctx context.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.New(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := initLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// withDependencies wires the full service graph for the duration of fn
func withDependencies(ctx context.Context, fn func(deps *app.Dependencies) error) error {
	cfg, logger, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return err
	}

	runErr := fn(deps)

	closeCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := deps.Close(closeCtx); err != nil {
		logger.Error("failed to close dependencies", zap.Error(err))
	}
	return runErr
}
