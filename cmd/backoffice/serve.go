package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/upb/agency-backoffice/app"
	"github.com/upb/agency-backoffice/routes"
	"github.com/upb/agency-backoffice/services/jobs"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API until SIGINT or SIGTERM.

Examples:
  # API only
  backoffice serve

  # API plus the background job loop in the same process
  backoffice serve --with-jobs
`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().Bool("with-jobs", false, "Also run the background job loop")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	withJobs, _ := cmd.Flags().GetBool("with-jobs")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadRuntime(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Database.AutoMigrate {
		if err := migrateUp(ctx, cfg.Database, logger); err != nil {
			return err
		}
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      routes.SetupRoutes(deps),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go deps.AILimiter.Run(ctx)
	if withJobs {
		runner := newJobRunner(deps)
		go func() {
			if err := runner.Run(ctx); err != nil {
				logger.Error("job loop exited", zap.Error(err))
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("version", app.Version))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			_ = deps.Close(context.Background())
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}
	if err := deps.Close(shutdownCtx); err != nil {
		logger.Error("failed to close dependencies", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

func newJobRunner(deps *app.Dependencies) *jobs.Runner {
	cfg, logger := deps.Config.Jobs, deps.Logger
	return jobs.NewRunner(deps.Metrics, logger,
		jobs.NewChurnRescore(deps.Repos.Organizations, deps.Churn, cfg.ChurnInterval, logger),
		jobs.NewPublishDuePosts(deps.Social, cfg.PublishInterval, logger),
		jobs.NewMarkOverdueInvoices(deps.Billing, cfg.OverdueInterval, logger),
	)
}
