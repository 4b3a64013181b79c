package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/upb/agency-backoffice/config"
	"github.com/upb/agency-backoffice/repositories/postgres"
	"go.uber.org/zap"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error { return m.Up() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error { return m.Down() })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(m *postgres.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "version %d dirty=%t\n", version, dirty)
				return err
			})
		},
	})

	return cmd
}

func withMigrator(cmd *cobra.Command, fn func(m *postgres.Migrator) error) error {
	cfg, logger, err := loadRuntime(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	m, err := postgres.NewMigrator(cmd.Context(), cfg.Database, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := m.Close(); err != nil {
			logger.Warn("failed to close migrator", zap.Error(err))
		}
	}()
	return fn(m)
}

func migrateUp(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) error {
	m, err := postgres.NewMigrator(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}
