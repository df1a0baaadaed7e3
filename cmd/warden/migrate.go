package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"warden/cmd/internal/app"
	"warden/cmd/internal/migrations"
)

var errDatabaseURLRequired = errors.New("WARDEN_DATABASE_URL environment variable is required")

// NewMigrateCmd creates the migrate command group.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
				cmd.Println("Running migrations...")
				if err := m.Up(); err != nil {
					return err
				}
				v, _, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Printf("Migrations completed successfully (version %d)\n", v)
				return nil
			})
		},
	})

	var confirm bool
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back every migration, dropping all warden tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirm {
				return errors.New("refusing to drop all tables without --yes")
			}
			return withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				cmd.Println("All migrations rolled back")
				return nil
			})
		},
	}
	down.Flags().BoolVar(&confirm, "yes", false, "confirm dropping all warden tables")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the applied and latest embedded schema versions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			versions, err := migrations.Versions()
			if err != nil {
				return err
			}
			var latest uint
			if len(versions) > 0 {
				latest = versions[len(versions)-1]
			}
			return withMigrator(cmd.Context(), func(m *migrations.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Printf("applied=%d latest=%d dirty=%t\n", v, latest, dirty)
				return nil
			})
		},
	})

	return cmd
}

// withMigrator ensures the schema exists and runs fn against a migrator for it.
func withMigrator(ctx context.Context, fn func(*migrations.Migrator) error) error {
	cfg, err := app.LoadConfig()
	if err != nil {
		return err
	}
	if !cfg.DBEnabled() {
		return errDatabaseURLRequired
	}
	if ctx == nil {
		ctx = context.Background()
	}

	pool, err := app.NewDBPool(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	err = migrations.EnsureSchema(ctx, pool, cfg.DBSchema)
	pool.Close()
	if err != nil {
		return err
	}

	m, err := migrations.NewMigrator(cfg.DatabaseURL, cfg.DBSchema)
	if err != nil {
		return err
	}
	return errors.Join(fn(m), m.Close())
}
