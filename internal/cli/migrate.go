package cli

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"

	"github.com/EcliqseX/vetsim/internal/database"
)

// withMigrations runs fn against the postgres ledger schema.
func (o *rootOptions) withMigrations(cmd *cobra.Command, fn func(*database.MigrationRunner) error) error {
	manager, err := o.loadConfig()
	if err != nil {
		return err
	}
	cfg := manager.GetConfig()
	if cfg.Ledger.Driver != "postgres" {
		return fmt.Errorf("migrations apply to the postgres ledger, but ledger.driver is %q", cfg.Ledger.Driver)
	}

	logger, err := toolLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	url := database.ConfigFrom(cfg.Database).URL()
	runner, err := newMigrationRunner(cfg.Database.MigrationsPath, url, logger)
	if err != nil {
		return fmt.Errorf("failed to prepare migrations: %w", err)
	}
	defer func() {
		if err := runner.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close migration runner")
		}
	}()
	return fn(runner)
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres ledger schema",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.withMigrations(cmd, func(r *database.MigrationRunner) error {
					return r.Up(cmd.Context())
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.withMigrations(cmd, func(r *database.MigrationRunner) error {
					return r.Down(cmd.Context())
				})
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return opts.withMigrations(cmd, func(r *database.MigrationRunner) error {
					version, dirty, err := r.Version()
					if errors.Is(err, migrate.ErrNilVersion) {
						fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
						return nil
					}
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
					return nil
				})
			},
		},
	)
	return cmd
}
