package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/EcliqseX/vetsim/internal/ledger"
)

var errLedgerDisabled = errors.New("ledger driver is \"none\"; nothing to do")

// withLedger opens the configured ledger for the duration of fn.
func (o *rootOptions) withLedger(cmd *cobra.Command, fn func(store ledger.Store, logger *logrus.Logger) error) error {
	manager, err := o.loadConfig()
	if err != nil {
		return err
	}
	cfg := manager.GetConfig()

	logger, err := toolLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	store, closeStore, err := openLedger(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()
	if store == nil {
		return errLedgerDisabled
	}
	return fn(store, logger)
}

func newLedgerCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Manage the diagnosis ledger",
	}

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write every ledger record as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withLedger(cmd, func(store ledger.Store, logger *logrus.Logger) error {
				var w io.Writer = cmd.OutOrStdout()
				if output != "" && output != "-" {
					f, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}
				if err := store.ExportJSON(cmd.Context(), w); err != nil {
					return err
				}
				if output != "" && output != "-" {
					logger.WithField("path", output).Info("Ledger exported")
				}
				return nil
			})
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")

	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load records from a JSON export; existing case ids are skipped",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withLedger(cmd, func(store ledger.Store, _ *logrus.Logger) error {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open %s: %w", args[0], err)
				}
				defer f.Close()

				imported, skipped, err := store.ImportJSON(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d records, skipped %d\n", imported, skipped)
				return nil
			})
		},
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print diagnosis accuracy as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.withLedger(cmd, func(store ledger.Store, _ *logrus.Logger) error {
				s, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			})
		},
	}

	cmd.AddCommand(export, importCmd, stats)
	return cmd
}
