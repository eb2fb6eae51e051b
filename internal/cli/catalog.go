package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EcliqseX/vetsim/internal/catalog"
)

func newCatalogCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate disease catalogs",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "validate <file>",
			Short: "Check a YAML catalog file",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				cat, err := catalog.LoadFile(args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "%s: ok (%d diseases, %d tests)\n", args[0], len(cat.Diseases()), len(cat.Tests()))
				for _, sp := range catalog.AllSpecies {
					if len(cat.DiseasesFor(sp)) == 0 {
						fmt.Fprintf(out, "warning: no disease affects %s; its patients are given any disease\n", sp)
					}
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "show [file]",
			Short: "Print a catalog as YAML (default: the configured catalog)",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path := ""
				if len(args) == 1 {
					path = args[0]
				} else {
					manager, err := opts.loadConfig()
					if err != nil {
						return err
					}
					path = manager.GetConfig().Catalog.Path
				}

				cat, err := catalog.Load(path)
				if err != nil {
					return err
				}
				return cat.Encode(cmd.OutOrStdout())
			},
		},
	)
	return cmd
}
