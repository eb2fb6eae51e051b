package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/EcliqseX/vetsim/internal/setup"
)

func newSetupCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register vetsim with Claude Desktop",
	}
	cmd.PersistentFlags().StringVar(&configPath, "desktop-config", "", "Claude Desktop config file (default: the platform location)")

	var (
		opts setup.Options
		yes  bool
	)
	desktop := &cobra.Command{
		Use:   "desktop",
		Short: "Add vetsim to the desktop client's mcpServers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			opts.ConfigPath = configPath
			if opts.BinaryPath == "" {
				if exe, err := os.Executable(); err == nil {
					opts.BinaryPath = exe
				}
			}

			target := opts.ConfigPath
			if target == "" {
				target, _ = setup.DesktopConfigPath()
			}
			fmt.Fprintln(out, "Claude Desktop Configuration")
			fmt.Fprintln(out, "============================")
			fmt.Fprintf(out, "Config file: %s\n", target)
			fmt.Fprintf(out, "Server binary: %s\n", opts.BinaryPath)
			if opts.DataDir != "" {
				fmt.Fprintf(out, "Data directory: %s\n", opts.DataDir)
			}
			fmt.Fprintln(out)

			if !yes {
				fmt.Fprint(out, "Proceed with configuration? [Y/n]: ")
				response, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				response = strings.TrimSpace(strings.ToLower(response))
				if response != "" && response != "y" && response != "yes" {
					fmt.Fprintln(out, "Configuration cancelled.")
					return nil
				}
			}

			written, err := setup.Configure(opts)
			if err != nil {
				return fmt.Errorf("failed to configure Claude Desktop: %w", err)
			}

			fmt.Fprintf(out, "✓ vetsim registered in %s\n", written)
			fmt.Fprintln(out, "Restart Claude Desktop, then ask it to call the next patient.")
			return nil
		},
	}
	desktop.Flags().StringVarP(&opts.BinaryPath, "binary", "b", "", "vetsim binary (default: this executable)")
	desktop.Flags().StringVarP(&opts.DataDir, "data-dir", "d", "", "data directory for the ledger and exports")
	desktop.Flags().StringVar(&opts.CatalogPath, "catalog", "", "YAML catalog the server should load")
	desktop.Flags().Uint64Var(&opts.Seed, "seed", 0, "fixed random seed")
	desktop.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the current registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			st := setup.GetStatus(configPath)

			fmt.Fprintf(out, "Config path: %s\n", st.ConfigPath)
			if st.Configured {
				fmt.Fprintln(out, "Registered:  ✓")
				fmt.Fprintf(out, "Binary:      %s\n", st.ServerPath)
			} else {
				fmt.Fprintln(out, "Registered:  ✗")
			}
			fmt.Fprintf(out, "Data dir:    %s\n", st.DataDir)
			if st.LedgerPresent {
				fmt.Fprintln(out, "Ledger:      ✓ present")
			} else {
				fmt.Fprintln(out, "Ledger:      - not created yet")
			}
			for _, issue := range st.Issues {
				fmt.Fprintf(out, "⚠ %s\n", issue)
			}
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Check the registration is usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			valid, issues := setup.Validate(configPath)
			for _, issue := range issues {
				fmt.Fprintf(out, "  - %s\n", issue)
			}
			if !valid {
				return fmt.Errorf("setup has %d issue(s)", len(issues))
			}
			fmt.Fprintln(out, "✓ Configuration is valid!")
			return nil
		},
	}

	cmd.AddCommand(desktop, status, validate)
	return cmd
}
