package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EcliqseX/vetsim/internal/config"
	"github.com/EcliqseX/vetsim/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		dataDir string
		seed    uint64
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve one clinic to an MCP client over stdio",
		Long: "Runs the clinic as an MCP server on stdin/stdout. Configuration comes from\n" +
			"VETSIM_DATA_DIR, VETSIM_SEED, VETSIM_CATALOG, VETSIM_MAX_SESSIONS, VETSIM_SESSION_TTL,\n" +
			"VETSIM_LOG_LEVEL and VETSIM_LOG_FORMAT. Logs go to stderr.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.LoadLiteConfig()
			if dataDir != "" {
				cfg.DataDir = dataDir
			}
			if seed != 0 {
				cfg.Seed = seed
			}

			server, err := mcp.NewLiteServer(cfg)
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}
			defer server.Close()

			return server.Start(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&dataDir, "data-dir", "", "override VETSIM_DATA_DIR")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "override VETSIM_SEED")
	return cmd
}
