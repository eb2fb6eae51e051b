package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/EcliqseX/vetsim/internal/api"
	"github.com/EcliqseX/vetsim/internal/logging"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the clinic over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cfg := manager.GetConfig()
			if port != 0 {
				cfg.Server.Port = port
			}

			logger, closeLog, err := logging.New(cfg.Logging)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer closeLog.Close()

			ctx := cmd.Context()
			a, err := buildApp(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(); err != nil {
					logger.WithError(err).Warn("Error during shutdown")
				}
			}()

			server, err := api.NewServer(manager, a.deps(logger))
			if err != nil {
				return fmt.Errorf("failed to create server: %w", err)
			}

			logger.WithField("port", cfg.Server.Port).Info("Starting vetsim HTTP server")
			if err := server.Start(ctx); err != nil {
				return err
			}
			logger.Info("Server stopped")
			return nil
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "override server.port")
	return cmd
}
