// Package cli implements the vetsim command tree.
package cli

import (
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/EcliqseX/vetsim/internal/config"
	"github.com/EcliqseX/vetsim/internal/domain"
	"github.com/EcliqseX/vetsim/internal/logging"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// rootOptions holds global flags.
type rootOptions struct {
	configPath string
	logLevel   string
}

// NewRootCommand builds the vetsim command with every subcommand attached.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "vetsim",
		Short:         "Veterinary clinic diagnosis simulator",
		Long:          "vetsim runs a veterinary clinic game: patients arrive with symptoms, you order\ntests, diagnose and treat them. Play over HTTP, or let an agent play over MCP.",
		Version:       fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "config file (default: ./config.yaml, ./config/config.yaml, /etc/vetsim/config.yaml)")
	pf.StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	cmd.AddCommand(
		newServeCmd(opts),
		newMCPCmd(),
		newCatalogCmd(opts),
		newLedgerCmd(opts),
		newMigrateCmd(opts),
		newSetupCmd(),
	)
	return cmd
}

// loadConfig reads and validates the configuration named by the global
// flags.
func (o *rootOptions) loadConfig() (*config.Manager, error) {
	manager, err := config.NewManagerFromFile(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		manager.GetConfig().Logging.Level = o.logLevel
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return manager, nil
}

// toolLogger logs to stderr so command output on stdout stays parseable.
func toolLogger(cfg domain.LoggingConfig, stderr io.Writer) (*logrus.Logger, error) {
	cfg.Output = logging.OutputStderr
	logger, _, err := logging.New(cfg)
	if err != nil {
		return nil, err
	}
	logger.SetOutput(stderr)
	return logger, nil
}
