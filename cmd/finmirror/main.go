// Command finmirror mirrors a ZenMoney ledger into Postgres and serves it
// over HTTP.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"finmirror/internal/shared/config"
	"finmirror/internal/shared/logging"
)

// Set with -ldflags "-X main.version=...".
var version = "dev"

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "finmirror",
	Short: "Mirror a ZenMoney ledger into Postgres",
	Long: `finmirror keeps a local Postgres copy of a ZenMoney account and
exposes it through a small authenticated HTTP API.

Example:
  finmirror migrate up
  finmirror sync --token $ZENTOKEN
  finmirror serve`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			return os.Setenv("CONFIG_FILE", cfgFile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml or toml); environment variables take precedence")

	rootCmd.AddCommand(serveCmd, syncCmd, dryRunCmd, migrateCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// setup loads configuration and installs the process logger.
func setup() (*config.Config, *slog.Logger, io.Closer, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, closer, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	slog.SetDefault(logger)
	return cfg, logger, closer, nil
}
