package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"finmirror/internal/domain/syncer"
	"finmirror/internal/infrastructure/postgres"
	"finmirror/internal/infrastructure/zenmoney"
	"finmirror/internal/interfaces/scheduler"
	"finmirror/internal/shared/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background syncer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closer, err := setup()
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx := cmd.Context()

		shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
			Enabled:      cfg.Telemetry.Enabled,
			ServiceName:  cfg.Telemetry.ServiceName,
			Version:      version,
			Environment:  cfg.Telemetry.Environment,
			OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
			MetricsPort:  cfg.Telemetry.MetricsPort,
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize telemetry: %w", err)
		}
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := shutdownTelemetry(flushCtx); err != nil {
				logger.Error("telemetry shutdown failed", "error", err)
			}
		}()

		deps, err := NewDependencies(cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize dependencies: %w", err)
		}
		defer deps.Close()

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			return RunServer(gctx, NewServerConfigFromConfig(SetupRoutes(deps, cfg, logger), cfg), logger)
		})

		if cfg.Sync.Enabled {
			sched, err := scheduler.NewScheduler(scheduler.Config{
				Interval:     cfg.Sync.Interval,
				WorkerCount:  cfg.Sync.WorkerCount,
				QueueSize:    cfg.Sync.QueueSize,
				RunOnStartup: cfg.Sync.RunOnStartup,
				JobProvider:  scheduler.SyncJobProvider(scheduler.NewSyncJob(deps.Syncer, cfg.Remote.Token, logger)),
			}, logger)
			if err != nil {
				return fmt.Errorf("failed to create scheduler: %w", err)
			}
			g.Go(func() error {
				return sched.Run(gctx, cfg.Server.ShutdownTimeout)
			})
		} else {
			logger.Info("background sync disabled")
		}

		return g.Wait()
	},
}

var syncToken string

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull one incremental diff and merge it into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closer, err := setup()
		if err != nil {
			return err
		}
		defer closer.Close()

		token := tokenOrDefault(syncToken, cfg.Remote.Token)
		if token == "" {
			return errors.New("a token is required: pass --token or set ZENTOKEN")
		}

		deps, err := NewDependencies(cfg, logger)
		if err != nil {
			return err
		}
		defer deps.Close()

		diff, err := deps.Syncer.SyncOnce(cmd.Context(), token)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "synced up to %d\n", diff.ServerTimestamp)
		return nil
	},
}

var (
	dryRunToken     string
	dryRunTimestamp int64
	dryRunOut       string
	dryRunFormat    string
)

var dryRunCmd = &cobra.Command{
	Use:   "dry-run",
	Short: "Fetch a diff and write it to a file without touching the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closer, err := setup()
		if err != nil {
			return err
		}
		defer closer.Close()

		token := tokenOrDefault(dryRunToken, cfg.Remote.Token)
		if token == "" {
			return errors.New("a token is required: pass --token or set ZENTOKEN")
		}

		format := syncer.Format(dryRunFormat)
		if dryRunFormat == "" {
			format = syncer.FormatFromPath(dryRunOut)
		}

		// Nothing is merged, so the database is never opened.
		client := zenmoney.NewClient(cfg.Remote.BaseURL)
		svc := syncer.NewService(nil, syncer.Repositories{}, client, cfg.Remote.Timeout, logger)

		f, err := os.Create(dryRunOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", dryRunOut, err)
		}
		defer f.Close()

		diff, err := svc.DryRun(cmd.Context(), token, dryRunTimestamp, f, format)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote diff up to %d to %s\n", diff.ServerTimestamp, dryRunOut)
		return f.Close()
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closer, err := setup()
		if err != nil {
			return err
		}
		defer closer.Close()

		if err := postgres.Migrate(cfg.Database.URL()); err != nil {
			return err
		}
		logger.Info("migrations applied")
		return nil
	},
}

var migrateDownSteps int

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, closer, err := setup()
		if err != nil {
			return err
		}
		defer closer.Close()

		if migrateDownSteps < 1 {
			return errors.New("--steps must be at least 1")
		}
		if err := postgres.MigrateDown(cfg.Database.URL(), migrateDownSteps); err != nil {
			return err
		}
		logger.Info("migrations rolled back", "steps", migrateDownSteps)
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, closer, err := setup()
		if err != nil {
			return err
		}
		defer closer.Close()

		v, dirty, err := postgres.SchemaVersion(cfg.Database.URL())
		if err != nil {
			return err
		}
		out := strconv.FormatUint(uint64(v), 10)
		if dirty {
			out += " (dirty)"
		}
		fmt.Fprintln(cmd.OutOrStdout(), out)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the finmirror version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncToken, "token", "", "access token (defaults to ZENTOKEN)")

	dryRunCmd.Flags().StringVar(&dryRunToken, "token", "", "access token (defaults to ZENTOKEN)")
	dryRunCmd.Flags().Int64Var(&dryRunTimestamp, "timestamp", 0, "server timestamp to diff from; 0 fetches everything")
	dryRunCmd.Flags().StringVarP(&dryRunOut, "out", "o", "data.json", "output file")
	dryRunCmd.Flags().StringVar(&dryRunFormat, "format", "", "json or yaml (default: from the output file extension)")

	migrateDownCmd.Flags().IntVar(&migrateDownSteps, "steps", 1, "number of migrations to roll back")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
}

func tokenOrDefault(flag, env string) string {
	if flag != "" {
		return flag
	}
	return env
}
