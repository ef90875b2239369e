package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fieldworks/depot/internal/app"
	"github.com/fieldworks/depot/internal/catalog"
	"github.com/fieldworks/depot/internal/ledger"
	"github.com/fieldworks/depot/internal/report"
	"github.com/fieldworks/depot/internal/terminal"
)

// runtime bundles everything a command needs after startup.
type runtime struct {
	cfg     *app.Config
	logger  *slog.Logger
	svc     *ledger.Service
	repo    *ledger.Repository
	reports *report.Generator
}

func start() (*runtime, error) {
	_ = godotenv.Load()

	cfg, err := app.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	repo := ledger.NewRepository(ledger.RepositoryConfig{
		DataDir:     cfg.DataDir,
		SnapshotDir: cfg.SnapshotDir,
		Retention:   cfg.SnapshotRetention,
	}, logger)
	svc := ledger.NewService(catalog.New(), repo, logger)
	if err := svc.LoadState(); err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	repo.Sweep()

	return &runtime{
		cfg:     cfg,
		logger:  logger,
		svc:     svc,
		repo:    repo,
		reports: report.NewGenerator(cfg.ReportDir, logger),
	}, nil
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "depot",
		Short: "Parts depot inventory ledger",
		Long:  "Interactive inventory ledger with freight amortization for a small parts depot.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := start()
			if err != nil {
				return err
			}
			session := terminal.NewSession(
				terminal.NewPrompter(cmd.InOrStdin(), cmd.OutOrStdout()),
				rt.svc, rt.repo, rt.reports, rt.logger,
			)
			return session.Run()
		},
	}

	reportCmd := &cobra.Command{
		Use:   "report FROM TO",
		Short: "Generate the exit report for a date range (DD/MM/YYYY)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := catalog.ParseDate(args[0])
			if err != nil {
				return fmt.Errorf("start date: %w", err)
			}
			to, err := catalog.ParseDate(args[1])
			if err != nil {
				return fmt.Errorf("end date: %w", err)
			}
			rt, err := start()
			if err != nil {
				return err
			}
			path, err := rt.reports.Generate(rt.svc.Exits(), from, to)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report generated: %s\n", path)
			return nil
		},
	}

	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a full backup of the ledger state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := start()
			if err != nil {
				return err
			}
			path, err := rt.repo.WriteBackup(rt.svc.State())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written: %s\n", path)
			return nil
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Remove snapshots older than the retention window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := start()
			if err != nil {
				return err
			}
			removed := rt.repo.Sweep()
			fmt.Fprintf(cmd.OutOrStdout(), "Snapshots removed: %d\n", removed)
			return nil
		},
	}

	root.AddCommand(reportCmd, backupCmd, sweepCmd)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
