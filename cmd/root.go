package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Tiliavir/worklog/internal/config"
	"github.com/Tiliavir/worklog/internal/ledger"
	"github.com/Tiliavir/worklog/internal/logger"
	"github.com/Tiliavir/worklog/internal/storage"
)

// session holds what every command needs. It is built once per run.
type session struct {
	cfg    config.Config
	log    *zap.Logger
	ledger *ledger.Ledger
}

var sess *session

var rootCmd = &cobra.Command{
	Use:   "worklog",
	Short: "worklog - check in, check out, see your week",
	Long: `worklog records one check-in and one check-out per day and shows
the hours worked per day and per week, net of the lunch and dinner breaks.

Only the current and the previous ISO week are kept. Configuration lives in
~/.worklog/config.json.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: openSession,
}

// Execute is the entry point called from main.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	closeSession()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode is 2 for storage failures and 1 for everything else.
func exitCode(err error) int {
	if errors.Is(err, ledger.ErrStorageUnavailable) {
		return 2
	}
	return 1
}

func init() {
	rootCmd.AddCommand(inCmd)
	rootCmd.AddCommand(outCmd)
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(weekCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(pruneCmd)
	rootCmd.AddCommand(settingCmd)
	rootCmd.AddCommand(driveCmd)
}

// openSession loads the config, opens the first available backend and runs
// the retention sweep, as every start of the app does.
func openSession(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx := cmd.Context()
	store := storage.Open(ctx, storage.Options{
		Backend: cfg.Storage.Backend,
		Dir:     cfg.Storage.DataDir,
	}, log)
	if store.Name() == storage.BackendMemory && cfg.Storage.Backend != storage.BackendMemory {
		fmt.Fprintln(os.Stderr, "Warning: no persistent storage available, changes will be lost on exit.")
	}

	l := ledger.New(store, ledger.WithLogger(log))
	sess = &session{cfg: cfg, log: log, ledger: l}

	if _, err := l.PruneRetention(ctx); err != nil {
		return err
	}
	return nil
}

func closeSession() {
	if sess == nil {
		return
	}
	if err := sess.ledger.Close(); err != nil {
		sess.log.Warn("closing storage", zap.Error(err))
	}
	logger.Sync(sess.log)
	sess = nil
}

// afterChange writes the best-effort snapshot configured in the config file.
func afterChange(ctx context.Context) {
	if path := sess.cfg.SnapshotPath(); path != "" {
		sess.ledger.Snapshot(ctx, path)
	}
}
