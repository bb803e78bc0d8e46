package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/worklog/internal/ledger"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a full backup (records and settings) as JSON",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace all records with those from a backup file",
	Long: `Replace all records with those from a backup written by "worklog export".
Settings in the backup are added or overwritten; other settings are kept.
Use "-" to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records older than the previous ISO week",
	Args:  cobra.NoArgs,
	RunE:  runPrune,
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
	b, err := sess.ledger.ExportAll(cmd.Context())
	if err != nil {
		return err
	}

	if exportOutput == "" {
		return ledger.EncodeBackup(cmd.OutOrStdout(), b)
	}

	var buf bytes.Buffer
	if err := ledger.EncodeBackup(&buf, b); err != nil {
		return err
	}
	if dir := filepath.Dir(exportOutput); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := os.WriteFile(exportOutput, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", exportOutput, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d records and %d settings to %s\n",
		len(b.Records), len(b.Settings), exportOutput)
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	var r io.Reader
	if args[0] == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening backup: %w", err)
		}
		defer f.Close()
		r = f
	}

	b, err := ledger.DecodeBackup(r)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if err := sess.ledger.ImportAll(ctx, b); err != nil {
		return err
	}
	// Restored records outside the retention window go right away.
	pruned, err := sess.ledger.PruneRetention(ctx)
	if err != nil {
		return err
	}
	afterChange(ctx)

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d records and %d settings", len(b.Records), len(b.Settings))
	if pruned > 0 {
		fmt.Fprintf(cmd.OutOrStdout(), " (%d outside the retention window removed)", pruned)
	}
	fmt.Fprintln(cmd.OutOrStdout())
	return nil
}

func runPrune(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	// The sweep already ran at startup; this one reports what is left to do.
	n, err := sess.ledger.PruneRetention(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		afterChange(ctx)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d records.\n", n)
	return nil
}
