package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/worklog/internal/ledger"
)

var editCmd = &cobra.Command{
	Use:   "edit <date> <in|out> <HH:MM|->",
	Short: "Set or clear the check-in or check-out of a day",
	Long: `Set the check-in or check-out of a day to HH:MM, or clear it with "-".
Unlike "worklog in", edit overwrites an existing check-in.`,
	Example: `  worklog edit 2025-05-01 in 08:45
  worklog edit 2025-05-01 out -`,
	Args: cobra.ExactArgs(3),
	RunE: runEdit,
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, value := args[0], args[2]
	field, err := ledger.ParseField(args[1])
	if err != nil {
		return err
	}

	if value == "-" {
		err = sess.ledger.ClearField(ctx, date, field)
	} else {
		err = sess.ledger.EditField(ctx, date, field, value)
	}
	if err != nil {
		return err
	}
	afterChange(ctx)

	if value == "-" {
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s on %s\n", field, date)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s to %s on %s\n", field, value, date)
	}
	return nil
}
