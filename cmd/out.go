package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/worklog/internal/ledger"
	"github.com/Tiliavir/worklog/internal/timecalc"
)

var (
	outDate string
	outAt   string
)

var outCmd = &cobra.Command{
	Use:   "out",
	Short: "Check out (default: today, now); overwrites an earlier check-out",
	Args:  cobra.NoArgs,
	RunE:  runOut,
}

func init() {
	outCmd.Flags().StringVar(&outDate, "date", "", "Day to record (YYYY-MM-DD)")
	outCmd.Flags().StringVar(&outAt, "at", "", "Check-out time (HH:MM)")
}

func runOut(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, clock := dateAndClock(sess.ledger.Now(), outDate, outAt)

	if err := sess.ledger.RecordCheckOut(ctx, date, clock); err != nil {
		return err
	}
	afterChange(ctx)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Checked out at %s on %s", clock, date)
	rec, err := sess.ledger.Get(ctx, date)
	if err != nil {
		return err
	}
	if rec != nil {
		if h, ok := ledger.DayHours(*rec); ok {
			fmt.Fprintf(out, " (%s worked)", timecalc.FormatHours(h))
		}
	}
	fmt.Fprintln(out)
	return nil
}
