package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/worklog/internal/ledger"
	"github.com/Tiliavir/worklog/internal/timecalc"
)

var (
	inDate string
	inAt   string
)

var inCmd = &cobra.Command{
	Use:   "in",
	Short: "Check in (default: today, now)",
	Args:  cobra.NoArgs,
	RunE:  runIn,
}

func init() {
	inCmd.Flags().StringVar(&inDate, "date", "", "Day to record (YYYY-MM-DD)")
	inCmd.Flags().StringVar(&inAt, "at", "", "Check-in time (HH:MM)")
}

func runIn(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	date, clock := dateAndClock(sess.ledger.Now(), inDate, inAt)

	err := sess.ledger.RecordCheckIn(ctx, date, clock)
	if errors.Is(err, ledger.ErrAlreadyCheckedIn) {
		return fmt.Errorf("%w (use `worklog edit %s in HH:MM` to change it)", err, date)
	}
	if err != nil {
		return err
	}
	afterChange(ctx)

	fmt.Fprintf(cmd.OutOrStdout(), "Checked in at %s on %s\n", clock, date)
	return nil
}

// dateAndClock fills the missing date and time from now.
func dateAndClock(now time.Time, date, clock string) (string, string) {
	if date == "" {
		date = timecalc.DateKey(now)
	}
	if clock == "" {
		clock = timecalc.Clock(now)
	}
	return date, clock
}
