package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Tiliavir/worklog/internal/ledger"
	"github.com/Tiliavir/worklog/internal/timecalc"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's record and this week's total",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	now := sess.ledger.Now()
	today := timecalc.DateKey(now)

	rec, err := sess.ledger.Get(ctx, today)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Today (%s):\n", today)
	switch {
	case rec == nil || (rec.CheckIn == nil && rec.CheckOut == nil):
		fmt.Fprintln(out, "  Not checked in.")
	case rec.CheckOut == nil:
		fmt.Fprintf(out, "  In:  %s\n", rec.In())
		if since, err := timecalc.ClockMinutes(rec.In()); err == nil {
			nowMin := now.Hour()*60 + now.Minute()
			if nowMin >= since {
				fmt.Fprintf(out, "  Elapsed: %s\n", formatElapsed(nowMin-since))
			}
		}
	default:
		fmt.Fprintf(out, "  In:  %s\n", orDash(rec.In()))
		fmt.Fprintf(out, "  Out: %s\n", rec.Out())
		if h, ok := ledger.DayHours(*rec); ok {
			fmt.Fprintf(out, "  Worked: %s\n", timecalc.FormatHours(h))
		}
	}

	year, week := timecalc.WeekOf(now)
	days, err := sess.ledger.GetWeek(ctx, year, week)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Week %s: %s (Mon-Fri)\n",
		timecalc.ISOWeekLabel(year, week), timecalc.FormatHours(ledger.WeekdayTotalHours(days[:])))
	fmt.Fprintf(out, "Storage: %s\n", sess.ledger.Backend())
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatElapsed renders whole minutes as "3h 12m" or "45m".
func formatElapsed(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}
