package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Tiliavir/worklog/internal/ledger"
	"github.com/Tiliavir/worklog/internal/model"
	"github.com/Tiliavir/worklog/internal/timecalc"
)

var (
	weekLast   bool
	weekYear   int
	weekNumber int
	weekFormat string
)

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Show the days of a week and the Monday-Friday total",
	Args:  cobra.NoArgs,
	RunE:  runWeek,
}

func init() {
	weekCmd.Flags().BoolVar(&weekLast, "last", false, "Show the previous week")
	weekCmd.Flags().IntVar(&weekYear, "year", 0, "ISO week-numbering year (with --week)")
	weekCmd.Flags().IntVar(&weekNumber, "week", 0, "ISO week number (with --year)")
	weekCmd.Flags().StringVar(&weekFormat, "format", "table", "Output format: table, csv, json")
}

func runWeek(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	now := sess.ledger.Now()

	year, week, err := resolveWeek(now, weekLast, weekYear, weekNumber)
	if err != nil {
		return err
	}
	days, err := sess.ledger.GetWeek(ctx, year, week)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch weekFormat {
	case "csv":
		printWeekCSV(out, days)
	case "json":
		return printWeekJSON(out, year, week, days)
	case "table", "":
		fmt.Fprintf(out, "Week %s\n", timecalc.ISOWeekLabel(year, week))
		fmt.Fprintln(out, renderWeekTable(days, timecalc.DateKey(now)))
	default:
		return fmt.Errorf("unknown format %q: use table, csv or json", weekFormat)
	}
	return nil
}

// resolveWeek picks the week to show: an explicit --year/--week, the
// previous week with --last, or the current week.
func resolveWeek(now time.Time, last bool, year, week int) (int, int, error) {
	switch {
	case year != 0 || week != 0:
		if year == 0 || week == 0 {
			return 0, 0, fmt.Errorf("--year and --week must be given together")
		}
		if week < 1 || week > timecalc.WeeksInYear(year) {
			return 0, 0, fmt.Errorf("week %d out of range for %d (1-%d)", week, year, timecalc.WeeksInYear(year))
		}
		return year, week, nil
	case last:
		y, w := timecalc.WeekOf(now)
		y, w = timecalc.PreviousWeek(y, w)
		return y, w, nil
	default:
		y, w := timecalc.WeekOf(now)
		return y, w, nil
	}
}

// dayRow holds the display values of one day.
type dayRow struct {
	Weekday  string   `json:"weekday"`
	Date     string   `json:"date"`
	CheckIn  *string  `json:"checkIn"`
	CheckOut *string  `json:"checkOut"`
	Hours    *float64 `json:"hours"`
}

func toRow(rec model.DayRecord) dayRow {
	row := dayRow{Date: rec.Date, CheckIn: rec.CheckIn, CheckOut: rec.CheckOut}
	if t, err := timecalc.ParseDateKey(rec.Date); err == nil {
		row.Weekday = t.Weekday().String()[:3]
	}
	if h, ok := ledger.DayHours(rec); ok {
		row.Hours = &h
	}
	return row
}

func (r dayRow) hours() string {
	if r.Hours == nil {
		return "-"
	}
	return timecalc.FormatHours(*r.Hours)
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	todayStyle  = cellStyle.Bold(true)
	totalStyle  = cellStyle.Bold(true)
)

// renderWeekTable renders the seven days plus a total row. today is
// highlighted when it falls in the week.
func renderWeekTable(days [7]model.DayRecord, today string) string {
	rows := make([][]string, 0, len(days)+1)
	todayRow := -1
	for i, rec := range days {
		r := toRow(rec)
		rows = append(rows, []string{r.Weekday, r.Date, orDash(rec.In()), orDash(rec.Out()), r.hours()})
		if rec.Date == today {
			todayRow = i
		}
	}
	total := ledger.WeekdayTotalHours(days[:])
	rows = append(rows, []string{"", "Mon-Fri", "", "", timecalc.FormatHours(total)})
	totalRow := len(rows) - 1

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Day", "Date", "In", "Out", "Hours").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch row {
			case table.HeaderRow:
				return headerStyle
			case todayRow:
				return todayStyle
			case totalRow:
				return totalStyle
			}
			return cellStyle
		})
	return t.String()
}

func printWeekCSV(w io.Writer, days [7]model.DayRecord) {
	fmt.Fprintln(w, "date,weekday,check_in,check_out,hours")
	for _, rec := range days {
		r := toRow(rec)
		hours := ""
		if r.Hours != nil {
			hours = strconv.FormatFloat(*r.Hours, 'f', 1, 64)
		}
		fmt.Fprintf(w, "%s,%s,%s,%s,%s\n",
			csvEscape(r.Date),
			csvEscape(r.Weekday),
			csvEscape(rec.In()),
			csvEscape(rec.Out()),
			hours,
		)
	}
}

type weekReport struct {
	Week         string   `json:"week"`
	Days         []dayRow `json:"days"`
	WeekdayTotal float64  `json:"weekdayTotal"`
}

func printWeekJSON(w io.Writer, year, week int, days [7]model.DayRecord) error {
	report := weekReport{
		Week:         timecalc.ISOWeekLabel(year, week),
		Days:         make([]dayRow, 0, len(days)),
		WeekdayTotal: ledger.WeekdayTotalHours(days[:]),
	}
	for _, rec := range days {
		report.Days = append(report.Days, toRow(rec))
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("error encoding JSON: %w", err)
	}
	return nil
}

// csvEscape wraps a field in quotes if it contains a comma, quote, or newline.
func csvEscape(s string) string {
	if !strings.ContainsAny(s, ",\"\r\n") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
