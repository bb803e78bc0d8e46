package timecalc_test

import (
	"testing"
	"time"

	"github.com/Tiliavir/worklog/internal/timecalc"
)

func TestWorkHours(t *testing.T) {
	tests := []struct {
		in, out string
		want    float64
	}{
		{"09:00", "18:00", 8.5},
		{"08:00", "20:00", 10.5},
		{"22:00", "06:00", 8.0},
		{"09:05", "18:10", 8.6},
		{"09:00", "11:45", 2.5},  // leaves during lunch
		{"11:45", "17:00", 5.0},  // arrives during lunch
		{"11:35", "11:55", 0},    // both inside the lunch window
		{"13:00", "17:00", 4.0},  // no overlap
		{"07:00", "18:30", 11.0}, // 660 min after lunch, no dinner break
		{"07:00", "19:00", 10.5}, // 690 min after lunch, dinner break
		{"06:00", "20:00", 12.5},
		{"09:00", "09:03", 0.1},  // 0.05h rounds half up
		{"09:00", "09:00", 0},
	}
	for _, tt := range tests {
		got, ok := timecalc.WorkHours(tt.in, tt.out)
		if !ok {
			t.Errorf("WorkHours(%q, %q) ok = false, want true", tt.in, tt.out)
			continue
		}
		if got != tt.want {
			t.Errorf("WorkHours(%q, %q) = %v, want %v", tt.in, tt.out, got, tt.want)
		}
	}
}

func TestWorkHoursMissingSide(t *testing.T) {
	tests := []struct {
		in, out string
	}{
		{"", "18:00"},
		{"09:00", ""},
		{"", ""},
		{"9:00", "18:00"},
		{"09:00", "24:00"},
	}
	for _, tt := range tests {
		if _, ok := timecalc.WorkHours(tt.in, tt.out); ok {
			t.Errorf("WorkHours(%q, %q) ok = true, want false", tt.in, tt.out)
		}
	}
}

func TestWorkHoursDeterministic(t *testing.T) {
	for in := 0; in < 24*60; in += 7 {
		for out := 0; out < 24*60; out += 11 {
			a := clock(in)
			b := clock(out)
			first, _ := timecalc.WorkHours(a, b)
			second, _ := timecalc.WorkHours(a, b)
			if first != second {
				t.Fatalf("WorkHours(%q, %q) not deterministic: %v vs %v", a, b, first, second)
			}
			if first < 0 {
				t.Fatalf("WorkHours(%q, %q) = %v, want non-negative", a, b, first)
			}
		}
	}
}

func clock(minutes int) string {
	return time.Date(2025, 1, 1, minutes/60, minutes%60, 0, 0, time.UTC).Format(timecalc.ClockLayout)
}

func TestValidClock(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"00:00", true},
		{"09:05", true},
		{"23:59", true},
		{"24:00", false},
		{"9:05", false},
		{"09:60", false},
		{"09:5", false},
		{"0905", false},
		{"", false},
		{" 09:05", false},
	}
	for _, tt := range tests {
		if got := timecalc.ValidClock(tt.input); got != tt.want {
			t.Errorf("ValidClock(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWeekOfKey(t *testing.T) {
	tests := []struct {
		date       string
		year, week int
	}{
		{"2025-05-01", 2025, 18},
		{"2024-12-30", 2025, 1},  // Dec 30 in week 1 of next year
		{"2021-01-01", 2020, 53}, // Jan 1 in week 53 of previous year
		{"2022-01-02", 2021, 52},
		{"2026-02-27", 2026, 9},
		{"2026-01-01", 2026, 1},
	}
	for _, tt := range tests {
		year, week, err := timecalc.WeekOfKey(tt.date)
		if err != nil {
			t.Fatalf("WeekOfKey(%q): %v", tt.date, err)
		}
		if year != tt.year || week != tt.week {
			t.Errorf("WeekOfKey(%q) = (%d, %d), want (%d, %d)", tt.date, year, week, tt.year, tt.week)
		}
	}
}

func TestWeekOfKeyInvalid(t *testing.T) {
	for _, s := range []string{"", "2025-13-01", "2025-5-1", "01.05.2025"} {
		if _, _, err := timecalc.WeekOfKey(s); err == nil {
			t.Errorf("WeekOfKey(%q) expected error", s)
		}
	}
}

func TestWeeksInYear(t *testing.T) {
	tests := []struct {
		year int
		want int
	}{
		{2015, 53},
		{2019, 52},
		{2020, 53},
		{2021, 52},
		{2024, 52},
		{2026, 53},
	}
	for _, tt := range tests {
		if got := timecalc.WeeksInYear(tt.year); got != tt.want {
			t.Errorf("WeeksInYear(%d) = %d, want %d", tt.year, got, tt.want)
		}
	}
}

func TestPreviousWeek(t *testing.T) {
	tests := []struct {
		year, week         int
		wantYear, wantWeek int
	}{
		{2025, 18, 2025, 17},
		{2025, 1, 2024, 52},
		{2021, 1, 2020, 53},
	}
	for _, tt := range tests {
		y, w := timecalc.PreviousWeek(tt.year, tt.week)
		if y != tt.wantYear || w != tt.wantWeek {
			t.Errorf("PreviousWeek(%d, %d) = (%d, %d), want (%d, %d)",
				tt.year, tt.week, y, w, tt.wantYear, tt.wantWeek)
		}
	}
}

func TestPreviousWeekStaysInRange(t *testing.T) {
	year, week := 2027, 10
	for i := 0; i < 400; i++ {
		year, week = timecalc.PreviousWeek(year, week)
		if week < 1 || week > timecalc.WeeksInYear(year) {
			t.Fatalf("step %d: week %d out of range for %d", i, week, year)
		}
		// Walking back one week must agree with the calendar.
		monday := timecalc.WeekStart(year, week)
		y, w := monday.ISOWeek()
		if y != year || w != week {
			t.Fatalf("step %d: WeekStart(%d, %d) = %s is in (%d, %d)", i, year, week, monday, y, w)
		}
	}
}

func TestWeekDates(t *testing.T) {
	got := timecalc.WeekDates(2025, 18)
	want := [7]string{
		"2025-04-28", "2025-04-29", "2025-04-30", "2025-05-01",
		"2025-05-02", "2025-05-03", "2025-05-04",
	}
	if got != want {
		t.Errorf("WeekDates(2025, 18) = %v, want %v", got, want)
	}

	got = timecalc.WeekDates(2020, 53)
	if got[0] != "2020-12-28" || got[6] != "2021-01-03" {
		t.Errorf("WeekDates(2020, 53) = %v", got)
	}
}

func TestDateKey(t *testing.T) {
	ts := time.Date(2025, 5, 1, 23, 59, 0, 0, time.Local)
	if got := timecalc.DateKey(ts); got != "2025-05-01" {
		t.Errorf("DateKey = %q, want %q", got, "2025-05-01")
	}
	if got := timecalc.Clock(ts); got != "23:59" {
		t.Errorf("Clock = %q, want %q", got, "23:59")
	}
}

func TestFormatHours(t *testing.T) {
	tests := []struct {
		hours float64
		want  string
	}{
		{0, "0.0h"},
		{8.5, "8.5h"},
		{41.26, "41.3h"},
		{10, "10.0h"},
	}
	for _, tt := range tests {
		if got := timecalc.FormatHours(tt.hours); got != tt.want {
			t.Errorf("FormatHours(%v) = %q, want %q", tt.hours, got, tt.want)
		}
	}
}

func TestISOWeekLabel(t *testing.T) {
	if got := timecalc.ISOWeekLabel(2026, 9); got != "2026-W09" {
		t.Errorf("ISOWeekLabel = %q, want %q", got, "2026-W09")
	}
}
