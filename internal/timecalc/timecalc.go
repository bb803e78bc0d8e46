package timecalc

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"time"
)

// DateLayout is the layout of a day key, e.g. "2025-05-01".
const DateLayout = "2006-01-02"

// ClockLayout is the layout of a time of day, e.g. "09:05".
const ClockLayout = "15:04"

const (
	lunchStart = 11*60 + 30
	lunchEnd   = 12 * 60

	// Past this many worked minutes a flat dinner break is deducted.
	dinnerThreshold = 11 * 60
	dinnerBreak     = 60

	minutesPerDay = 24 * 60
)

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// DateKey formats the local calendar date of t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateKey parses a YYYY-MM-DD day key into midnight UTC of that date.
// Only the calendar date is meaningful in the result.
func ParseDateKey(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", s)
	}
	return t, nil
}

// Clock returns the HH:MM time of day of t.
func Clock(t time.Time) string {
	return t.Format(ClockLayout)
}

// ValidClock reports whether s is a 24-hour HH:MM time of day.
func ValidClock(s string) bool {
	return clockPattern.MatchString(s)
}

// ClockMinutes converts an HH:MM time of day into minutes since midnight.
func ClockMinutes(s string) (int, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hh, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return hh*60 + mm, nil
}

// WeekOf returns the ISO-8601 week-numbering year and week of t.
func WeekOf(t time.Time) (int, int) {
	return t.ISOWeek()
}

// WeekOfKey is WeekOf for a YYYY-MM-DD day key.
func WeekOfKey(date string) (int, int, error) {
	t, err := ParseDateKey(date)
	if err != nil {
		return 0, 0, err
	}
	year, week := t.ISOWeek()
	return year, week, nil
}

// WeeksInYear returns the number of ISO weeks (52 or 53) in year.
func WeeksInYear(year int) int {
	_, week := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).ISOWeek()
	if week == 1 {
		// Dec 31 already belongs to next year's first week.
		_, week = time.Date(year, time.December, 24, 0, 0, 0, 0, time.UTC).ISOWeek()
	}
	return week
}

// PreviousWeek returns the ISO week before (year, week).
func PreviousWeek(year, week int) (int, int) {
	if week <= 1 {
		return year - 1, WeeksInYear(year - 1)
	}
	return year, week - 1
}

// WeekStart returns the Monday (midnight UTC) of ISO week (year, week).
// January 4th always falls into week 1.
func WeekStart(year, week int) time.Time {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	wd := int(jan4.Weekday())
	if wd == 0 {
		wd = 7 // treat Sunday as 7 (ISO)
	}
	return jan4.AddDate(0, 0, -(wd-1)+(week-1)*7)
}

// WeekDates returns the seven day keys of ISO week (year, week), Monday first.
func WeekDates(year, week int) [7]string {
	var dates [7]string
	monday := WeekStart(year, week)
	for i := range dates {
		dates[i] = DateKey(monday.AddDate(0, 0, i))
	}
	return dates
}

// IsWeekday reports whether t falls on Monday through Friday.
func IsWeekday(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// WorkHours returns the hours worked between checkIn and checkOut net of
// breaks, rounded half-up to one decimal. ok is false when either side is
// empty or not a valid HH:MM time.
//
// A check-out earlier than the check-in is an overnight shift. The 11:30-12:00
// lunch window is carved out based on the raw check-in/check-out minutes, and
// a further hour is deducted once the remaining total exceeds eleven hours.
// The result is not clamped.
func WorkHours(checkIn, checkOut string) (hours float64, ok bool) {
	if checkIn == "" || checkOut == "" {
		return 0, false
	}
	in, err := ClockMinutes(checkIn)
	if err != nil {
		return 0, false
	}
	out, err := ClockMinutes(checkOut)
	if err != nil {
		return 0, false
	}

	total := out - in
	if total < 0 {
		total += minutesPerDay
	}

	switch {
	case in <= lunchStart && out >= lunchEnd:
		total -= lunchEnd - lunchStart
	case in <= lunchStart && out > lunchStart && out < lunchEnd:
		total -= out - lunchStart
	case in >= lunchStart && in < lunchEnd && out >= lunchEnd:
		total -= lunchEnd - in
	case in >= lunchStart && in <= lunchEnd && out >= lunchStart && out <= lunchEnd:
		total = 0
	}

	if total > dinnerThreshold {
		total -= dinnerBreak
	}

	// total/6 is the exact number of tenths of an hour.
	return math.Floor(float64(total)/6+0.5) / 10, true
}

// RoundTenths rounds v half-up at the first decimal. It is used when summing
// WorkHours results to drop floating point noise.
func RoundTenths(v float64) float64 {
	return math.Floor(v*10+0.5) / 10
}

// FormatHours formats hours like "8.5h".
func FormatHours(h float64) string {
	return strconv.FormatFloat(h, 'f', 1, 64) + "h"
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(year, week int) string {
	return fmt.Sprintf("%d-W%02d", year, week)
}
