// Package ledger records daily check-in and check-out times on top of a
// storage backend, computes weekly totals and enforces retention.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Tiliavir/worklog/internal/model"
	"github.com/Tiliavir/worklog/internal/storage"
	"github.com/Tiliavir/worklog/internal/timecalc"
)

// Field names one of the two editable times of a day.
type Field int

const (
	CheckIn Field = iota
	CheckOut
)

func (f Field) String() string {
	if f == CheckOut {
		return "checkOut"
	}
	return "checkIn"
}

// ParseField accepts "in"/"checkIn" and "out"/"checkOut".
func ParseField(s string) (Field, error) {
	switch s {
	case "in", "checkIn", "check-in":
		return CheckIn, nil
	case "out", "checkOut", "check-out":
		return CheckOut, nil
	}
	return 0, fmt.Errorf("unknown field %q: use in or out", s)
}

// Ledger is the single entry point for reading and writing day records.
type Ledger struct {
	store storage.Backend
	now   func() time.Time
	log   *zap.Logger
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLogger sets the logger used for debug and retention messages.
func WithLogger(log *zap.Logger) Option {
	return func(l *Ledger) {
		if log != nil {
			l.log = log
		}
	}
}

// New returns a Ledger over store.
func New(store storage.Backend, opts ...Option) *Ledger {
	l := &Ledger{
		store: store,
		now:   time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Backend returns the name of the selected storage backend.
func (l *Ledger) Backend() string {
	return l.store.Name()
}

// Now returns the ledger's current time.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// Close releases the storage backend.
func (l *Ledger) Close() error {
	return l.store.Close()
}

// RecordCheckIn sets the check-in of date. A day that already has a
// check-in is rejected with ErrAlreadyCheckedIn.
func (l *Ledger) RecordCheckIn(ctx context.Context, date, clock string) error {
	if !timecalc.ValidClock(clock) {
		return fmt.Errorf("check-in %q: %w", clock, ErrInvalidTimeFormat)
	}
	rec, err := l.load(ctx, date)
	if err != nil {
		return err
	}
	if rec.CheckIn != nil {
		return fmt.Errorf("%s at %s: %w", date, *rec.CheckIn, ErrAlreadyCheckedIn)
	}
	rec.CheckIn = &clock
	return l.put(ctx, rec)
}

// RecordCheckOut sets the check-out of date, overwriting any previous value.
func (l *Ledger) RecordCheckOut(ctx context.Context, date, clock string) error {
	if !timecalc.ValidClock(clock) {
		return fmt.Errorf("check-out %q: %w", clock, ErrInvalidTimeFormat)
	}
	rec, err := l.load(ctx, date)
	if err != nil {
		return err
	}
	rec.CheckOut = &clock
	return l.put(ctx, rec)
}

// EditField overwrites one time of date. The record is created if missing.
func (l *Ledger) EditField(ctx context.Context, date string, field Field, value string) error {
	if !timecalc.ValidClock(value) {
		return fmt.Errorf("%s %q: %w", field, value, ErrInvalidTimeFormat)
	}
	return l.setField(ctx, date, field, &value)
}

// ClearField resets one time of date to null.
func (l *Ledger) ClearField(ctx context.Context, date string, field Field) error {
	return l.setField(ctx, date, field, nil)
}

func (l *Ledger) setField(ctx context.Context, date string, field Field, value *string) error {
	rec, err := l.load(ctx, date)
	if err != nil {
		return err
	}
	if field == CheckOut {
		rec.CheckOut = value
	} else {
		rec.CheckIn = value
	}
	return l.put(ctx, rec)
}

// Get returns the record of date, or nil when none exists.
func (l *Ledger) Get(ctx context.Context, date string) (*model.DayRecord, error) {
	if _, err := timecalc.ParseDateKey(date); err != nil {
		return nil, fmt.Errorf("%q: %w", date, ErrInvalidDate)
	}
	return l.store.Get(ctx, date)
}

// GetWeek returns the seven days of ISO week (year, week), Monday first.
// Days without a stored record are returned as placeholders with no times.
func (l *Ledger) GetWeek(ctx context.Context, year, week int) ([7]model.DayRecord, error) {
	var days [7]model.DayRecord
	stored, err := l.store.GetRange(ctx, year, week)
	if err != nil {
		return days, err
	}
	byDate := make(map[string]model.DayRecord, len(stored))
	for _, r := range stored {
		byDate[r.Date] = r
	}
	for i, date := range timecalc.WeekDates(year, week) {
		if r, ok := byDate[date]; ok {
			days[i] = r
			continue
		}
		days[i] = model.DayRecord{Date: date, Year: year, WeekNumber: week}
	}
	return days, nil
}

// DayHours returns the net hours worked on rec, or ok=false when either time
// is missing.
func DayHours(rec model.DayRecord) (float64, bool) {
	return timecalc.WorkHours(rec.In(), rec.Out())
}

// WeekdayTotalHours sums the hours of the Monday to Friday records. Days
// without both times, and days with a non-positive result, count as zero.
func WeekdayTotalHours(records []model.DayRecord) float64 {
	var total float64
	for _, r := range records {
		t, err := timecalc.ParseDateKey(r.Date)
		if err != nil || !timecalc.IsWeekday(t) {
			continue
		}
		if h, ok := DayHours(r); ok && h > 0 {
			total += h
		}
	}
	return timecalc.RoundTenths(total)
}

// PruneRetention deletes every record outside the current and the previous
// ISO week and returns how many were removed. Settings are never pruned.
func (l *Ledger) PruneRetention(ctx context.Context) (int, error) {
	year, week := timecalc.WeekOf(l.now())
	prevYear, prevWeek := timecalc.PreviousWeek(year, week)

	n, err := l.store.DeleteWhere(ctx, func(y, w int) bool {
		return !(y == year && w == week) && !(y == prevYear && w == prevWeek)
	})
	if err != nil {
		return 0, fmt.Errorf("pruning records: %w", err)
	}
	if n > 0 {
		l.log.Info("pruned records outside retention window",
			zap.Int("removed", n),
			zap.String("current", timecalc.ISOWeekLabel(year, week)),
			zap.String("previous", timecalc.ISOWeekLabel(prevYear, prevWeek)))
	}
	return n, nil
}

// GetSetting decodes the setting key into v. ok is false when it is not set.
func (l *Ledger) GetSetting(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := l.store.GetSetting(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decoding setting %s: %w", key, err)
	}
	return true, nil
}

// PutSetting stores v as JSON under key, overwriting any previous value.
func (l *Ledger) PutSetting(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding setting %s: %w", key, err)
	}
	return l.store.PutSetting(ctx, key, raw)
}

// load returns the stored record of date or an empty one.
func (l *Ledger) load(ctx context.Context, date string) (model.DayRecord, error) {
	if _, err := timecalc.ParseDateKey(date); err != nil {
		return model.DayRecord{}, fmt.Errorf("%q: %w", date, ErrInvalidDate)
	}
	rec, err := l.store.Get(ctx, date)
	if err != nil {
		return model.DayRecord{}, err
	}
	if rec == nil {
		return model.DayRecord{Date: date}, nil
	}
	return *rec, nil
}

// put stamps the ISO week of rec and writes it. Callers' Year and
// WeekNumber are ignored.
func (l *Ledger) put(ctx context.Context, rec model.DayRecord) error {
	year, week, err := timecalc.WeekOfKey(rec.Date)
	if err != nil {
		return fmt.Errorf("%q: %w", rec.Date, ErrInvalidDate)
	}
	rec.Year, rec.WeekNumber = year, week
	if err := l.store.Put(ctx, rec); err != nil {
		return err
	}
	l.log.Debug("record saved",
		zap.String("date", rec.Date),
		zap.String("checkIn", rec.In()),
		zap.String("checkOut", rec.Out()))
	return nil
}
