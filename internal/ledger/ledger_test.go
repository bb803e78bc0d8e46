package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Tiliavir/worklog/internal/ledger"
	"github.com/Tiliavir/worklog/internal/model"
	"github.com/Tiliavir/worklog/internal/storage"
)

func strPtr(s string) *string { return &s }

func fixedClock(year int, month time.Month, day int) func() time.Time {
	return func() time.Time {
		return time.Date(year, month, day, 18, 10, 0, 0, time.UTC)
	}
}

func newLedger(t *testing.T, now func() time.Time) *ledger.Ledger {
	t.Helper()
	return ledger.New(storage.NewMemory(), ledger.WithClock(now))
}

func TestCheckInCheckOutWeekTotal(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, fixedClock(2025, time.May, 1))

	if err := l.RecordCheckIn(ctx, "2025-05-01", "09:05"); err != nil {
		t.Fatalf("RecordCheckIn: %v", err)
	}
	if err := l.RecordCheckOut(ctx, "2025-05-01", "18:10"); err != nil {
		t.Fatalf("RecordCheckOut: %v", err)
	}

	rec, err := l.Get(ctx, "2025-05-01")
	if err != nil || rec == nil {
		t.Fatalf("Get: %v, %v", rec, err)
	}
	if rec.Year != 2025 || rec.WeekNumber != 18 {
		t.Errorf("record week = (%d, %d), want (2025, 18)", rec.Year, rec.WeekNumber)
	}

	days, err := l.GetWeek(ctx, 2025, 18)
	if err != nil {
		t.Fatalf("GetWeek: %v", err)
	}
	if days[0].Date != "2025-04-28" || days[6].Date != "2025-05-04" {
		t.Errorf("GetWeek range = %s..%s, want 2025-04-28..2025-05-04", days[0].Date, days[6].Date)
	}
	if days[3].In() != "09:05" || days[3].Out() != "18:10" {
		t.Errorf("Thursday = %s/%s, want 09:05/18:10", days[3].In(), days[3].Out())
	}
	if days[0].CheckIn != nil || days[0].Year != 2025 || days[0].WeekNumber != 18 {
		t.Errorf("placeholder Monday = %+v", days[0])
	}

	if got := ledger.WeekdayTotalHours(days[:]); got != 8.6 {
		t.Errorf("WeekdayTotalHours = %v, want 8.6", got)
	}
}

func TestRecordCheckInTwice(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, fixedClock(2025, time.May, 1))

	if err := l.RecordCheckIn(ctx, "2025-05-01", "09:05"); err != nil {
		t.Fatalf("RecordCheckIn: %v", err)
	}
	err := l.RecordCheckIn(ctx, "2025-05-01", "10:00")
	if !errors.Is(err, ledger.ErrAlreadyCheckedIn) {
		t.Fatalf("second RecordCheckIn error = %v, want ErrAlreadyCheckedIn", err)
	}

	rec, _ := l.Get(ctx, "2025-05-01")
	if rec.In() != "09:05" {
		t.Errorf("CheckIn after rejected retry = %q, want 09:05", rec.In())
	}
}

func TestRecordCheckOutOverwrites(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, fixedClock(2025, time.May, 1))

	// Check-out without a check-in creates the record.
	if err := l.RecordCheckOut(ctx, "2025-05-02", "17:00"); err != nil {
		t.Fatalf("RecordCheckOut: %v", err)
	}
	if err := l.RecordCheckOut(ctx, "2025-05-02", "18:00"); err != nil {
		t.Fatalf("RecordCheckOut (again): %v", err)
	}
	rec, err := l.Get(ctx, "2025-05-02")
	if err != nil || rec == nil {
		t.Fatalf("Get: %v, %v", rec, err)
	}
	if rec.CheckIn != nil {
		t.Errorf("CheckIn = %q, want nil", *rec.CheckIn)
	}
	if rec.Out() != "18:00" {
		t.Errorf("CheckOut = %q, want 18:00", rec.Out())
	}
	if _, ok := ledger.DayHours(*rec); ok {
		t.Error("DayHours ok = true for a record without check-in")
	}
}

func TestInvalidInput(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, fixedClock(2025, time.May, 1))

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{"check-in bad time", func() error { return l.RecordCheckIn(ctx, "2025-05-01", "9:05") }, ledger.ErrInvalidTimeFormat},
		{"check-out bad time", func() error { return l.RecordCheckOut(ctx, "2025-05-01", "25:00") }, ledger.ErrInvalidTimeFormat},
		{"edit bad time", func() error { return l.EditField(ctx, "2025-05-01", ledger.CheckIn, "09:60") }, ledger.ErrInvalidTimeFormat},
		{"check-in bad date", func() error { return l.RecordCheckIn(ctx, "2025-5-1", "09:05") }, ledger.ErrInvalidDate},
		{"clear bad date", func() error { return l.ClearField(ctx, "yesterday", ledger.CheckOut) }, ledger.ErrInvalidDate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := l.Get(ctx, "2025/05/01"); !errors.Is(err, ledger.ErrInvalidDate) {
		t.Errorf("Get bad date error = %v, want ErrInvalidDate", err)
	}
}

func TestEditAndClearField(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, fixedClock(2025, time.May, 1))

	if err := l.RecordCheckIn(ctx, "2025-05-01", "09:05"); err != nil {
		t.Fatal(err)
	}
	if err := l.EditField(ctx, "2025-05-01", ledger.CheckIn, "08:30"); err != nil {
		t.Fatalf("EditField: %v", err)
	}
	if err := l.EditField(ctx, "2025-05-01", ledger.CheckOut, "17:00"); err != nil {
		t.Fatalf("EditField: %v", err)
	}
	rec, _ := l.Get(ctx, "2025-05-01")
	if rec.In() != "08:30" || rec.Out() != "17:00" {
		t.Errorf("after edit = %s/%s, want 08:30/17:00", rec.In(), rec.Out())
	}

	if err := l.ClearField(ctx, "2025-05-01", ledger.CheckIn); err != nil {
		t.Fatalf("ClearField: %v", err)
	}
	rec, _ = l.Get(ctx, "2025-05-01")
	if rec.CheckIn != nil {
		t.Errorf("CheckIn after clear = %q, want nil", *rec.CheckIn)
	}

	// A cleared check-in can be recorded again.
	if err := l.RecordCheckIn(ctx, "2025-05-01", "09:00"); err != nil {
		t.Errorf("RecordCheckIn after clear: %v", err)
	}
}

func TestParseField(t *testing.T) {
	tests := []struct {
		input   string
		want    ledger.Field
		wantErr bool
	}{
		{"in", ledger.CheckIn, false},
		{"checkIn", ledger.CheckIn, false},
		{"out", ledger.CheckOut, false},
		{"check-out", ledger.CheckOut, false},
		{"lunch", 0, true},
	}
	for _, tt := range tests {
		got, err := ledger.ParseField(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseField(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseField(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestWeekdayTotalHours(t *testing.T) {
	records := []model.DayRecord{
		{Date: "2025-04-28", CheckIn: strPtr("09:00"), CheckOut: strPtr("18:00")}, // Mon 8.5
		{Date: "2025-04-29", CheckIn: strPtr("08:00"), CheckOut: strPtr("20:00")}, // Tue 10.5
		{Date: "2025-04-30", CheckIn: strPtr("09:00")},                           // Wed incomplete
		{Date: "2025-05-01", CheckIn: strPtr("09:05"), CheckOut: strPtr("18:10")}, // Thu 8.6
		{Date: "2025-05-02", CheckIn: strPtr("11:35"), CheckOut: strPtr("11:55")}, // Fri 0
		{Date: "2025-05-03", CheckIn: strPtr("09:00"), CheckOut: strPtr("18:00")}, // Sat excluded
		{Date: "2025-05-04", CheckIn: strPtr("09:00"), CheckOut: strPtr("18:00")}, // Sun excluded
	}
	if got := ledger.WeekdayTotalHours(records); got != 27.6 {
		t.Errorf("WeekdayTotalHours = %v, want 27.6", got)
	}
	if got := ledger.WeekdayTotalHours(nil); got != 0 {
		t.Errorf("WeekdayTotalHours(nil) = %v, want 0", got)
	}
}

func seed(t *testing.T, l *ledger.Ledger, dates ...string) {
	t.Helper()
	ctx := context.Background()
	for _, d := range dates {
		if err := l.RecordCheckIn(ctx, d, "09:00"); err != nil {
			t.Fatalf("seeding %s: %v", d, err)
		}
	}
}

func TestPruneRetention(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, fixedClock(2025, time.May, 1))
	seed(t, l,
		"2025-05-01", // current week 18
		"2025-04-22", // previous week 17
		"2025-04-15", // week 16
		"2024-12-30", // week 1 of 2025
	)

	n, err := l.PruneRetention(ctx)
	if err != nil {
		t.Fatalf("PruneRetention: %v", err)
	}
	if n != 2 {
		t.Errorf("PruneRetention removed %d, want 2", n)
	}

	n, err = l.PruneRetention(ctx)
	if err != nil {
		t.Fatalf("PruneRetention (again): %v", err)
	}
	if n != 0 {
		t.Errorf("second PruneRetention removed %d, want 0", n)
	}

	for _, d := range []string{"2025-05-01", "2025-04-22"} {
		if rec, _ := l.Get(ctx, d); rec == nil {
			t.Errorf("%s pruned, want kept", d)
		}
	}
}

func TestPruneRetentionAcrossYearBoundary(t *testing.T) {
	ctx := context.Background()
	// 2021-01-06 is in 2021-W01; the previous week is 2020-W53.
	l := newLedger(t, fixedClock(2021, time.January, 6))
	seed(t, l, "2021-01-06", "2020-12-31", "2020-12-24")

	n, err := l.PruneRetention(ctx)
	if err != nil {
		t.Fatalf("PruneRetention: %v", err)
	}
	if n != 1 {
		t.Errorf("PruneRetention removed %d, want 1", n)
	}
	if rec, _ := l.Get(ctx, "2020-12-31"); rec == nil {
		t.Error("2020-12-31 (2020-W53) pruned, want kept")
	}
	if rec, _ := l.Get(ctx, "2020-12-24"); rec != nil {
		t.Error("2020-12-24 (2020-W52) kept, want pruned")
	}
}

func TestPruneKeepsSettings(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, fixedClock(2025, time.May, 1))
	if err := l.PutSetting(ctx, "drive.fileId", "abc"); err != nil {
		t.Fatal(err)
	}
	seed(t, l, "2024-01-01")
	if _, err := l.PruneRetention(ctx); err != nil {
		t.Fatal(err)
	}
	var id string
	ok, err := l.GetSetting(ctx, "drive.fileId", &id)
	if err != nil || !ok || id != "abc" {
		t.Errorf("GetSetting after prune = %q, %v, %v", id, ok, err)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	l := newLedger(t, fixedClock(2025, time.May, 1))

	type creds struct {
		ClientID string `json:"clientId"`
	}
	var got creds
	ok, err := l.GetSetting(ctx, "drive.credentials", &got)
	if err != nil || ok {
		t.Fatalf("GetSetting on empty = %v, %v", ok, err)
	}

	if err := l.PutSetting(ctx, "drive.credentials", creds{ClientID: "id-1"}); err != nil {
		t.Fatalf("PutSetting: %v", err)
	}
	ok, err = l.GetSetting(ctx, "drive.credentials", &got)
	if err != nil || !ok {
		t.Fatalf("GetSetting = %v, %v", ok, err)
	}
	if got.ClientID != "id-1" {
		t.Errorf("ClientID = %q, want id-1", got.ClientID)
	}
}

// failingStore reports every write as a storage failure.
type failingStore struct {
	*storage.MemoryStore
}

func (failingStore) Put(context.Context, model.DayRecord) error {
	return fmt.Errorf("saving record: %w", storage.ErrUnavailable)
}

func TestStorageErrorsAreWrapped(t *testing.T) {
	l := ledger.New(failingStore{storage.NewMemory()})
	err := l.RecordCheckIn(context.Background(), "2025-05-01", "09:05")
	if !errors.Is(err, ledger.ErrStorageUnavailable) {
		t.Errorf("error = %v, want ErrStorageUnavailable", err)
	}
}

func TestBackendName(t *testing.T) {
	l := newLedger(t, time.Now)
	if got := l.Backend(); got != storage.BackendMemory {
		t.Errorf("Backend = %q, want %q", got, storage.BackendMemory)
	}
}
