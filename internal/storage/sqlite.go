package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Tiliavir/worklog/internal/model"
)

const (
	// migration queries
	createDayRecordsTableSQL = `
  CREATE TABLE IF NOT EXISTS day_records (
  date TEXT PRIMARY KEY,
  check_in TEXT,
  check_out TEXT,
  year INTEGER NOT NULL,
  week_number INTEGER NOT NULL
  )`

	createWeekIndexSQL = `
  CREATE INDEX IF NOT EXISTS idx_day_records_week ON day_records (year, week_number)`

	createSettingsTableSQL = `
  CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
  )`

	// record queries
	upsertRecordSQL = `
  INSERT INTO day_records (date, check_in, check_out, year, week_number)
  VALUES (?, ?, ?, ?, ?)
  ON CONFLICT(date) DO UPDATE SET
  check_in = excluded.check_in,
  check_out = excluded.check_out,
  year = excluded.year,
  week_number = excluded.week_number`
	getRecordSQL       = `SELECT date, check_in, check_out, year, week_number FROM day_records WHERE date = ?`
	getWeekRecordsSQL  = `SELECT date, check_in, check_out, year, week_number FROM day_records WHERE year = ? AND week_number = ? ORDER BY date`
	getAllRecordsSQL   = `SELECT date, check_in, check_out, year, week_number FROM day_records ORDER BY date`
	getRecordWeeksSQL  = `SELECT date, year, week_number FROM day_records`
	deleteRecordSQL    = `DELETE FROM day_records WHERE date = ?`
	deleteAllRecordSQL = `DELETE FROM day_records`

	// setting queries
	upsertSettingSQL = `
  INSERT INTO settings (key, value) VALUES (?, ?)
  ON CONFLICT(key) DO UPDATE SET value = excluded.value`
	getSettingSQL     = `SELECT value FROM settings WHERE key = ?`
	getAllSettingsSQL = `SELECT key, value FROM settings ORDER BY key`
)

// SQLiteStore keeps records in an indexed SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating when needed) the database at path and runs the
// migrations. Builds without cgo fail at Ping, which lets Open fall back.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := ensureDir(path); err != nil {
		return nil, unavailable("opening sqlite store", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, unavailable("opening database", err)
	}
	// One connection serialises writers and keeps the file lock simple.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, unavailable("pinging database", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) runMigrations(ctx context.Context) error {
	for _, stmt := range []string{
		createDayRecordsTableSQL,
		createWeekIndexSQL,
		createSettingsTableSQL,
	} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return unavailable("running migrations", err)
		}
	}
	return nil
}

func (s *SQLiteStore) Name() string { return BackendSQLite }

func (s *SQLiteStore) Put(ctx context.Context, rec model.DayRecord) error {
	_, err := s.db.ExecContext(ctx, upsertRecordSQL,
		rec.Date, nullString(rec.CheckIn), nullString(rec.CheckOut), rec.Year, rec.WeekNumber)
	if err != nil {
		return unavailable("saving record "+rec.Date, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, date string) (*model.DayRecord, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, getRecordSQL, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("loading record "+date, err)
	}
	return &rec, nil
}

func (s *SQLiteStore) GetRange(ctx context.Context, year, week int) ([]model.DayRecord, error) {
	return s.query(ctx, "loading week", getWeekRecordsSQL, year, week)
}

func (s *SQLiteStore) GetAll(ctx context.Context) ([]model.DayRecord, error) {
	return s.query(ctx, "loading records", getAllRecordsSQL)
}

func (s *SQLiteStore) query(ctx context.Context, op, query string, args ...any) ([]model.DayRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer rows.Close()

	records := []model.DayRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, unavailable(op, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(op, err)
	}
	return records, nil
}

// DeleteWhere visits every row once inside a single transaction.
func (s *SQLiteStore) DeleteWhere(ctx context.Context, match func(year, week int) bool) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, unavailable("starting transaction", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, getRecordWeeksSQL)
	if err != nil {
		return 0, unavailable("scanning records", err)
	}
	var doomed []string
	for rows.Next() {
		var (
			date       string
			year, week int
		)
		if err := rows.Scan(&date, &year, &week); err != nil {
			rows.Close()
			return 0, unavailable("scanning records", err)
		}
		if match(year, week) {
			doomed = append(doomed, date)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, unavailable("scanning records", err)
	}
	rows.Close()

	for _, date := range doomed {
		if _, err := tx.ExecContext(ctx, deleteRecordSQL, date); err != nil {
			return 0, unavailable("deleting record "+date, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, unavailable("committing delete", err)
	}
	return len(doomed), nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, deleteAllRecordSQL); err != nil {
		return unavailable("clearing records", err)
	}
	return nil
}

func (s *SQLiteStore) PutSetting(ctx context.Context, key string, value json.RawMessage) error {
	if _, err := s.db.ExecContext(ctx, upsertSettingSQL, key, string(value)); err != nil {
		return unavailable("saving setting "+key, err)
	}
	return nil
}

func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (json.RawMessage, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, getSettingSQL, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable("loading setting "+key, err)
	}
	return json.RawMessage(value), true, nil
}

func (s *SQLiteStore) Settings(ctx context.Context) ([]model.Setting, error) {
	rows, err := s.db.QueryContext(ctx, getAllSettingsSQL)
	if err != nil {
		return nil, unavailable("loading settings", err)
	}
	defer rows.Close()

	settings := []model.Setting{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, unavailable("loading settings", err)
		}
		settings = append(settings, model.Setting{Key: key, Value: json.RawMessage(value)})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("loading settings", err)
	}
	return settings, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.DayRecord, error) {
	var (
		rec     model.DayRecord
		in, out sql.NullString
	)
	if err := row.Scan(&rec.Date, &in, &out, &rec.Year, &rec.WeekNumber); err != nil {
		return model.DayRecord{}, err
	}
	if in.Valid {
		rec.CheckIn = &in.String
	}
	if out.Valid {
		rec.CheckOut = &out.String
	}
	return rec, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
