package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Tiliavir/worklog/internal/model"
	"github.com/Tiliavir/worklog/internal/timecalc"
)

// ExportAll returns every stored record and setting in a Backup stamped
// with the current time.
func (l *Ledger) ExportAll(ctx context.Context) (model.Backup, error) {
	records, err := l.store.GetAll(ctx)
	if err != nil {
		return model.Backup{}, fmt.Errorf("exporting records: %w", err)
	}
	settings, err := l.store.Settings(ctx)
	if err != nil {
		return model.Backup{}, fmt.Errorf("exporting settings: %w", err)
	}
	return model.Backup{
		Records:   records,
		Settings:  settings,
		Timestamp: l.now().UTC(),
	}, nil
}

// ImportAll replaces all records with those in b and upserts its settings.
// The backup is validated first; a malformed backup leaves the store as it
// was. Year and week of each record are recomputed from its date.
func (l *Ledger) ImportAll(ctx context.Context, b model.Backup) error {
	if err := validateBackup(b); err != nil {
		return err
	}
	if err := l.store.Clear(ctx); err != nil {
		return fmt.Errorf("clearing records: %w", err)
	}
	for _, rec := range b.Records {
		if err := l.put(ctx, rec); err != nil {
			return fmt.Errorf("restoring %s: %w", rec.Date, err)
		}
	}
	for _, s := range b.Settings {
		if err := l.store.PutSetting(ctx, s.Key, s.Value); err != nil {
			return fmt.Errorf("restoring setting %s: %w", s.Key, err)
		}
	}
	l.log.Info("backup restored",
		zap.Int("records", len(b.Records)),
		zap.Int("settings", len(b.Settings)))
	return nil
}

func validateBackup(b model.Backup) error {
	seen := make(map[string]bool, len(b.Records))
	for i, rec := range b.Records {
		if _, err := timecalc.ParseDateKey(rec.Date); err != nil {
			return fmt.Errorf("record %d: date %q: %w", i, rec.Date, ErrImportMalformed)
		}
		if seen[rec.Date] {
			return fmt.Errorf("record %d: duplicate date %s: %w", i, rec.Date, ErrImportMalformed)
		}
		seen[rec.Date] = true
		if rec.CheckIn != nil && !timecalc.ValidClock(*rec.CheckIn) {
			return fmt.Errorf("record %s: check-in %q: %w", rec.Date, *rec.CheckIn, ErrImportMalformed)
		}
		if rec.CheckOut != nil && !timecalc.ValidClock(*rec.CheckOut) {
			return fmt.Errorf("record %s: check-out %q: %w", rec.Date, *rec.CheckOut, ErrImportMalformed)
		}
	}
	for i, s := range b.Settings {
		if s.Key == "" {
			return fmt.Errorf("setting %d: empty key: %w", i, ErrImportMalformed)
		}
		if !json.Valid(s.Value) {
			return fmt.Errorf("setting %s: invalid value: %w", s.Key, ErrImportMalformed)
		}
	}
	return nil
}

// EncodeBackup writes b as indented JSON.
func EncodeBackup(w io.Writer, b model.Backup) error {
	if b.Records == nil {
		b.Records = []model.DayRecord{}
	}
	if b.Settings == nil {
		b.Settings = []model.Setting{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return fmt.Errorf("encoding backup: %w", err)
	}
	return nil
}

// DecodeBackup reads a backup envelope. Anything other than a JSON object
// with a records array is rejected with ErrImportMalformed. Missing
// settings decode as none.
func DecodeBackup(r io.Reader) (model.Backup, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return model.Backup{}, fmt.Errorf("reading backup: %w", err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return model.Backup{}, fmt.Errorf("%w: %v", ErrImportMalformed, err)
	}
	rawRecords, ok := envelope["records"]
	if !ok || bytes.Equal(bytes.TrimSpace(rawRecords), []byte("null")) {
		return model.Backup{}, fmt.Errorf("%w: missing records", ErrImportMalformed)
	}

	var b model.Backup
	if err := json.Unmarshal(rawRecords, &b.Records); err != nil {
		return model.Backup{}, fmt.Errorf("%w: records: %v", ErrImportMalformed, err)
	}
	if raw, ok := envelope["settings"]; ok {
		if err := json.Unmarshal(raw, &b.Settings); err != nil {
			return model.Backup{}, fmt.Errorf("%w: settings: %v", ErrImportMalformed, err)
		}
	}
	if raw, ok := envelope["timestamp"]; ok {
		if err := json.Unmarshal(raw, &b.Timestamp); err != nil {
			return model.Backup{}, fmt.Errorf("%w: timestamp: %v", ErrImportMalformed, err)
		}
	}
	return b, nil
}

// Snapshot writes a full backup to path. It is best effort: failures are
// logged at debug level and otherwise ignored.
func (l *Ledger) Snapshot(ctx context.Context, path string) {
	if err := l.writeSnapshot(ctx, path); err != nil {
		l.log.Debug("snapshot skipped", zap.String("path", path), zap.Error(err))
	}
}

func (l *Ledger) writeSnapshot(ctx context.Context, path string) error {
	b, err := l.ExportAll(ctx)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := EncodeBackup(&buf, b); err != nil {
		return err
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
