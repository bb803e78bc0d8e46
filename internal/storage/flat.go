package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/Tiliavir/worklog/internal/model"
)

// FlatStore keeps the whole ledger in a single JSON file. Every mutation
// rewrites the file atomically.
type FlatStore struct {
	path string

	mu   sync.Mutex
	data flatFile
}

// flatFile is the on-disk layout of a FlatStore.
type flatFile struct {
	Records  map[string]model.DayRecord `json:"records"`
	Settings map[string]json.RawMessage `json:"settings"`
}

// OpenFlat loads the file at path, creating it when missing. A file that
// cannot be parsed is renamed to path+".corrupt" and an error is returned.
func OpenFlat(path string) (*FlatStore, error) {
	s := &FlatStore{path: path}
	if err := ensureDir(path); err != nil {
		return nil, unavailable("opening flat store", err)
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.data = flatFile{}
		s.data.init()
		// Write the empty file now so an unwritable directory is detected
		// while the fallback chain can still move on.
		if err := s.save(s.data); err != nil {
			return nil, err
		}
		return s, nil
	case err != nil:
		return nil, unavailable("reading "+path, err)
	}

	var f flatFile
	if err := json.Unmarshal(data, &f); err != nil {
		backupPath := path + ".corrupt"
		_ = os.Rename(path, backupPath)
		return nil, unavailable(
			fmt.Sprintf("corrupt JSON in %s (backed up to %s)", path, backupPath), err)
	}
	f.init()
	s.data = f
	return s, nil
}

func (f *flatFile) init() {
	if f.Records == nil {
		f.Records = make(map[string]model.DayRecord)
	}
	if f.Settings == nil {
		f.Settings = make(map[string]json.RawMessage)
	}
}

func (f flatFile) clone() flatFile {
	out := flatFile{
		Records:  make(map[string]model.DayRecord, len(f.Records)),
		Settings: make(map[string]json.RawMessage, len(f.Settings)),
	}
	for k, v := range f.Records {
		out.Records[k] = cloneRecord(v)
	}
	for k, v := range f.Settings {
		out.Settings[k] = v
	}
	return out
}

// save atomically writes f: write to a temp file then rename.
func (s *FlatStore) save(f flatFile) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return unavailable("marshalling JSON", err)
	}
	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return unavailable("writing temp file", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return unavailable("renaming temp file", err)
	}
	return nil
}

// commit applies mutate to a copy of the current state and swaps it in only
// after the copy has been written.
func (s *FlatStore) commit(ctx context.Context, mutate func(*flatFile)) error {
	if err := ctx.Err(); err != nil {
		return unavailable("flat store", err)
	}
	next := s.data.clone()
	mutate(&next)
	if err := s.save(next); err != nil {
		return err
	}
	s.data = next
	return nil
}

func (s *FlatStore) Name() string { return BackendFlat }

// Path returns the backing file.
func (s *FlatStore) Path() string { return s.path }

func (s *FlatStore) Put(ctx context.Context, rec model.DayRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, func(f *flatFile) {
		f.Records[rec.Date] = cloneRecord(rec)
	})
}

func (s *FlatStore) Get(_ context.Context, date string) (*model.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.data.Records[date]
	if !ok {
		return nil, nil
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (s *FlatStore) GetRange(_ context.Context, year, week int) ([]model.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterRecords(s.data.Records, func(r model.DayRecord) bool {
		return r.Year == year && r.WeekNumber == week
	}), nil
}

func (s *FlatStore) GetAll(_ context.Context) ([]model.DayRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return filterRecords(s.data.Records, nil), nil
}

func (s *FlatStore) DeleteWhere(ctx context.Context, match func(year, week int) bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.data.Records {
		if match(r.Year, r.WeekNumber) {
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	err := s.commit(ctx, func(f *flatFile) {
		for date, r := range f.Records {
			if match(r.Year, r.WeekNumber) {
				delete(f.Records, date)
			}
		}
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *FlatStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, func(f *flatFile) {
		f.Records = make(map[string]model.DayRecord)
	})
}

func (s *FlatStore) PutSetting(ctx context.Context, key string, value json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, func(f *flatFile) {
		f.Settings[key] = append(json.RawMessage(nil), value...)
	})
}

func (s *FlatStore) GetSetting(_ context.Context, key string) (json.RawMessage, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data.Settings[key]
	if !ok {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), v...), true, nil
}

func (s *FlatStore) Settings(_ context.Context) ([]model.Setting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedSettings(s.data.Settings), nil
}

func (s *FlatStore) Close() error { return nil }
