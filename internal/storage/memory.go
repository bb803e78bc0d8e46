package storage

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/Tiliavir/worklog/internal/model"
)

// MemoryStore keeps everything in process memory. It is the last resort of
// the fallback chain and never fails.
type MemoryStore struct {
	mu       sync.Mutex
	records  map[string]model.DayRecord
	settings map[string]json.RawMessage
}

// NewMemory returns an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		records:  make(map[string]model.DayRecord),
		settings: make(map[string]json.RawMessage),
	}
}

func (m *MemoryStore) Name() string { return BackendMemory }

func (m *MemoryStore) Put(_ context.Context, rec model.DayRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.Date] = cloneRecord(rec)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, date string) (*model.DayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[date]
	if !ok {
		return nil, nil
	}
	out := cloneRecord(rec)
	return &out, nil
}

func (m *MemoryStore) GetRange(_ context.Context, year, week int) ([]model.DayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filterRecords(m.records, func(r model.DayRecord) bool {
		return r.Year == year && r.WeekNumber == week
	}), nil
}

func (m *MemoryStore) GetAll(_ context.Context) ([]model.DayRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return filterRecords(m.records, nil), nil
}

func (m *MemoryStore) DeleteWhere(_ context.Context, match func(year, week int) bool) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for date, r := range m.records {
		if match(r.Year, r.WeekNumber) {
			delete(m.records, date)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]model.DayRecord)
	return nil
}

func (m *MemoryStore) PutSetting(_ context.Context, key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings[key] = append(json.RawMessage(nil), value...)
	return nil
}

func (m *MemoryStore) GetSetting(_ context.Context, key string) (json.RawMessage, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.settings[key]
	if !ok {
		return nil, false, nil
	}
	return append(json.RawMessage(nil), v...), true, nil
}

func (m *MemoryStore) Settings(_ context.Context) ([]model.Setting, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return sortedSettings(m.settings), nil
}

func (m *MemoryStore) Close() error { return nil }

// cloneRecord copies the time pointers so stored records cannot be mutated
// through a caller's copy.
func cloneRecord(r model.DayRecord) model.DayRecord {
	if r.CheckIn != nil {
		v := *r.CheckIn
		r.CheckIn = &v
	}
	if r.CheckOut != nil {
		v := *r.CheckOut
		r.CheckOut = &v
	}
	return r
}

// filterRecords returns the records accepted by keep (all when nil), ordered by date.
func filterRecords(records map[string]model.DayRecord, keep func(model.DayRecord) bool) []model.DayRecord {
	out := make([]model.DayRecord, 0, len(records))
	for _, r := range records {
		if keep == nil || keep(r) {
			out = append(out, cloneRecord(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func sortedSettings(settings map[string]json.RawMessage) []model.Setting {
	out := make([]model.Setting, 0, len(settings))
	for k, v := range settings {
		out = append(out, model.Setting{Key: k, Value: append(json.RawMessage(nil), v...)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
