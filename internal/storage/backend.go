package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Tiliavir/worklog/internal/model"
)

// ErrUnavailable is wrapped by every error a backend returns.
var ErrUnavailable = errors.New("storage unavailable")

// Backend names accepted by Options.Backend.
const (
	BackendAuto   = "auto"
	BackendSQLite = "sqlite"
	BackendFlat   = "flat"
	BackendMemory = "memory"
)

// Backend persists day records and settings. Implementations guard their own
// state; callers never need to lock.
type Backend interface {
	Name() string

	// Put inserts or replaces the record keyed by rec.Date.
	Put(ctx context.Context, rec model.DayRecord) error
	// Get returns nil, nil when no record exists for date.
	Get(ctx context.Context, date string) (*model.DayRecord, error)
	GetRange(ctx context.Context, year, week int) ([]model.DayRecord, error)
	GetAll(ctx context.Context) ([]model.DayRecord, error)
	// DeleteWhere removes every record for which match returns true and
	// reports how many were removed.
	DeleteWhere(ctx context.Context, match func(year, week int) bool) (int, error)
	// Clear removes all day records. Settings are kept.
	Clear(ctx context.Context) error

	PutSetting(ctx context.Context, key string, value json.RawMessage) error
	GetSetting(ctx context.Context, key string) (json.RawMessage, bool, error)
	Settings(ctx context.Context) ([]model.Setting, error)

	Close() error
}

// Options selects and locates a backend.
type Options struct {
	// Backend is one of auto, sqlite, flat or memory. Empty means auto.
	Backend string
	// Dir holds the database and flat file.
	Dir string
}

const (
	sqliteFileName = "worklog.db"
	flatFileName   = "ledger.json"
)

// Open probes the backends in order sqlite, flat, memory, starting from
// opts.Backend, and returns the first that opens. The memory store always
// opens, so Open never fails. The choice is final for the life of the process.
func Open(ctx context.Context, opts Options, log *zap.Logger) Backend {
	if log == nil {
		log = zap.NewNop()
	}
	chain := probeChain(opts.Backend)
	for _, name := range chain {
		var (
			b   Backend
			err error
		)
		switch name {
		case BackendSQLite:
			b, err = OpenSQLite(ctx, filepath.Join(opts.Dir, sqliteFileName))
		case BackendFlat:
			b, err = OpenFlat(filepath.Join(opts.Dir, flatFileName))
		default:
			b = NewMemory()
		}
		if err != nil {
			log.Warn("storage backend unavailable, falling back",
				zap.String("backend", name),
				zap.Error(err))
			continue
		}
		log.Debug("storage backend selected", zap.String("backend", b.Name()))
		return b
	}
	// Unreachable: memory is always last in the chain.
	return NewMemory()
}

func probeChain(start string) []string {
	all := []string{BackendSQLite, BackendFlat, BackendMemory}
	for i, name := range all {
		if name == start {
			return all[i:]
		}
	}
	return all
}

// ValidBackend reports whether name is an accepted Options.Backend value.
func ValidBackend(name string) bool {
	switch name {
	case "", BackendAuto, BackendSQLite, BackendFlat, BackendMemory:
		return true
	}
	return false
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating directories: %w", err)
	}
	return nil
}
