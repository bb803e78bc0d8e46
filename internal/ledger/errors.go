package ledger

import (
	"errors"

	"github.com/Tiliavir/worklog/internal/storage"
)

var (
	// ErrAlreadyCheckedIn is returned by RecordCheckIn when the day already
	// has a check-in. The stored value is left untouched.
	ErrAlreadyCheckedIn = errors.New("ledger: already checked in")
	// ErrInvalidTimeFormat rejects a time of day that is not HH:MM.
	ErrInvalidTimeFormat = errors.New("ledger: invalid time format, expected HH:MM")
	// ErrInvalidDate rejects a day key that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("ledger: invalid date, expected YYYY-MM-DD")
	// ErrImportMalformed rejects a backup that does not have the expected shape.
	ErrImportMalformed = errors.New("ledger: malformed backup")
	// ErrStorageUnavailable is wrapped by every backend failure.
	ErrStorageUnavailable = storage.ErrUnavailable
)
