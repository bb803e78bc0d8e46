package model

import (
	"encoding/json"
	"time"
)

// DayRecord is the check-in/check-out pair stored for one calendar day.
// Year and WeekNumber are derived from Date on every write.
type DayRecord struct {
	Date       string  `json:"date"`
	CheckIn    *string `json:"checkIn"`
	CheckOut   *string `json:"checkOut"`
	Year       int     `json:"year"`
	WeekNumber int     `json:"weekNumber"`
}

// In returns the check-in time or "" when unset.
func (r DayRecord) In() string {
	if r.CheckIn == nil {
		return ""
	}
	return *r.CheckIn
}

// Out returns the check-out time or "" when unset.
func (r DayRecord) Out() string {
	if r.CheckOut == nil {
		return ""
	}
	return *r.CheckOut
}

// Setting is an opaque key/value pair. Settings are never pruned.
type Setting struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Backup is the export/import envelope.
type Backup struct {
	Records   []DayRecord `json:"records"`
	Settings  []Setting   `json:"settings"`
	Timestamp time.Time   `json:"timestamp"`
}
