// Package ledger is the per-day attendance record. A person is marked at most
// once per calendar day regardless of how many frames they appear in.
package ledger

import (
	"context"
	"time"
)

// Outcome is the result of a mark attempt.
type Outcome string

const (
	// Marked means a new entry was persisted.
	Marked Outcome = "marked"
	// AlreadyMarked means the identity was already recorded for that day.
	AlreadyMarked Outcome = "already_marked"
)

// Entry is one persisted attendance row.
type Entry struct {
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"` // HH:MM:SS, sorts chronologically within a day
}

// Store records attendance marks with at-most-once-per-day semantics.
type Store interface {
	// EnsureDay prepares the day's store. Idempotent: repeated calls never
	// truncate or duplicate anything.
	EnsureDay(ctx context.Context, day time.Time) error
	// IsMarked reports whether the identity already has an entry for the
	// day. A store that does not exist yet means "not marked", not an error.
	IsMarked(ctx context.Context, day time.Time, name string) (bool, error)
	// Mark records the identity for the day unless it is already present.
	// The check-then-append pair is atomic with respect to other callers of
	// the same store.
	Mark(ctx context.Context, day time.Time, name string, at time.Time) (Outcome, error)
	// Entries returns the day's rows in insertion order.
	Entries(ctx context.Context, day time.Time) ([]Entry, error)
}

// timestampFormat keeps entries lexically sortable within a day.
const timestampFormat = "15:04:05"

// DayString formats a date the way day stores are named (DD-MM-YYYY).
func DayString(day time.Time) string {
	return day.Format("02-01-2006")
}

// ParseDay parses a DD-MM-YYYY date string.
func ParseDay(s string) (time.Time, error) {
	return time.Parse("02-01-2006", s)
}
