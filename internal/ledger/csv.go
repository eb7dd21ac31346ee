package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CSVStore persists attendance to one comma-delimited file per day,
// attendance_DD-MM-YYYY.csv, with a "Name,Timestamp" header. Files are
// append-only: EnsureDay never truncates and Mark only adds rows.
//
// A mutex plus an in-memory per-day name set serializes the check-then-append
// pair, so concurrent callers seeing the same person in the same moment still
// produce exactly one row.
type CSVStore struct {
	dir string

	mu     sync.Mutex
	marked map[string]map[string]bool // day key -> set of marked names
}

// NewCSVStore creates a store writing into dir.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{
		dir:    dir,
		marked: make(map[string]map[string]bool),
	}
}

// Path returns the day's file path.
func (s *CSVStore) Path(day time.Time) string {
	return filepath.Join(s.dir, "attendance_"+DayString(day)+".csv")
}

// EnsureDay creates the day's file with its header if it does not exist yet.
func (s *CSVStore) EnsureDay(ctx context.Context, day time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureFileLocked(day)
}

// ensureFileLocked creates the file and header unless it already exists.
// Callers must hold the mutex.
func (s *CSVStore) ensureFileLocked(day time.Time) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating ledger directory: %w", err)
	}

	f, err := os.OpenFile(s.Path(day), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil
		}
		return fmt.Errorf("creating ledger file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString("Name,Timestamp\n"); err != nil {
		return fmt.Errorf("writing ledger header: %w", err)
	}
	return nil
}

// IsMarked reports whether name already has a row for the day.
func (s *CSVStore) IsMarked(ctx context.Context, day time.Time, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.daySetLocked(day)
	if err != nil {
		return false, err
	}
	return set[name], nil
}

// Mark appends a row for name unless one already exists for the day.
func (s *CSVStore) Mark(ctx context.Context, day time.Time, name string, at time.Time) (Outcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.daySetLocked(day)
	if err != nil {
		return "", err
	}
	if set[name] {
		return AlreadyMarked, nil
	}

	if err := s.ensureFileLocked(day); err != nil {
		return "", err
	}

	f, err := os.OpenFile(s.Path(day), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return "", fmt.Errorf("opening ledger file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{name, at.Format(timestampFormat)}); err != nil {
		return "", fmt.Errorf("appending ledger entry: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("appending ledger entry: %w", err)
	}

	set[name] = true
	return Marked, nil
}

// Entries returns the day's rows. A missing file yields an empty slice.
func (s *CSVStore) Entries(ctx context.Context, day time.Time) ([]Entry, error) {
	rows, err := s.readDay(day)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{Name: row[0], Timestamp: row[1]})
	}
	return entries, nil
}

// daySetLocked returns the in-memory name set for the day, loading it from
// the file on first touch. Callers must hold the mutex.
func (s *CSVStore) daySetLocked(day time.Time) (map[string]bool, error) {
	key := DayString(day)
	if set, ok := s.marked[key]; ok {
		return set, nil
	}

	rows, err := s.readDay(day)
	if err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(rows))
	for _, row := range rows {
		set[row[0]] = true
	}
	s.marked[key] = set
	return set, nil
}

// readDay reads and parses the day's file, skipping the header.
// A missing file is not an error.
func (s *CSVStore) readDay(day time.Time) ([][]string, error) {
	f, err := os.Open(s.Path(day))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading ledger file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 2
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing ledger file: %w", err)
	}

	if len(records) > 0 && records[0][0] == "Name" {
		records = records[1:]
	}
	return records, nil
}
