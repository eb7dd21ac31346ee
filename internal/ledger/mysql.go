package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore keeps attendance in a single table with a UNIQUE (name, day)
// key, so Mark is append-if-absent at the database level and the
// at-most-once invariant holds without an external lock.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a connection pool and ensures the schema exists.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	if dsn == "" {
		return nil, errors.New("MySQL DSN is required")
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	store := &MySQLStore{db: db}
	if err := store.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the connection pool.
func (s *MySQLStore) Close() error {
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

func (s *MySQLStore) migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attendance (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			day DATE NOT NULL,
			marked_at DATETIME NOT NULL,
			UNIQUE KEY uniq_name_day (name, day)
		)
	`)
	if err != nil {
		return fmt.Errorf("creating attendance table: %w", err)
	}
	return nil
}

// EnsureDay is a no-op: the attendance table spans all days and the schema is
// created at connect time.
func (s *MySQLStore) EnsureDay(ctx context.Context, day time.Time) error {
	return nil
}

// IsMarked reports whether name already has a row for the day.
func (s *MySQLStore) IsMarked(ctx context.Context, day time.Time, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(SELECT 1 FROM attendance WHERE name = ? AND day = ?)
	`, name, day.Format("2006-01-02")).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking attendance: %w", err)
	}
	return exists, nil
}

// Mark inserts a row unless the unique key already holds one for the day.
func (s *MySQLStore) Mark(ctx context.Context, day time.Time, name string, at time.Time) (Outcome, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT IGNORE INTO attendance (name, day, marked_at) VALUES (?, ?, ?)
	`, name, day.Format("2006-01-02"), at.Format("2006-01-02 15:04:05"))
	if err != nil {
		return "", fmt.Errorf("marking attendance: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("marking attendance: %w", err)
	}
	if rows == 0 {
		return AlreadyMarked, nil
	}
	return Marked, nil
}

// Entries returns the day's rows in mark order.
func (s *MySQLStore) Entries(ctx context.Context, day time.Time) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, DATE_FORMAT(marked_at, '%H:%i:%s')
		FROM attendance
		WHERE day = ?
		ORDER BY marked_at, id
	`, day.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("listing attendance: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Name, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scanning attendance row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
