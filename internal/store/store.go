package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding all cluster engine state.
type Store struct {
	conn *sql.DB
	path string
	now  func() time.Time
}

// Open creates or opens the engine database at the given path and brings
// the schema up to the latest version.
func Open(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if err := migrate(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}

	return &Store{conn: conn, path: dbPath, now: time.Now}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SetClock overrides the store's clock. Used by tests to get
// deterministic timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// timeLayout pads the fractional seconds to a fixed width. RFC3339Nano
// trims trailing zeros, and "…00.1Z" sorts lexicographically after
// "…00.15Z", which would corrupt every ORDER BY and cutoff comparison.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

// cutoff returns the formatted timestamp sinceHours before now.
// Fixed-width UTC strings compare lexicographically in chronological
// order, so it can be used directly in range predicates.
func (s *Store) cutoff(sinceHours float64) string {
	return fmtTime(s.now().Add(-time.Duration(sinceHours * float64(time.Hour))))
}
