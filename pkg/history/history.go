// Package history is the local persisted cache of tank readings. The store
// is a single-table SQLite database owned by the calling tool, reconciled
// with freshly fetched readings through Merge.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tanksense/tanksense/pkg/types"
)

// CacheError wraps a failure to access the local history cache. It is
// always surfaced, never swallowed: a dropped cache error could silently
// lose history data.
type CacheError struct {
	Path string
	Op   string
	Err  error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("history cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// storedDateLayout keeps full timestamp precision in the reading_date
// column so merge dedup round-trips exactly.
const storedDateLayout = time.RFC3339Nano

// Store is a SQLite-backed cache of tank readings at a local path. The
// database is created on first Save; a missing file is not an error on Load.
type Store struct {
	path string
}

// NewStore returns a Store for the given database path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the database path, for user-facing error messages.
func (s *Store) Path() string {
	return s.path
}

// Load reads all previously persisted readings in insertion order. A store
// that does not exist yet, or exists without a history table, yields an
// empty sequence.
func (s *Store) Load(ctx context.Context) ([]types.Reading, error) {
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return nil, nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return nil, &CacheError{Path: s.path, Op: "open", Err: err}
	}
	defer db.Close()

	var name string
	err = db.QueryRowContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name = 'history'`,
	).Scan(&name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, &CacheError{Path: s.path, Op: "read", Err: err}
	}

	rows, err := db.QueryContext(ctx,
		`SELECT reading_date, level_percent, level_litres FROM history ORDER BY rowid`,
	)
	if err != nil {
		return nil, &CacheError{Path: s.path, Op: "read", Err: err}
	}
	defer rows.Close()

	var readings []types.Reading
	for rows.Next() {
		var dateStr string
		var r types.Reading
		if err := rows.Scan(&dateStr, &r.LevelPercent, &r.LevelLitres); err != nil {
			return nil, &CacheError{Path: s.path, Op: "read", Err: err}
		}
		r.ReadingDate, err = time.Parse(storedDateLayout, dateStr)
		if err != nil {
			return nil, &CacheError{Path: s.path, Op: "read", Err: err}
		}
		readings = append(readings, r)
	}
	if err := rows.Err(); err != nil {
		return nil, &CacheError{Path: s.path, Op: "read", Err: err}
	}
	return readings, nil
}

// Save replaces the entire persisted collection with the given readings.
// The delete and inserts run in one transaction so a crash mid-write cannot
// leave a partially merged store behind.
func (s *Store) Save(ctx context.Context, readings []types.Reading) error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return &CacheError{Path: s.path, Op: "open", Err: err}
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &CacheError{Path: s.path, Op: "write", Err: err}
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS history (
		reading_date TEXT NOT NULL,
		level_percent REAL NOT NULL,
		level_litres INTEGER NOT NULL
	)`)
	if err != nil {
		return &CacheError{Path: s.path, Op: "write", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return &CacheError{Path: s.path, Op: "write", Err: err}
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO history (reading_date, level_percent, level_litres) VALUES (?, ?, ?)`,
	)
	if err != nil {
		return &CacheError{Path: s.path, Op: "write", Err: err}
	}
	defer stmt.Close()

	for _, r := range readings {
		_, err := stmt.ExecContext(ctx, r.ReadingDate.Format(storedDateLayout), r.LevelPercent, r.LevelLitres)
		if err != nil {
			return &CacheError{Path: s.path, Op: "write", Err: err}
		}
	}

	if err := tx.Commit(); err != nil {
		return &CacheError{Path: s.path, Op: "write", Err: err}
	}
	return nil
}

// readingKey identifies a reading for dedup. Two readings are the same iff
// timestamp, percentage and litres all match exactly; the timestamp is
// compared by instant, independent of location.
type readingKey struct {
	unixNano int64
	percent  float64
	litres   int
}

// Merge concatenates old and fresh readings and drops exact duplicates,
// keeping the first occurrence. Result order is insertion order: all of old
// in order, then the fresh readings not already present.
func Merge(old, fresh []types.Reading) []types.Reading {
	seen := make(map[readingKey]struct{}, len(old)+len(fresh))
	merged := make([]types.Reading, 0, len(old)+len(fresh))
	for _, r := range append(append([]types.Reading{}, old...), fresh...) {
		key := readingKey{r.ReadingDate.UnixNano(), r.LevelPercent, r.LevelLitres}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, r)
	}
	return merged
}

// FilterFrom returns the readings dated on or after start, preserving
// order. A zero start returns readings unchanged.
func FilterFrom(readings []types.Reading, start time.Time) []types.Reading {
	if start.IsZero() {
		return readings
	}
	out := make([]types.Reading, 0, len(readings))
	for _, r := range readings {
		if !r.ReadingDate.Before(start) {
			out = append(out, r)
		}
	}
	return out
}
