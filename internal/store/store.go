// Package store persists rate configuration, margin tiers and quotes in
// SQLite. Amounts and rates are stored as decimal TEXT so nothing is lost to
// floating point.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrVersionConflict is returned when a quote write loses against a
	// concurrent writer: the stored version or status no longer matches.
	ErrVersionConflict = errors.New("version conflict")
)

// timeLayout is fixed-width so TEXT ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store wraps the database handle.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New returns a Store on db.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// DB exposes the handle for callers that share it (seed, health checks).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

// inTx runs fn in a transaction and commits if it returns nil.
func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
