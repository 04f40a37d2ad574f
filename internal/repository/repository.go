// Package repository is the MySQL data-access layer. Queries are plain SQL
// through database/sql; every repo works on a DBTX so the same code runs
// inside and outside a transaction.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a write collides with existing state:
	// a unique key, a second pending application or dependent rows that
	// block a delete.
	ErrConflict = errors.New("conflict")

	// ErrEmailExists is the unique-email flavour of ErrConflict.
	ErrEmailExists = fmt.Errorf("%w: email already exists", ErrConflict)

	// ErrStale is returned by compare-and-set updates whose guard no longer
	// holds, e.g. an application that left the pending state meanwhile.
	ErrStale = errors.New("row changed concurrently")
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxRunner runs a function inside a database transaction.
type TxRunner struct {
	db *sql.DB
}

// NewTxRunner returns a TxRunner for db.
func NewTxRunner(db *sql.DB) *TxRunner { return &TxRunner{db: db} }

// RunInTx begins a transaction, calls fn and commits when fn returns nil.
// Any error from fn rolls everything back.
func (r *TxRunner) RunInTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	committed = true
	return nil
}

// isDuplicate reports whether err is MySQL error 1062 (duplicate entry).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number == 1062
	}
	return err != nil && strings.Contains(err.Error(), "1062")
}

// notFound maps sql.ErrNoRows to ErrNotFound and passes everything else
// through.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time.UTC()
	return &t
}
