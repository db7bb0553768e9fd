// Package ffiaudit is the sqlite-backed audit log every FFI attempt
// flows through: a record of each attempt and whether it was allowed
// or denied. Opens modernc.org/sqlite via plain database/sql rather
// than a query builder or ORM.
package ffiaudit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one row of the audit log, returned by Recent for diagnostics
// and tests.
type Entry struct {
	ID        int64
	FnName    string
	ArgCount  int
	Allowed   bool
	Reason    string
	CreatedAt time.Time
}

// Log is an internal/ffi.AuditSink backed by a local sqlite database.
// Every call is a single synchronous insert; treats the audit log
// as a correctness-adjacent boundary, not a hot loop, so this module
// makes no attempt to batch writes.
type Log struct {
	db *sql.DB
}

// Open creates (or reuses) a sqlite database at path and ensures the
// audit table exists. path may be ":memory:" for tests.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ffiaudit: opening %q: %w", path, err)
	}
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("ffiaudit: creating schema: %w", err)
	}
	return &Log{db: db}, nil
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS ffi_calls (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	fn_name    TEXT    NOT NULL,
	argc       INTEGER NOT NULL,
	allowed    INTEGER NOT NULL,
	reason     TEXT    NOT NULL,
	created_at DATETIME NOT NULL
)`

// Record implements internal/ffi.AuditSink. Insert errors are discarded
// without being logged (returning them would change
// ffi_call's own return contract, which defines purely in terms
// of validator/bridge outcomes) — a future caller wanting a hard
// failure on audit-write errors should use RecordContext instead.
func (l *Log) Record(fnName string, argc int, allowed bool, reason string) {
	_ = l.RecordContext(context.Background(), fnName, argc, allowed, reason)
}

// RecordContext is Record with an explicit context and a propagated
// error, for callers (tests, a future strict-audit mode) that need to
// know a write failed.
func (l *Log) RecordContext(ctx context.Context, fnName string, argc int, allowed bool, reason string) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO ffi_calls (fn_name, argc, allowed, reason, created_at) VALUES (?, ?, ?, ?, ?)`,
		fnName, argc, boolToInt(allowed), reason, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("ffiaudit: recording %q: %w", fnName, err)
	}
	return nil
}

// Recent returns the most recent n audit entries, newest first — used
// by tests and by a future `novac audit` diagnostic subcommand.
func (l *Log) Recent(ctx context.Context, n int) ([]Entry, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, fn_name, argc, allowed, reason, created_at FROM ffi_calls ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("ffiaudit: querying recent entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var allowed int
		if err := rows.Scan(&e.ID, &e.FnName, &e.ArgCount, &allowed, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("ffiaudit: scanning entry: %w", err)
		}
		e.Allowed = allowed != 0
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeniedSince counts denied calls at or after t, the query's FFI
// denial scenario asserts against.
func (l *Log) DeniedSince(ctx context.Context, t time.Time) (int, error) {
	var count int
	err := l.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ffi_calls WHERE allowed = 0 AND created_at >= ?`, t.UTC()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ffiaudit: counting denials: %w", err)
	}
	return count, nil
}

func (l *Log) Close() error { return l.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
