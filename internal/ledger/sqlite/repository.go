// Package sqlite stores the ledger in an append-only SQLite table.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/log"

	_ "modernc.org/sqlite"
)

var _ ledger.Store = (*Repository)(nil)

// Repository columns are TEXT so rows that were stored malformed read back
// verbatim, the same as the flat file.
type Repository struct {
	db       *sql.DB
	path     string
	now      func() time.Time
	initOnce sync.Once
	initErr  error
}

func NewRepository(dbPath string) (*Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time keeps append order equal to id order
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Repository{db: db, path: dbPath, now: time.Now}, nil
}

// SetClock overrides the clock used to default a missing date.
func (r *Repository) SetClock(now func() time.Time) {
	r.now = now
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// EnsureInitialized applies the embedded migrations once per repository.
func (r *Repository) EnsureInitialized(ctx context.Context) error {
	r.initOnce.Do(func() {
		if err := RunMigrations(r.path); err != nil {
			r.initErr = err
			return
		}
		slog.DebugContext(ctx, "SQLite ledger ready", "path", r.path)
	})
	return r.initErr
}

// Append implements ledger.Appender. The reference is the row id.
func (r *Repository) Append(ctx context.Context, rec core.Record) (string, error) {
	rec = rec.WithDefaults(core.DateOf(r.now()))
	if err := rec.Validate(); err != nil {
		return "", err
	}
	if err := r.EnsureInitialized(ctx); err != nil {
		return "", err
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO records (date, type, category, amount, note) VALUES (?, ?, ?, ?, ?)`,
		rec.Date.String(), string(rec.Kind), rec.Category, rec.Amount.String(), rec.Note)
	if err != nil {
		return "", fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("read record id: %w", err)
	}

	slog.InfoContext(ctx, "Record saved to SQLite",
		"id", id,
		"date", rec.Date.String(),
		"type", string(rec.Kind),
		"amount", rec.Amount.String())

	return strconv.FormatInt(id, 10), nil
}

// ReadAll implements ledger.Reader.
func (r *Repository) ReadAll(ctx context.Context) ([]core.Record, error) {
	if err := r.EnsureInitialized(ctx); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT date, type, category, amount, note FROM records ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	out := make([]core.Record, 0)
	for rows.Next() {
		var date, kind, category, amount, note string
		if err := rows.Scan(&date, &kind, &category, &amount, &note); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		out = append(out, core.Record{
			Date:     core.DateFromText(date),
			Kind:     core.Kind(kind),
			Category: category,
			Amount:   core.AmountFromText(amount),
			Note:     note,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return out, nil
}

// Import copies records verbatim in one transaction, malformed values
// included. It is used to move an existing flat-file ledger into SQLite.
func (r *Repository) Import(ctx context.Context, records []core.Record) (int, error) {
	if err := r.EnsureInitialized(ctx); err != nil {
		return 0, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (date, type, category, amount, note) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.Date.String(), string(rec.Kind), rec.Category, rec.Amount.String(), rec.Note); err != nil {
			return 0, fmt.Errorf("import record %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}

	slog.InfoContext(ctx, "Records imported into SQLite", log.FieldCount, len(records))
	return len(records), nil
}
