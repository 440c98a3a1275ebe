// Package storage holds the local ledger stores: SQLite for the server and
// a JSON file for single-user setups.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"budget/internal/core"
	"budget/internal/ledger"
	"budget/internal/ports"

	_ "modernc.org/sqlite"
)

// DefaultOwner is the profile used when none is configured.
const DefaultOwner = "default"

// SQLiteStore keeps one ledger document and one selection per owner.
type SQLiteStore struct {
	db    *sql.DB
	owner string
}

var (
	_ ports.LocalStore     = (*SQLiteStore)(nil)
	_ ports.SelectionStore = (*SQLiteStore)(nil)
)

// NewSQLiteStore opens (or creates) the database at dbPath and migrates it.
func NewSQLiteStore(dbPath, owner string) (*SQLiteStore, error) {
	if owner == "" {
		owner = DefaultOwner
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db, owner: owner}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load returns the owner's ledger. A missing row is an empty ledger; an
// undecodable document is an empty ledger plus an ErrPersistence error.
func (s *SQLiteStore) Load(ctx context.Context) (*ledger.Ledger, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM ledgers WHERE owner = ?`, s.owner).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.New(), nil
	}
	if err != nil {
		return ledger.New(), fmt.Errorf("%w: load ledger: %w", core.ErrPersistence, err)
	}

	l, err := ledger.Decode([]byte(doc))
	if err != nil {
		return ledger.New(), fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	return l, nil
}

func (s *SQLiteStore) Save(ctx context.Context, l *ledger.Ledger) error {
	b, err := ledger.Encode(l)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrPersistence, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ledgers (owner, document, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET document = excluded.document, updated_at = excluded.updated_at`,
		s.owner, string(b), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: save ledger: %w", core.ErrPersistence, err)
	}

	slog.DebugContext(ctx, "Ledger saved to SQLite", "owner", s.owner, "bytes", len(b))
	return nil
}

func (s *SQLiteStore) LoadSelection(ctx context.Context) (core.MonthKey, bool, error) {
	var year, month int
	err := s.db.QueryRowContext(ctx,
		`SELECT year, month FROM selections WHERE owner = ?`, s.owner).Scan(&year, &month)
	if errors.Is(err, sql.ErrNoRows) {
		return core.MonthKey{}, false, nil
	}
	if err != nil {
		return core.MonthKey{}, false, fmt.Errorf("%w: load selection: %w", core.ErrPersistence, err)
	}
	return core.MonthKey{Year: year, Month: month}, true, nil
}

func (s *SQLiteStore) SaveSelection(ctx context.Context, k core.MonthKey) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO selections (owner, year, month, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(owner) DO UPDATE SET year = excluded.year, month = excluded.month, updated_at = excluded.updated_at`,
		s.owner, k.Year, k.Month, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("%w: save selection: %w", core.ErrPersistence, err)
	}
	return nil
}
