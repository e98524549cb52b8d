// Package sqlitestore provides the SQLite-backed persistence engine for
// reports, actions, message links, and the audit edit history.
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/XSAM/otelsql"
	"github.com/pressly/goose/v3"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	_ "modernc.org/sqlite"

	"github.com/webmsgr/lurk-chan/internal/moderation"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store owns the embedded relational database. All entity state lives here;
// no other component holds a mutable copy beyond the scope of one operation.
type Store struct {
	db *sql.DB
}

// Ensure Store implements the persistence contract at compile time.
var _ moderation.Store = (*Store)(nil)

// Options configures the SQLite store.
type Options struct {
	// Path to the database file. Parent directories will be created if needed.
	Path string

	// BusyTimeout bounds how long a writer waits on the file lock.
	// If zero, a default of 5 seconds is used.
	BusyTimeout time.Duration
}

// DefaultOptions returns sensible defaults for development.
func DefaultOptions() Options {
	return Options{
		Path:        "lurk_chan.db",
		BusyTimeout: 5 * time.Second,
	}
}

// Open creates or opens the database at the configured path, applies any
// pending schema migrations, and returns a ready store. Migration failure is
// fatal to startup: no operation is accepted against an unmigrated database.
func Open(opts Options) (*Store, error) {
	if opts.Path == "" {
		opts.Path = "lurk_chan.db"
	}
	if opts.BusyTimeout == 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	// Ensure parent directory exists
	dir := filepath.Dir(opts.Path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(%d)",
		opts.Path, opts.BusyTimeout.Milliseconds())

	db, err := otelsql.Open("sqlite", dsn,
		otelsql.WithAttributes(semconv.DBSystemSqlite),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := otelsql.RegisterDBStatsMetrics(db,
		otelsql.WithAttributes(semconv.DBSystemSqlite),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to register db stats metrics: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// DB returns the underlying database handle for advanced operations.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) execContext(ctx context.Context, what, query string, args ...any) error {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
