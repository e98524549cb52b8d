package sqlitestore

import (
	"context"
	"fmt"

	"github.com/webmsgr/lurk-chan/internal/moderation"
)

// ForeignKeyCheck returns the number of foreign key violations currently in
// the database. Advisory only; it never gates normal operations.
func (s *Store) ForeignKeyCheck(ctx context.Context) (int, error) {
	rows, err := s.db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return 0, fmt.Errorf("foreign key check: %w", err)
	}
	defer rows.Close()

	var n int
	for rows.Next() {
		n++
	}
	return n, rows.Err()
}

// IntegrityCheck runs the store's built-in consistency checker. Corruption
// is reported as *moderation.IntegrityError; a failure to run the pragma at
// all comes back as a plain wrapped error.
func (s *Store) IntegrityCheck(ctx context.Context) error {
	var result string
	if err := s.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("integrity check: %w", err)
	}
	if result != "ok" {
		return &moderation.IntegrityError{Detail: result}
	}
	return nil
}

// ReportsMissingMessage counts reports with no recorded message link: a
// dangling entity that must be surfaced, not silently ignored.
func (s *Store) ReportsMissingMessage(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM Reports r
		WHERE NOT EXISTS (SELECT 1 FROM ReportMessages m WHERE m.report_id = r.id)
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("reports missing message: %w", err)
	}
	return n, nil
}

// ActionsMissingMessage counts actions with no recorded message link.
func (s *Store) ActionsMissingMessage(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM Actions a
		WHERE NOT EXISTS (SELECT 1 FROM ActionMessages m WHERE m.action_id = a.id)
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("actions missing message: %w", err)
	}
	return n, nil
}

// Vacuum rebuilds the database file, reclaiming free pages.
func (s *Store) Vacuum(ctx context.Context) error {
	return s.execContext(ctx, "vacuum", `VACUUM`)
}

// Optimize runs the planner maintenance pragma. Cheap enough to run on a
// timer alongside normal traffic.
func (s *Store) Optimize(ctx context.Context) error {
	return s.execContext(ctx, "optimize", `PRAGMA optimize`)
}

// BackupTo writes a consistent snapshot of the database to path using
// VACUUM INTO, which is safe to run concurrently with readers and writers.
func (s *Store) BackupTo(ctx context.Context, path string) error {
	return s.execContext(ctx, "backup", `VACUUM INTO ?`, path)
}
