package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/wI2L/jsondiff"
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/webmsgr/lurk-chan/internal/moderation"
)

const actionColumns = `id, target_id, target_username, offense, action, server, claimant, report`

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) {
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}

func scanAction(row reportScanner) (*moderation.Action, error) {
	var a moderation.Action
	var location, claimant string
	var report sql.NullInt64
	if err := row.Scan(&a.ID, &a.TargetID, &a.TargetName, &a.Offense, &a.Action,
		&location, &claimant, &report); err != nil {
		return nil, err
	}
	var err error
	a.Location, err = moderation.ParseLocation(location)
	if err != nil {
		return nil, fmt.Errorf("action %d: %w", a.ID, err)
	}
	a.Claimant, err = strconv.ParseUint(claimant, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("action %d: malformed claimant %q: %w", a.ID, claimant, err)
	}
	if report.Valid {
		a.Report = &report.Int64
	}
	return &a, nil
}

// CreateAction inserts a standalone action (one not created through a report
// close) and returns its id. An attempt to reference an already-actioned
// report fails with ErrAlreadyActioned.
func (s *Store) CreateAction(ctx context.Context, a *moderation.Action) (int64, error) {
	var report any
	if a.Report != nil {
		report = *a.Report
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO Actions (target_id, target_username, offense, action, server, claimant, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.TargetID, a.TargetName, a.Offense, a.Action, a.Location.ToDB(),
		strconv.FormatUint(a.Claimant, 10), report)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, moderation.ErrAlreadyActioned
		}
		return 0, fmt.Errorf("create action: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create action: %w", err)
	}
	return id, nil
}

// GetAction returns the action with the given id, or nil if absent.
func (s *Store) GetAction(ctx context.Context, id int64) (*moderation.Action, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM Actions WHERE id = ?`, id)
	a, err := scanAction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get action: %w", err)
	}
	return a, nil
}

// EditAction replaces the stored action with updated and appends an
// immutable AuditEdits record carrying full old/new snapshots plus an RFC
// 6902 diff, all in one transaction. Fails with ErrActionNotFound if id does
// not exist. No-op detection (old == new) is the caller's job; the store
// does not special-case it.
func (s *Store) EditAction(ctx context.Context, id int64, updated *moderation.Action, editor uint64, ts time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("edit action: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `SELECT `+actionColumns+` FROM Actions WHERE id = ?`, id)
	old, err := scanAction(row)
	if err == sql.ErrNoRows {
		return moderation.ErrActionNotFound
	}
	if err != nil {
		return fmt.Errorf("edit action: %w", err)
	}

	// The snapshots deliberately exclude ids: the diff should only ever
	// show field-level changes.
	oldJSON, newJSON, changes, err := diffActions(old, updated)
	if err != nil {
		return fmt.Errorf("edit action: %w", err)
	}

	var report any
	if updated.Report != nil {
		report = *updated.Report
	}
	_, err = tx.ExecContext(ctx, `
		UPDATE Actions SET target_id = ?, target_username = ?, offense = ?, action = ?, server = ?, claimant = ?, report = ?
		WHERE id = ?
	`, updated.TargetID, updated.TargetName, updated.Offense, updated.Action,
		updated.Location.ToDB(), strconv.FormatUint(updated.Claimant, 10), report, id)
	if err != nil {
		return fmt.Errorf("edit action: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO AuditEdits (action_id, old, new, who, time, changes)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, oldJSON, newJSON, strconv.FormatUint(editor, 10), ts.UTC().Format(time.RFC3339), changes)
	if err != nil {
		return fmt.Errorf("edit action: record history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("edit action: %w", err)
	}
	return nil
}

func diffActions(old, updated *moderation.Action) (oldJSON, newJSON, changes string, err error) {
	o := *old
	n := *updated
	o.ID, n.ID = 0, 0

	ob, err := json.Marshal(&o)
	if err != nil {
		return "", "", "", err
	}
	nb, err := json.Marshal(&n)
	if err != nil {
		return "", "", "", err
	}
	patch, err := jsondiff.CompareJSON(ob, nb)
	if err != nil {
		return "", "", "", err
	}
	if len(patch) == 0 {
		return string(ob), string(nb), "[]", nil
	}
	pb, err := json.Marshal(patch)
	if err != nil {
		return "", "", "", err
	}
	return string(ob), string(nb), string(pb), nil
}

// ListAuditEdits returns the edit history for an action, oldest first.
// Within one action the ordering is authoritative: each record's old
// snapshot is the previous record's new snapshot.
func (s *Store) ListAuditEdits(ctx context.Context, actionID int64) ([]moderation.AuditEdit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, action_id, old, new, who, time, changes
		FROM AuditEdits WHERE action_id = ? ORDER BY id ASC
	`, actionID)
	if err != nil {
		return nil, fmt.Errorf("list audit edits: %w", err)
	}
	defer rows.Close()

	var edits []moderation.AuditEdit
	for rows.Next() {
		var e moderation.AuditEdit
		var who string
		if err := rows.Scan(&e.ID, &e.ActionID, &e.Old, &e.New, &who, &e.Time, &e.Changes); err != nil {
			return nil, fmt.Errorf("list audit edits: %w", err)
		}
		e.Who, err = strconv.ParseUint(who, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("audit edit %d: malformed editor %q: %w", e.ID, who, err)
		}
		edits = append(edits, e)
	}
	return edits, rows.Err()
}
