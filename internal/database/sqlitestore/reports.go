package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/webmsgr/lurk-chan/internal/moderation"
)

const reportColumns = `id, reporter_id, reporter_name, reported_id, reported_name, report_reason, report_status, server, time, claimant, location`

type reportScanner interface {
	Scan(dest ...any) error
}

// scanReport converts one Reports row into a moderation.Report. Identifiers
// are stored as decimal text; a claimant that fails to parse is data
// corruption, not a user error, and is surfaced as such.
func scanReport(row reportScanner) (*moderation.Report, error) {
	var r moderation.Report
	var status, location string
	var claimant sql.NullString
	if err := row.Scan(&r.ID, &r.ReporterID, &r.ReporterName, &r.ReportedID, &r.ReportedName,
		&r.Reason, &status, &r.Server, &r.Time, &claimant, &location); err != nil {
		return nil, err
	}
	var err error
	r.Status, err = moderation.ParseReportStatus(status)
	if err != nil {
		return nil, fmt.Errorf("report %d: %w", r.ID, err)
	}
	r.Location, err = moderation.ParseLocation(location)
	if err != nil {
		return nil, fmt.Errorf("report %d: %w", r.ID, err)
	}
	if claimant.Valid {
		id, err := strconv.ParseUint(claimant.String, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("report %d: malformed claimant %q: %w", r.ID, claimant.String, err)
		}
		r.Claimant = &id
	}
	return &r, nil
}

func claimantText(claimant *uint64) any {
	if claimant == nil {
		return nil
	}
	return strconv.FormatUint(*claimant, 10)
}

// CreateReport inserts a new report and returns its allocated id. Insertion
// and id allocation are a single statement; the id is not knowable before
// the insert completes.
func (s *Store) CreateReport(ctx context.Context, r *moderation.Report) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO Reports
			(reporter_id, reporter_name, reported_id, reported_name, report_reason, report_status, server, time, claimant, location)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, r.ReporterID, r.ReporterName, r.ReportedID, r.ReportedName, r.Reason,
		r.Status.ToDB(), r.Server, r.Time, claimantText(r.Claimant), r.Location.ToDB())
	if err != nil {
		return 0, fmt.Errorf("create report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("create report: %w", err)
	}
	return id, nil
}

// GetReport returns the report with the given id, or nil if absent.
// Absence is a normal result, distinguished from lookup failure.
func (s *Store) GetReport(ctx context.Context, id int64) (*moderation.Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM Reports WHERE id = ?`, id)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get report: %w", err)
	}
	return r, nil
}

// ClaimReport sets the report's status to claimed and records the claimant,
// unconditionally. The check that the report is actually claimable belongs
// to the lifecycle controller.
func (s *Store) ClaimReport(ctx context.Context, id int64, claimant uint64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE Reports SET report_status = ?, claimant = ? WHERE id = ?
	`, moderation.StatusClaimed.ToDB(), strconv.FormatUint(claimant, 10), id)
	if err != nil {
		return fmt.Errorf("claim report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return moderation.ErrReportNotFound
	}
	return nil
}

// CloseReportWithAction transitions the report claimed→closed and inserts
// the resolving action in one transaction. The status update is a
// compare-and-swap guarded on both status and claimant: of N concurrent
// close attempts, exactly one observes claimed and wins. The unique index
// on Actions.report backstops the same invariant at the insert.
func (s *Store) CloseReportWithAction(ctx context.Context, id int64, claimant uint64, a *moderation.Action) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("close report: %w", err)
	}
	defer tx.Rollback()

	aid, err := s.closeInTx(ctx, tx, id, claimant, a)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("close report: %w", err)
	}
	return aid, nil
}

func (s *Store) closeInTx(ctx context.Context, tx *sql.Tx, id int64, claimant uint64, a *moderation.Action) (int64, error) {
	if err := casClose(ctx, tx, id, claimant); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO Actions (target_id, target_username, offense, action, server, claimant, report)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.TargetID, a.TargetName, a.Offense, a.Action, a.Location.ToDB(),
		strconv.FormatUint(a.Claimant, 10), id)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, moderation.ErrAlreadyActioned
		}
		return 0, fmt.Errorf("close report: insert action: %w", err)
	}
	aid, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("close report: %w", err)
	}
	return aid, nil
}

// ForceCloseReport is the close-without-action transition, with the same
// compare-and-swap guard.
func (s *Store) ForceCloseReport(ctx context.Context, id int64, claimant uint64) error {
	return casClose(ctx, s.db, id, claimant)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func casClose(ctx context.Context, db execer, id int64, claimant uint64) error {
	res, err := db.ExecContext(ctx, `
		UPDATE Reports SET report_status = ?
		WHERE id = ? AND report_status = ? AND claimant = ?
	`, moderation.StatusClosed.ToDB(), id, moderation.StatusClaimed.ToDB(),
		strconv.FormatUint(claimant, 10))
	if err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Lost the race or never claimable: report the precise cause.
		return closeFailureCause(ctx, db, id, claimant)
	}
	return nil
}

func closeFailureCause(ctx context.Context, db execer, id int64, claimant uint64) error {
	s, ok := db.(interface {
		QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	})
	if !ok {
		return moderation.ErrNotClaimed
	}
	var status string
	var current sql.NullString
	err := s.QueryRowContext(ctx, `SELECT report_status, claimant FROM Reports WHERE id = ?`, id).
		Scan(&status, &current)
	if err == sql.ErrNoRows {
		return moderation.ErrReportNotFound
	}
	if err != nil {
		return fmt.Errorf("close report: %w", err)
	}
	if status == moderation.StatusClaimed.ToDB() &&
		current.Valid && current.String != strconv.FormatUint(claimant, 10) {
		return moderation.ErrNotOwner
	}
	return moderation.ErrNotClaimed
}

// ExpireReport transitions a report to expired, unconditionally.
func (s *Store) ExpireReport(ctx context.Context, id int64) error {
	return s.execContext(ctx, "expire report",
		`UPDATE Reports SET report_status = ? WHERE id = ?`,
		moderation.StatusExpired.ToDB(), id)
}

// OpenReports returns the id and raw creation timestamp of every open
// report, for the expiry sweep. Timestamps are returned unparsed so a single
// malformed row cannot abort the sweep.
func (s *Store) OpenReports(ctx context.Context) ([]moderation.OpenReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, time FROM Reports WHERE report_status = ?
	`, moderation.StatusOpen.ToDB())
	if err != nil {
		return nil, fmt.Errorf("open reports: %w", err)
	}
	defer rows.Close()

	var open []moderation.OpenReport
	for rows.Next() {
		var r moderation.OpenReport
		if err := rows.Scan(&r.ID, &r.Time); err != nil {
			return nil, fmt.Errorf("open reports: %w", err)
		}
		open = append(open, r)
	}
	return open, rows.Err()
}
