package sqlitestore

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/webmsgr/lurk-chan/internal/moderation"
)

// prefixed qualifies a column list with a table alias for use in joins.
func prefixed(alias, columns string) string {
	cols := strings.Split(columns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// All aggregates are point-in-time snapshots. Two counts fetched "together"
// can disagree momentarily; that is fine for a dashboard and callers must
// not use them for invariant checking.

func (s *Store) count(ctx context.Context, what, query string, args ...any) (uint32, error) {
	var n uint32
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return n, nil
}

func (s *Store) CountReportsByStatus(ctx context.Context, status moderation.ReportStatus) (uint32, error) {
	return s.count(ctx, "count reports by status",
		`SELECT COUNT(*) FROM Reports WHERE report_status = ?`, status.ToDB())
}

// CountReportsForTarget returns how many times a participant has been
// reported, across all statuses.
func (s *Store) CountReportsForTarget(ctx context.Context, reportedID string) (uint32, error) {
	return s.count(ctx, "count reports for target",
		`SELECT COUNT(*) FROM Reports WHERE reported_id = ?`, reportedID)
}

func (s *Store) TotalReports(ctx context.Context) (uint32, error) {
	return s.count(ctx, "total reports", `SELECT COUNT(*) FROM Reports`)
}

func (s *Store) TotalActions(ctx context.Context) (uint32, error) {
	return s.count(ctx, "total actions", `SELECT COUNT(*) FROM Actions`)
}

func (s *Store) CountReportMessages(ctx context.Context) (uint32, error) {
	return s.count(ctx, "count report messages", `SELECT COUNT(*) FROM ReportMessages`)
}

func (s *Store) CountActionMessages(ctx context.Context) (uint32, error) {
	return s.count(ctx, "count action messages", `SELECT COUNT(*) FROM ActionMessages`)
}

func (s *Store) CountActionsByLocation(ctx context.Context, loc moderation.Location) (uint32, error) {
	return s.count(ctx, "count actions by location",
		`SELECT COUNT(*) FROM Actions WHERE server = ?`, loc.ToDB())
}

func (s *Store) CountActionsWithoutReport(ctx context.Context) (uint32, error) {
	return s.count(ctx, "count actions without report",
		`SELECT COUNT(*) FROM Actions WHERE report IS NULL`)
}

// LeaderboardReports ranks claimants by the number of reports they have
// claimed or resolved, descending.
func (s *Store) LeaderboardReports(ctx context.Context, limit uint32) ([]moderation.LeaderboardEntry, error) {
	return s.leaderboard(ctx, "leaderboard reports", `
		SELECT claimant, COUNT(*) AS n FROM Reports
		WHERE claimant IS NOT NULL
		GROUP BY claimant ORDER BY n DESC LIMIT ?
	`, limit)
}

// LeaderboardActions ranks claimants by issued actions, descending.
func (s *Store) LeaderboardActions(ctx context.Context, limit uint32) ([]moderation.LeaderboardEntry, error) {
	return s.leaderboard(ctx, "leaderboard actions", `
		SELECT claimant, COUNT(*) AS n FROM Actions
		GROUP BY claimant ORDER BY n DESC LIMIT ?
	`, limit)
}

func (s *Store) leaderboard(ctx context.Context, what, query string, limit uint32) ([]moderation.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()

	var entries []moderation.LeaderboardEntry
	for rows.Next() {
		var claimant string
		var e moderation.LeaderboardEntry
		if err := rows.Scan(&claimant, &e.Count); err != nil {
			return nil, fmt.Errorf("%s: %w", what, err)
		}
		e.Claimant, err = strconv.ParseUint(claimant, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s: malformed claimant %q: %w", what, claimant, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ReportHistory returns the most recent reports filed against a target,
// newest first, along with the total count across all time.
func (s *Store) ReportHistory(ctx context.Context, targetID string, limit uint32) ([]moderation.Report, uint32, error) {
	total, err := s.CountReportsForTarget(ctx, targetID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM Reports
		WHERE reported_id = ? ORDER BY time DESC LIMIT ?
	`, targetID, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("report history: %w", err)
	}
	defer rows.Close()

	var reports []moderation.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("report history: %w", err)
		}
		reports = append(reports, *r)
	}
	return reports, total, rows.Err()
}

// ActionHistory returns the most recent actions recorded against a target,
// newest first, along with the total count.
func (s *Store) ActionHistory(ctx context.Context, targetID string, limit uint32) ([]moderation.Action, uint32, error) {
	total, err := s.count(ctx, "action history",
		`SELECT COUNT(*) FROM Actions WHERE target_id = ?`, targetID)
	if err != nil {
		return nil, 0, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+actionColumns+` FROM Actions
		WHERE target_id = ? ORDER BY id DESC LIMIT ?
	`, targetID, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("action history: %w", err)
	}
	defer rows.Close()

	var actions []moderation.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("action history: %w", err)
		}
		actions = append(actions, *a)
	}
	return actions, total, rows.Err()
}

// SearchReports runs a full-text query over the reports index.
func (s *Store) SearchReports(ctx context.Context, query string, limit uint32) ([]moderation.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixed("r", reportColumns)+`
		FROM ReportsSearch fts
		JOIN Reports r ON r.id = fts.rowid
		WHERE ReportsSearch MATCH ?
		ORDER BY rank LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search reports: %w", err)
	}
	defer rows.Close()

	var reports []moderation.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("search reports: %w", err)
		}
		reports = append(reports, *r)
	}
	return reports, rows.Err()
}

// SearchActions runs a full-text query over the actions index.
func (s *Store) SearchActions(ctx context.Context, query string, limit uint32) ([]moderation.Action, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixed("a", actionColumns)+`
		FROM ActionsSearch fts
		JOIN Actions a ON a.id = fts.rowid
		WHERE ActionsSearch MATCH ?
		ORDER BY rank LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("search actions: %w", err)
	}
	defer rows.Close()

	var actions []moderation.Action
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("search actions: %w", err)
		}
		actions = append(actions, *a)
	}
	return actions, rows.Err()
}
