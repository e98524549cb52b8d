package moderation

import (
	"context"
	"errors"
	"time"
)

// Typed outcomes shared between the lifecycle controller and the store.
// Callers distinguish these from storage failures with errors.Is.
var (
	// ErrReportNotFound and ErrActionNotFound mark point lookups that came
	// up empty where the caller required a row.
	ErrReportNotFound = errors.New("report not found")
	ErrActionNotFound = errors.New("action not found")

	// ErrNotOwner rejects an operation by someone other than the claimant.
	// It is an expected outcome, never logged as an error.
	ErrNotOwner = errors.New("not the claimant of this report")

	// ErrNotClaimed rejects a close of a report that is not currently in
	// the claimed state (already closed, expired, or still open).
	ErrNotClaimed = errors.New("report is not claimed")

	// ErrAlreadyClaimed rejects a claim of a report another staff member
	// already owns.
	ErrAlreadyClaimed = errors.New("report is already claimed")

	// ErrAlreadyActioned converts the unique-constraint violation on
	// Actions.report into a catchable result: a second action for the same
	// report lost the race.
	ErrAlreadyActioned = errors.New("report already has an action")
)

// IntegrityError reports actual database corruption found by the store's
// consistency checker, as opposed to a failure to run the check at all.
type IntegrityError struct {
	Detail string
}

func (e *IntegrityError) Error() string {
	return "database integrity check failed: " + e.Detail
}

// LeaderboardEntry is one row of a claimant leaderboard, ordered by Count
// descending. Ties are broken by the store's default ordering.
type LeaderboardEntry struct {
	Claimant uint64
	Count    uint32
}

// OpenReport pairs a report id with its raw creation timestamp, as scanned
// by the expiry sweep.
type OpenReport struct {
	ID   int64
	Time string
}

// Health is a point-in-time snapshot of the store's consistency probes.
// Both checks are advisory; they never gate normal operations.
type Health struct {
	ForeignKeyViolations  int  `json:"foreign_key_violations"`
	IntegrityOK           bool `json:"integrity_ok"`
	ReportsMissingMessage int  `json:"reports_missing_message"`
	ActionsMissingMessage int  `json:"actions_missing_message"`
}

// Store is the persistence contract the lifecycle controller depends on.
// Implementations must be safe for concurrent use; every operation is
// transactionally scoped to the statement group it implements.
type Store interface {
	// Reports
	CreateReport(ctx context.Context, r *Report) (int64, error)
	GetReport(ctx context.Context, id int64) (*Report, error)
	ClaimReport(ctx context.Context, id int64, claimant uint64) error
	// CloseReportWithAction atomically transitions the report from Claimed
	// to Closed and inserts the action, both guarded on the claimant. The
	// compare-and-swap plus the unique index on Actions.report guarantee at
	// most one action per report even under concurrent close attempts.
	CloseReportWithAction(ctx context.Context, id int64, claimant uint64, a *Action) (int64, error)
	ForceCloseReport(ctx context.Context, id int64, claimant uint64) error
	ExpireReport(ctx context.Context, id int64) error
	OpenReports(ctx context.Context) ([]OpenReport, error)

	// Actions
	CreateAction(ctx context.Context, a *Action) (int64, error)
	GetAction(ctx context.Context, id int64) (*Action, error)
	EditAction(ctx context.Context, id int64, updated *Action, editor uint64, ts time.Time) error
	ListAuditEdits(ctx context.Context, actionID int64) ([]AuditEdit, error)

	// Message links
	LinkReportMessage(ctx context.Context, reportID int64, ref MessageRef) error
	LinkActionMessage(ctx context.Context, actionID int64, ref MessageRef) error
	RelinkActionMessage(ctx context.Context, actionID int64, ref MessageRef) error
	GetReportMessage(ctx context.Context, reportID int64) (*MessageRef, error)
	GetActionMessage(ctx context.Context, actionID int64) (*MessageRef, error)
	GetActionMessageForReport(ctx context.Context, reportID int64) (*MessageRef, error)

	// Aggregates
	CountReportsByStatus(ctx context.Context, status ReportStatus) (uint32, error)
	CountReportsForTarget(ctx context.Context, reportedID string) (uint32, error)
	TotalReports(ctx context.Context) (uint32, error)
	TotalActions(ctx context.Context) (uint32, error)
	CountReportMessages(ctx context.Context) (uint32, error)
	CountActionMessages(ctx context.Context) (uint32, error)
	CountActionsByLocation(ctx context.Context, loc Location) (uint32, error)
	CountActionsWithoutReport(ctx context.Context) (uint32, error)
	LeaderboardReports(ctx context.Context, limit uint32) ([]LeaderboardEntry, error)
	LeaderboardActions(ctx context.Context, limit uint32) ([]LeaderboardEntry, error)
	ReportHistory(ctx context.Context, targetID string, limit uint32) ([]Report, uint32, error)
	ActionHistory(ctx context.Context, targetID string, limit uint32) ([]Action, uint32, error)
	SearchReports(ctx context.Context, query string, limit uint32) ([]Report, error)
	SearchActions(ctx context.Context, query string, limit uint32) ([]Action, error)

	// Health and maintenance
	ForeignKeyCheck(ctx context.Context) (int, error)
	IntegrityCheck(ctx context.Context) error
	ReportsMissingMessage(ctx context.Context) (int, error)
	ActionsMissingMessage(ctx context.Context) (int, error)
	Vacuum(ctx context.Context) error
	Optimize(ctx context.Context) error
	BackupTo(ctx context.Context, path string) error

	Close() error
}
