package sqlitestore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/webmsgr/lurk-chan/internal/moderation"
)

// Message identifiers are 64-bit unsigned values stored as decimal text.
// The round trip through text must be exact; a parse failure on read means
// the row was corrupted, not that the caller did anything wrong.

func refText(ref moderation.MessageRef) (channel, message string) {
	return strconv.FormatUint(ref.Channel, 10), strconv.FormatUint(ref.Message, 10)
}

func scanRef(channel, message string) (*moderation.MessageRef, error) {
	c, err := strconv.ParseUint(channel, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed channel id %q: %w", channel, err)
	}
	m, err := strconv.ParseUint(message, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed message id %q: %w", message, err)
	}
	return &moderation.MessageRef{Channel: c, Message: m}, nil
}

// LinkReportMessage records the external rendered representation of a
// report. The unique constraint makes a second link for the same report an
// error rather than a silent overwrite.
func (s *Store) LinkReportMessage(ctx context.Context, reportID int64, ref moderation.MessageRef) error {
	channel, message := refText(ref)
	return s.execContext(ctx, "link report message",
		`INSERT INTO ReportMessages (report_id, channel, message) VALUES (?, ?, ?)`,
		reportID, channel, message)
}

// LinkActionMessage records the external rendered representation of an action.
func (s *Store) LinkActionMessage(ctx context.Context, actionID int64, ref moderation.MessageRef) error {
	channel, message := refText(ref)
	return s.execContext(ctx, "link action message",
		`INSERT INTO ActionMessages (action_id, channel, message) VALUES (?, ?, ?)`,
		actionID, channel, message)
}

// RelinkActionMessage replaces an action's message link. Used when an audit
// is moved between platforms and re-rendered in another channel.
func (s *Store) RelinkActionMessage(ctx context.Context, actionID int64, ref moderation.MessageRef) error {
	channel, message := refText(ref)
	return s.execContext(ctx, "relink action message", `
		INSERT INTO ActionMessages (action_id, channel, message) VALUES (?, ?, ?)
		ON CONFLICT(action_id) DO UPDATE SET
			channel = excluded.channel,
			message = excluded.message
	`, actionID, channel, message)
}

// GetReportMessage returns the message link for a report, or nil if none was
// ever recorded. A report without a link is a recoverable inconsistency the
// caller must surface, not ignore.
func (s *Store) GetReportMessage(ctx context.Context, reportID int64) (*moderation.MessageRef, error) {
	return s.getRef(ctx, "get report message",
		`SELECT channel, message FROM ReportMessages WHERE report_id = ?`, reportID)
}

// GetActionMessage returns the message link for an action, or nil if absent.
func (s *Store) GetActionMessage(ctx context.Context, actionID int64) (*moderation.MessageRef, error) {
	return s.getRef(ctx, "get action message",
		`SELECT channel, message FROM ActionMessages WHERE action_id = ?`, actionID)
}

// GetActionMessageForReport resolves the message link of the action that
// closed the given report, joining through the action's back-reference.
// Used to render "see resolution" links on closed reports.
func (s *Store) GetActionMessageForReport(ctx context.Context, reportID int64) (*moderation.MessageRef, error) {
	return s.getRef(ctx, "get action message for report", `
		SELECT am.channel, am.message
		FROM ActionMessages am
		JOIN Actions a ON a.id = am.action_id
		WHERE a.report = ?
	`, reportID)
}

func (s *Store) getRef(ctx context.Context, what, query string, arg int64) (*moderation.MessageRef, error) {
	var channel, message string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&channel, &message)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	ref, err := scanRef(channel, message)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	return ref, nil
}
