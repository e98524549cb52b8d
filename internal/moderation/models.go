package moderation

import "fmt"

// Location identifies the platform a report or action originated from.
type Location string

const (
	LocationSL      Location = "sl"
	LocationDiscord Location = "discord"
)

// ToDB returns the stable storage encoding for a Location.
// The encoding is total: every Location value has exactly one encoding.
func (l Location) ToDB() string {
	return string(l)
}

// ParseLocation is the partial inverse of ToDB. Any string outside the
// closed set fails with *UnknownLocationError.
func ParseLocation(s string) (Location, error) {
	switch s {
	case "sl":
		return LocationSL, nil
	case "discord":
		return LocationDiscord, nil
	}
	return "", &UnknownLocationError{Value: s}
}

// UnknownLocationError reports a location string that is not part of the
// closed enumeration. It usually indicates data corruption or an upstream
// producer bug.
type UnknownLocationError struct {
	Value string
}

func (e *UnknownLocationError) Error() string {
	return fmt.Sprintf("unknown location: %q", e.Value)
}

// ReportStatus tracks where a report is in its lifecycle.
type ReportStatus string

const (
	StatusOpen    ReportStatus = "open"
	StatusClaimed ReportStatus = "claimed"
	StatusClosed  ReportStatus = "closed"
	StatusExpired ReportStatus = "expired"
)

// ToDB returns the stable storage encoding for a ReportStatus.
func (s ReportStatus) ToDB() string {
	return string(s)
}

// ParseReportStatus is the partial inverse of ToDB, failing with
// *InvalidReportStatusError on anything outside the closed set.
func ParseReportStatus(s string) (ReportStatus, error) {
	switch s {
	case "open":
		return StatusOpen, nil
	case "claimed":
		return StatusClaimed, nil
	case "closed":
		return StatusClosed, nil
	case "expired":
		return StatusExpired, nil
	}
	return "", &InvalidReportStatusError{Value: s}
}

// InvalidReportStatusError reports a status string that does not map to any
// ReportStatus value.
type InvalidReportStatusError struct {
	Value string
}

func (e *InvalidReportStatusError) Error() string {
	return fmt.Sprintf("invalid report status: %q", e.Value)
}

// Report is a complaint about one participant filed by another.
// Reports are never deleted; Closed and Expired are terminal markers, not
// physical deletion.
type Report struct {
	ID           int64        `json:"id"`
	ReporterID   string       `json:"reporter_id"`
	ReporterName string       `json:"reporter_name"`
	ReportedID   string       `json:"reported_id"`
	ReportedName string       `json:"reported_name"`
	Reason       string       `json:"report_reason"`
	Status       ReportStatus `json:"report_status"`
	Server       string       `json:"server"`
	Time         string       `json:"time"` // ISO-8601, as supplied by the origin platform
	Claimant     *uint64      `json:"claimant,omitempty"`
	Location     Location     `json:"location"`
}

// Claimed reports whether the report has a claimant. The intended invariant
// is Claimed() ⇔ Status ∈ {StatusClaimed, StatusClosed}; an Expired report
// with no claimant is a reopen candidate.
func (r *Report) Claimed() bool {
	return r.Claimant != nil
}

// Action is a recorded disciplinary decision against a target. Report, when
// set, points back at the report that prompted it; at most one Action may
// reference a given report.
type Action struct {
	ID         int64    `json:"id"`
	TargetID   string   `json:"target_id"`
	TargetName string   `json:"target_username"`
	Offense    string   `json:"offense"`
	Action     string   `json:"action"`
	Location   Location `json:"server"`
	Claimant   uint64   `json:"claimant"`
	Report     *int64   `json:"report,omitempty"`
}

// MessageRef points at the external rendered representation of a report or
// action. Channel and Message are platform message identifiers; they are
// stored as decimal text and must round-trip exactly.
type MessageRef struct {
	Channel uint64
	Message uint64
}

// AuditEdit is one immutable entry in an action's edit history. Old and New
// are full JSON snapshots; Changes is an RFC 6902 patch between them, kept
// for human review only and never used to reconstruct state.
type AuditEdit struct {
	ID       int64  `json:"id"`
	ActionID int64  `json:"action_id"`
	Old      string `json:"old"`
	New      string `json:"new"`
	Who      uint64 `json:"who"`
	Time     string `json:"time"`
	Changes  string `json:"changes"`
}
