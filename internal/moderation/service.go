package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/webmsgr/lurk-chan/internal/metrics"
)

// DefaultExpiryAge is how long a report may stay open before the sweep
// expires it.
const DefaultExpiryAge = 48 * time.Hour

// Config carries the tunables the lifecycle controller needs. It is passed
// in explicitly at construction; there is no ambient global configuration.
type Config struct {
	// ExpiryAge is the open-report age threshold for the expiry sweep.
	// Zero means DefaultExpiryAge.
	ExpiryAge time.Duration
}

// Service is the lifecycle controller: it validates report status
// transitions against current persisted state and applies them atomically
// through the store. It holds no entity state of its own.
type Service struct {
	store     Store
	expiryAge time.Duration
}

// NewService creates a lifecycle controller over the given store.
func NewService(store Store, cfg Config) *Service {
	if cfg.ExpiryAge == 0 {
		cfg.ExpiryAge = DefaultExpiryAge
	}
	return &Service{
		store:     store,
		expiryAge: cfg.ExpiryAge,
	}
}

// Store exposes the underlying persistence engine for read-only collaborators
// (stats collection, health checks).
func (s *Service) Store() Store {
	return s.store
}

// SubmitReport ingests a new complaint. Status and claimant are forced to
// their initial values regardless of what the caller supplied.
func (s *Service) SubmitReport(ctx context.Context, r *Report) (int64, error) {
	r.Status = StatusOpen
	r.Claimant = nil
	id, err := s.store.CreateReport(ctx, r)
	if err != nil {
		return 0, err
	}
	metrics.ReportsSubmitted.Inc()
	log.Info().Int64("report", id).Str("reported", r.ReportedID).Msg("report submitted")
	return id, nil
}

// SubmitReportFields ingests a complaint from an externally parsed field
// map (e.g. read back from a rendered message).
func (s *Service) SubmitReportFields(ctx context.Context, fields map[string]string) (int64, error) {
	r, err := ReportFromFields(fields)
	if err != nil {
		return 0, err
	}
	return s.SubmitReport(ctx, r)
}

// ClaimReport takes ownership of an open or expired report. Claiming an
// expired report reopens it. A repeat claim by the current owner is a no-op;
// a claim of someone else's report fails with ErrAlreadyClaimed.
func (s *Service) ClaimReport(ctx context.Context, id int64, actor uint64) error {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return ErrReportNotFound
	}
	switch r.Status {
	case StatusOpen, StatusExpired:
		if err := s.store.ClaimReport(ctx, id, actor); err != nil {
			return err
		}
		metrics.ReportsClaimed.Inc()
		log.Info().Int64("report", id).Uint64("claimant", actor).Msg("report claimed")
		return nil
	case StatusClaimed:
		if r.Claimant != nil && *r.Claimant == actor {
			return nil
		}
		return ErrAlreadyClaimed
	default:
		return ErrAlreadyClaimed
	}
}

// ActionDetails is the operator-supplied half of a close-with-action; the
// target identity comes from the report itself.
type ActionDetails struct {
	Offense string
	Action  string
}

// CloseReport resolves a claimed report with a disciplinary action. Only the
// current claimant may close; anyone else gets ErrNotOwner and no state
// changes. The status flip and the action insert are one atomic state
// transition, so concurrent closes produce exactly one action.
func (s *Service) CloseReport(ctx context.Context, id int64, actor uint64, details ActionDetails) (int64, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return 0, err
	}
	if r == nil {
		return 0, ErrReportNotFound
	}
	if err := ownerGuard(r, actor); err != nil {
		return 0, err
	}

	a := &Action{
		TargetID:   r.ReportedID,
		TargetName: r.ReportedName,
		Offense:    details.Offense,
		Action:     details.Action,
		Location:   r.Location,
		Claimant:   actor,
		Report:     &id,
	}
	aid, err := s.store.CloseReportWithAction(ctx, id, actor, a)
	if err != nil {
		return 0, err
	}
	metrics.ReportsClosed.Inc()
	metrics.ActionsCreated.Inc()
	log.Info().Int64("report", id).Int64("action", aid).Uint64("claimant", actor).Msg("report closed with action")
	return aid, nil
}

// ForceCloseReport closes a claimed report without recording an action.
// Same ownership guard as CloseReport.
func (s *Service) ForceCloseReport(ctx context.Context, id int64, actor uint64) error {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return err
	}
	if r == nil {
		return ErrReportNotFound
	}
	if err := ownerGuard(r, actor); err != nil {
		return err
	}
	if err := s.store.ForceCloseReport(ctx, id, actor); err != nil {
		return err
	}
	metrics.ReportsClosed.Inc()
	log.Info().Int64("report", id).Uint64("claimant", actor).Msg("report closed without action")
	return nil
}

func ownerGuard(r *Report, actor uint64) error {
	if r.Status != StatusClaimed {
		return ErrNotClaimed
	}
	if r.Claimant == nil || *r.Claimant != actor {
		return ErrNotOwner
	}
	return nil
}

// ActionEdit carries the editable fields of an action. Claimant and report
// back-reference never change through an edit.
type ActionEdit struct {
	TargetID   string
	TargetName string
	Offense    string
	Action     string
}

// EditAction applies an edit to an action the actor owns, appending an
// immutable history record. An edit that changes nothing is detected here
// and skipped entirely: no row update, no history entry.
func (s *Service) EditAction(ctx context.Context, id int64, edit ActionEdit, actor uint64, now time.Time) error {
	a, err := s.store.GetAction(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return ErrActionNotFound
	}
	if a.Claimant != actor {
		return ErrNotOwner
	}

	updated := *a
	updated.TargetID = edit.TargetID
	updated.TargetName = edit.TargetName
	updated.Offense = edit.Offense
	updated.Action = edit.Action
	if updated == *a {
		return nil
	}

	if err := s.store.EditAction(ctx, id, &updated, actor, now); err != nil {
		return err
	}
	metrics.ActionsEdited.Inc()
	log.Info().Int64("action", id).Uint64("editor", actor).Msg("action edited")
	return nil
}

// MoveAction relocates an action to another platform. The location change
// goes through the normal edit path so it shows up in the audit history;
// the caller then re-renders the message and records the new link with
// RelinkActionMessage. Moving to the current location is a no-op.
func (s *Service) MoveAction(ctx context.Context, id int64, actor uint64, loc Location, now time.Time) error {
	a, err := s.store.GetAction(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return ErrActionNotFound
	}
	if a.Claimant != actor {
		return ErrNotOwner
	}
	if a.Location == loc {
		return nil
	}

	updated := *a
	updated.Location = loc
	if err := s.store.EditAction(ctx, id, &updated, actor, now); err != nil {
		return err
	}
	log.Info().Int64("action", id).Str("location", loc.ToDB()).Msg("action moved")
	return nil
}

// SubmitAction records a standalone audit entry not tied to any report
// (e.g. a platform-native timeout observed on the audit log).
func (s *Service) SubmitAction(ctx context.Context, a *Action) (int64, error) {
	id, err := s.store.CreateAction(ctx, a)
	if err != nil {
		return 0, err
	}
	metrics.ActionsCreated.Inc()
	log.Info().Int64("action", id).Str("target", a.TargetID).Msg("standalone action recorded")
	return id, nil
}

// RunExpirySweep expires every open report older than the configured
// threshold, measured against now. A report whose stored timestamp fails to
// parse is logged and skipped; it never aborts the sweep for the rest.
// Returns the ids that were expired.
func (s *Service) RunExpirySweep(ctx context.Context, now time.Time) ([]int64, error) {
	open, err := s.store.OpenReports(ctx)
	if err != nil {
		return nil, fmt.Errorf("expiry sweep: %w", err)
	}

	var expired []int64
	for _, r := range open {
		if err := ctx.Err(); err != nil {
			return expired, err
		}
		created, err := time.Parse(time.RFC3339, r.Time)
		if err != nil {
			log.Warn().Int64("report", r.ID).Str("time", r.Time).Msg("skipping report with unparseable timestamp")
			continue
		}
		if now.Sub(created) <= s.expiryAge {
			continue
		}
		if err := s.store.ExpireReport(ctx, r.ID); err != nil {
			log.Warn().Err(err).Int64("report", r.ID).Msg("failed to expire report")
			continue
		}
		metrics.ReportsExpired.Inc()
		expired = append(expired, r.ID)
	}
	if len(expired) > 0 {
		log.Info().Int("count", len(expired)).Msg("expired reports")
	}
	return expired, nil
}

// HealthCheck gathers the store's advisory consistency probes into one
// snapshot.
func (s *Service) HealthCheck(ctx context.Context) (*Health, error) {
	fk, err := s.store.ForeignKeyCheck(ctx)
	if err != nil {
		return nil, err
	}
	integrityOK := true
	if err := s.store.IntegrityCheck(ctx); err != nil {
		// Only actual corruption flips the flag; failing to run the check
		// is a storage error like any other.
		var ie *IntegrityError
		if !errors.As(err, &ie) {
			return nil, err
		}
		integrityOK = false
		log.Error().Err(err).Msg("database integrity check failed")
	}
	rm, err := s.store.ReportsMissingMessage(ctx)
	if err != nil {
		return nil, err
	}
	am, err := s.store.ActionsMissingMessage(ctx)
	if err != nil {
		return nil, err
	}
	return &Health{
		ForeignKeyViolations:  fk,
		IntegrityOK:           integrityOK,
		ReportsMissingMessage: rm,
		ActionsMissingMessage: am,
	}, nil
}
