// Package tasks runs the recurring background work: the open-report expiry
// sweep, database optimization, periodic backups, and metrics collection.
package tasks

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/webmsgr/lurk-chan/internal/metrics"
	"github.com/webmsgr/lurk-chan/internal/moderation"
	"github.com/webmsgr/lurk-chan/internal/tracing"
)

// Config holds the task intervals and backup settings.
type Config struct {
	ExpiryInterval   time.Duration
	OptimizeInterval time.Duration
	BackupInterval   time.Duration
	StatsInterval    time.Duration

	BackupDir  string
	BackupKeep int
}

// Supervisor owns the background task loops. All loops stop when the
// context passed to Run is cancelled.
type Supervisor struct {
	svc   *moderation.Service
	store moderation.Store
	cfg   Config
}

func NewSupervisor(svc *moderation.Service, store moderation.Store, cfg Config) *Supervisor {
	return &Supervisor{svc: svc, store: store, cfg: cfg}
}

// Run starts every task loop and blocks until the context is cancelled.
// Individual task failures are logged and retried on the next tick; only
// context cancellation ends the loops.
func (s *Supervisor) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.loop(ctx, "expiry_sweep", s.cfg.ExpiryInterval, s.runExpirySweep)
	})
	g.Go(func() error {
		return s.loop(ctx, "optimize", s.cfg.OptimizeInterval, s.store.Optimize)
	})
	g.Go(func() error {
		return s.loop(ctx, "backup", s.cfg.BackupInterval, s.runBackup)
	})
	g.Go(func() error {
		return metrics.RunCollector(ctx, s.statsSource(), s.cfg.StatsInterval)
	})

	return g.Wait()
}

// loop runs fn immediately, then once per interval until the context is
// cancelled. The immediate run matters for slow cadences: a process that
// restarts more often than the backup interval would otherwise never back
// up at all.
func (s *Supervisor) loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) error {
	log.Info().Str("task", name).Dur("interval", interval).Msg("Task started")
	s.runOnce(ctx, name, fn)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("task", name).Msg("Task stopped")
			return nil
		case <-ticker.C:
			s.runOnce(ctx, name, fn)
		}
	}
}

func (s *Supervisor) runOnce(ctx context.Context, name string, fn func(context.Context) error) {
	ctx, span := tracing.TaskSpan(ctx, name)
	start := time.Now()
	err := fn(ctx)
	tracing.EndWithError(span, err)
	if err != nil {
		log.Error().Err(err).Str("task", name).Msg("Task run failed")
		return
	}
	log.Debug().Str("task", name).Dur("took", time.Since(start)).Msg("Task run finished")
}

func (s *Supervisor) runExpirySweep(ctx context.Context) error {
	expired, err := s.svc.RunExpirySweep(ctx, time.Now().UTC())
	metrics.ExpirySweepsTotal.Inc()
	if err != nil {
		return err
	}
	if len(expired) > 0 {
		log.Info().Ints64("reports", expired).Msg("Expired stale open reports")
	}
	return nil
}

// statsSource adapts the store's aggregate queries into the metrics
// collector's shape.
func (s *Supervisor) statsSource() metrics.StatsSource {
	return metrics.StatsSource{
		ReportsByStatus: func(ctx context.Context) map[string]uint32 {
			statuses := []moderation.ReportStatus{
				moderation.StatusOpen,
				moderation.StatusClaimed,
				moderation.StatusClosed,
				moderation.StatusExpired,
			}
			out := make(map[string]uint32, len(statuses))
			for _, status := range statuses {
				n, err := s.store.CountReportsByStatus(ctx, status)
				if err != nil {
					log.Warn().Err(err).Str("status", status.ToDB()).Msg("Failed to count reports by status")
					continue
				}
				out[status.ToDB()] = n
			}
			return out
		},
		ActionsByLocation: func(ctx context.Context) map[string]uint32 {
			locations := []moderation.Location{moderation.LocationSL, moderation.LocationDiscord}
			out := make(map[string]uint32, len(locations))
			for _, loc := range locations {
				n, err := s.store.CountActionsByLocation(ctx, loc)
				if err != nil {
					log.Warn().Err(err).Str("location", loc.ToDB()).Msg("Failed to count actions by location")
					continue
				}
				out[loc.ToDB()] = n
			}
			return out
		},
		ReportCount:          s.store.TotalReports,
		ActionCount:          s.store.TotalActions,
		ActionsWithoutReport: s.store.CountActionsWithoutReport,
		Healthy: func(ctx context.Context) (bool, int) {
			h, err := s.svc.HealthCheck(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("Health check failed")
				return false, 0
			}
			return h.IntegrityOK && h.ForeignKeyViolations == 0, h.ForeignKeyViolations
		},
	}
}
