package metrics

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StatsSource provides functions to retrieve current counts for gauge metrics.
// Nil fields are skipped, so callers only wire what they have.
type StatsSource struct {
	ReportsByStatus      func(ctx context.Context) map[string]uint32
	ActionsByLocation    func(ctx context.Context) map[string]uint32
	ReportCount          func(ctx context.Context) (uint32, error)
	ActionCount          func(ctx context.Context) (uint32, error)
	ActionsWithoutReport func(ctx context.Context) (uint32, error)
	Healthy              func(ctx context.Context) (bool, int)
}

// Collect runs one collection pass against the source.
func Collect(ctx context.Context, src StatsSource) {
	if src.ReportsByStatus != nil {
		for status, count := range src.ReportsByStatus(ctx) {
			ReportsByStatus.WithLabelValues(status).Set(float64(count))
		}
	}
	if src.ActionsByLocation != nil {
		for location, count := range src.ActionsByLocation(ctx) {
			ActionsByLocation.WithLabelValues(location).Set(float64(count))
		}
	}
	if src.ReportCount != nil {
		if n, err := src.ReportCount(ctx); err == nil {
			ReportsTotal.Set(float64(n))
		}
	}
	if src.ActionCount != nil {
		if n, err := src.ActionCount(ctx); err == nil {
			ActionsTotal.Set(float64(n))
		}
	}
	if src.ActionsWithoutReport != nil {
		if n, err := src.ActionsWithoutReport(ctx); err == nil {
			ActionsWithoutReport.Set(float64(n))
		}
	}
	if src.Healthy != nil {
		healthy, violations := src.Healthy(ctx)
		if healthy {
			DatabaseHealthy.Set(1)
		} else {
			DatabaseHealthy.Set(0)
		}
		ForeignKeyViolations.Set(float64(violations))
	}
}

// RunCollector updates gauge metrics on the given interval until the context
// is cancelled. It blocks; run it under the task supervisor.
func RunCollector(ctx context.Context, src StatsSource, interval time.Duration) error {
	// Do an initial collection immediately
	Collect(ctx, src)
	log.Info().Dur("interval", interval).Msg("Metrics collector started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			Collect(ctx, src)
		}
	}
}
