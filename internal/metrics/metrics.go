package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lifecycle event counters (incremented on occurrence)
var (
	ReportsSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurkchan_reports_submitted_total",
		Help: "Total number of reports ingested",
	})

	ReportsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurkchan_reports_claimed_total",
		Help: "Total number of report claims",
	})

	ReportsClosed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurkchan_reports_closed_total",
		Help: "Total number of reports closed",
	})

	ReportsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurkchan_reports_expired_total",
		Help: "Total number of reports expired by the sweep",
	})

	ActionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurkchan_actions_created_total",
		Help: "Total number of actions recorded",
	})

	ActionsEdited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurkchan_actions_edited_total",
		Help: "Total number of action edits",
	})
)

// Database state gauges (updated periodically by the collector)
var (
	ReportsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lurkchan_reports_by_status",
		Help: "Number of reports by lifecycle status",
	}, []string{"status"})

	ActionsByLocation = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lurkchan_actions_by_location",
		Help: "Number of actions by origin platform",
	}, []string{"location"})

	ReportsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lurkchan_reports_total",
		Help: "Total number of reports in the database",
	})

	ActionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lurkchan_actions_total",
		Help: "Total number of actions in the database",
	})

	ActionsWithoutReport = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lurkchan_actions_without_report",
		Help: "Number of standalone actions not tied to any report",
	})

	DatabaseHealthy = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lurkchan_database_healthy",
		Help: "Database health (1=healthy, 0=unhealthy)",
	})

	ForeignKeyViolations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lurkchan_foreign_key_violations",
		Help: "Number of foreign key violations reported by the store",
	})
)

// Maintenance counters
var (
	BackupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lurkchan_backups_total",
		Help: "Total number of backup attempts",
	}, []string{"status"})

	ExpirySweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lurkchan_expiry_sweeps_total",
		Help: "Total number of expiry sweep runs",
	})
)
