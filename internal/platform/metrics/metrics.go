package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the database lifecycle service.
type Metrics struct {
	DatabasesCreated  prometheus.Counter
	CreateConflicts   prometheus.Counter
	MigrationsStarted prometheus.Counter
	MigrationOutcomes *prometheus.CounterVec
	MigrationDuration prometheus.Histogram
	RequestLatency    *prometheus.HistogramVec
}

// New creates and registers all metrics with reg. Tests pass a fresh
// prometheus.NewRegistry() to avoid duplicate registration.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DatabasesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "dbmgmt_databases_created_total",
			Help: "Total number of databases created",
		}),
		CreateConflicts: f.NewCounter(prometheus.CounterOpts{
			Name: "dbmgmt_database_create_conflicts_total",
			Help: "Create attempts rejected because the database already exists",
		}),
		MigrationsStarted: f.NewCounter(prometheus.CounterOpts{
			Name: "dbmgmt_migrations_started_total",
			Help: "Migrations that passed preconditions and spawned the pipeline",
		}),
		MigrationOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dbmgmt_migration_outcomes_total",
			Help: "Migration outcomes by result and failing stage",
		}, []string{"result", "stage"}),
		MigrationDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dbmgmt_migration_duration_seconds",
			Help:    "Wall-clock duration of the dump/restore pipeline",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 300, 900, 1800, 3600},
		}),
		RequestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dbmgmt_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 5, 30},
		}, []string{"method", "route", "status"}),
	}
}

// IncrementDatabasesCreated records a successful create.
func (m *Metrics) IncrementDatabasesCreated() {
	m.DatabasesCreated.Inc()
}

// IncrementCreateConflicts records a create rejected as duplicate.
func (m *Metrics) IncrementCreateConflicts() {
	m.CreateConflicts.Inc()
}

// IncrementMigrationsStarted records a spawned pipeline.
func (m *Metrics) IncrementMigrationsStarted() {
	m.MigrationsStarted.Inc()
}

// ObserveMigration records the outcome and duration of a finished pipeline.
// stage is empty for successful migrations.
func (m *Metrics) ObserveMigration(result, stage string, d time.Duration) {
	m.MigrationOutcomes.WithLabelValues(result, stage).Inc()
	m.MigrationDuration.Observe(d.Seconds())
}

// ObserveRequest records the latency of one HTTP request.
func (m *Metrics) ObserveRequest(method, route string, status int, start time.Time) {
	m.RequestLatency.WithLabelValues(method, route, statusLabel(status)).Observe(time.Since(start).Seconds())
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
