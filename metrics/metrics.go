package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/discord-votebot/config"
)

const (
	// Controller
	MetricActiveVotes      = "active_votes"
	MetricCreatedVotes     = "created_votes"
	MetricFinalizedVotes   = "finalized_votes"
	MetricInterruptedVotes = "interrupted_votes"
	MetricReactionEvents   = "reaction_events"
	MetricSweepDuration    = "sweep_duration"
	MetricControllerErr    = "controller_error_count"
	// Migration
	MetricMigratedVotes   = "migrated_votes"
	MetricMigrationFailed = "migration_failed_votes"
	// Orphan wiper
	MetricOrphansWiped = "orphans_wiped"
)

type MetricService struct {
	MetricsMap map[string]prometheus.Metric
	cfg        *config.Config
}

func NewMetricService(config *config.Config) *MetricService {
	ms := make(map[string]prometheus.Metric, 0)

	// Controller
	activeVotesMetric := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: MetricActiveVotes,
		Help: "Votes currently tracked in the active set",
	})
	ms[MetricActiveVotes] = activeVotesMetric
	prometheus.MustRegister(activeVotesMetric)

	createdVotesMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricCreatedVotes,
		Help: "Votes created and activated",
	})
	ms[MetricCreatedVotes] = createdVotesMetric
	prometheus.MustRegister(createdVotesMetric)

	finalizedVotesMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricFinalizedVotes,
		Help: "Votes finalized, any trigger",
	})
	ms[MetricFinalizedVotes] = finalizedVotesMetric
	prometheus.MustRegister(finalizedVotesMetric)

	interruptedVotesMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricInterruptedVotes,
		Help: "Votes finalized by an explicit interrupt command",
	})
	ms[MetricInterruptedVotes] = interruptedVotesMetric
	prometheus.MustRegister(interruptedVotesMetric)

	reactionEventsMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricReactionEvents,
		Help: "Reaction events applied to tracked votes",
	})
	ms[MetricReactionEvents] = reactionEventsMetric
	prometheus.MustRegister(reactionEventsMetric)

	sweepDurationMetric := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: MetricSweepDuration,
		Help: "Duration of one expiry sweep over the active set",
	})
	ms[MetricSweepDuration] = sweepDurationMetric
	prometheus.MustRegister(sweepDurationMetric)

	controllerErrMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricControllerErr,
		Help: "Errors while handling reaction events or finalization",
	})
	ms[MetricControllerErr] = controllerErrMetric
	prometheus.MustRegister(controllerErrMetric)

	// Migration
	migratedVotesMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricMigratedVotes,
		Help: "Legacy votes converted into the relational schema",
	})
	ms[MetricMigratedVotes] = migratedVotesMetric
	prometheus.MustRegister(migratedVotesMetric)

	migrationFailedMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricMigrationFailed,
		Help: "Legacy votes that could not be converted",
	})
	ms[MetricMigrationFailed] = migrationFailedMetric
	prometheus.MustRegister(migrationFailedMetric)

	// Orphan wiper
	orphansWipedMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricOrphansWiped,
		Help: "Persisted-but-never-activated votes removed by the wiper",
	})
	ms[MetricOrphansWiped] = orphansWipedMetric
	prometheus.MustRegister(orphansWipedMetric)

	return &MetricService{
		MetricsMap: ms,
		cfg:        config,
	}
}

func (m *MetricService) Start() {
	http.Handle("/metrics", promhttp.Handler())
	err := http.ListenAndServe(fmt.Sprintf(":%d", m.cfg.MetricsConfig.Port), nil)
	if err != nil {
		panic(err)
	}
}

// Controller
func (m *MetricService) SetActiveVotes(count int) {
	m.MetricsMap[MetricActiveVotes].(prometheus.Gauge).Set(float64(count))
}

func (m *MetricService) IncCreatedVotes() {
	m.MetricsMap[MetricCreatedVotes].(prometheus.Counter).Inc()
}

func (m *MetricService) IncFinalizedVotes() {
	m.MetricsMap[MetricFinalizedVotes].(prometheus.Counter).Inc()
}

func (m *MetricService) IncInterruptedVotes() {
	m.MetricsMap[MetricInterruptedVotes].(prometheus.Counter).Inc()
}

func (m *MetricService) IncReactionEvents() {
	m.MetricsMap[MetricReactionEvents].(prometheus.Counter).Inc()
}

func (m *MetricService) SetSweepDuration(duration time.Duration) {
	m.MetricsMap[MetricSweepDuration].(prometheus.Histogram).Observe(duration.Seconds())
}

func (m *MetricService) IncControllerErr() {
	m.MetricsMap[MetricControllerErr].(prometheus.Counter).Inc()
}

// Migration
func (m *MetricService) IncMigratedVotes() {
	m.MetricsMap[MetricMigratedVotes].(prometheus.Counter).Inc()
}

func (m *MetricService) IncMigrationFailed() {
	m.MetricsMap[MetricMigrationFailed].(prometheus.Counter).Inc()
}

// Orphan wiper
func (m *MetricService) IncOrphansWiped() {
	m.MetricsMap[MetricOrphansWiped].(prometheus.Counter).Inc()
}
