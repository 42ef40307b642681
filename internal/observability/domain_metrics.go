package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	agentTurnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealdesk_agent_turns_total",
			Help: "Total number of agent turns by terminal status.",
		},
		[]string{"status"},
	)
	agentRepairAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dealdesk_agent_repair_attempts",
			Help:    "Repair attempts consumed per agent turn.",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)
	generationFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealdesk_generation_failures_total",
			Help: "Total number of SQL generation failures by reason.",
		},
		[]string{"reason"},
	)
	validationRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dealdesk_validation_rejections_total",
			Help: "Total number of SQL candidates rejected by the validator, by reason.",
		},
		[]string{"reason"},
	)
	queryDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dealdesk_query_duration_seconds",
			Help:    "Query execution latency against the sales database.",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	)
	queryRowsReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dealdesk_query_rows_returned",
			Help:    "Rows returned per executed query, post row-limit.",
			Buckets: []float64{0, 1, 10, 50, 100, 250, 500, 1000},
		},
	)
)

func init() {
	prometheus.MustRegister(
		agentTurnsTotal,
		agentRepairAttempts,
		generationFailuresTotal,
		validationRejectionsTotal,
		queryDurationSeconds,
		queryRowsReturned,
	)
}

func RecordAgentTurn(status string, repairAttempts int) {
	agentTurnsTotal.WithLabelValues(status).Inc()
	agentRepairAttempts.Observe(float64(repairAttempts))
}

func RecordGenerationFailure(reason string) {
	generationFailuresTotal.WithLabelValues(reason).Inc()
}

func RecordValidationRejection(reason string) {
	validationRejectionsTotal.WithLabelValues(reason).Inc()
}

func RecordQueryExecution(duration time.Duration, rows int) {
	queryDurationSeconds.Observe(duration.Seconds())
	queryRowsReturned.Observe(float64(rows))
}
