package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Anomaly detection metrics
	detectionRunsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "costlens",
			Subsystem: "detector",
			Name:      "runs_total",
			Help:      "Total number of anomaly detection runs",
		},
	)

	anomaliesDetectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costlens",
			Subsystem: "detector",
			Name:      "anomalies_total",
			Help:      "Total number of detected anomalies",
		},
		[]string{"severity", "provider"},
	)

	detectionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "costlens",
			Subsystem: "detector",
			Name:      "run_duration_seconds",
			Help:      "Duration of anomaly detection runs in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	groupsSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "costlens",
			Subsystem: "detector",
			Name:      "groups_skipped_total",
			Help:      "Number of service groups skipped due to per-group failures",
		},
	)

	ensembleTrainingsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "costlens",
			Subsystem: "detector",
			Name:      "ensemble_trainings_total",
			Help:      "Number of ensemble model trainings",
		},
	)

	// Forecast metrics
	forecastRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "costlens",
			Subsystem: "forecaster",
			Name:      "runs_total",
			Help:      "Total number of forecast runs",
		},
		[]string{"model", "status"},
	)

	forecastDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "costlens",
			Subsystem: "forecaster",
			Name:      "run_duration_seconds",
			Help:      "Duration of forecast runs in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)
)

// RecordDetectionRun records a completed detection run
func RecordDetectionRun(duration time.Duration) {
	detectionRunsTotal.Inc()
	detectionDuration.Observe(duration.Seconds())
}

// RecordAnomaly records a detected anomaly
func RecordAnomaly(severity, provider string) {
	anomaliesDetectedTotal.WithLabelValues(severity, provider).Inc()
}

// RecordGroupSkipped records a skipped service group
func RecordGroupSkipped() {
	groupsSkippedTotal.Inc()
}

// RecordEnsembleTraining records an ensemble model training
func RecordEnsembleTraining() {
	ensembleTrainingsTotal.Inc()
}

// RecordForecastRun records a completed forecast run
func RecordForecastRun(model, status string, duration time.Duration) {
	forecastRunsTotal.WithLabelValues(model, status).Inc()
	forecastDuration.Observe(duration.Seconds())
}
