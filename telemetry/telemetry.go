// Package telemetry holds the Prometheus collectors for pipeline stages,
// geocoding, and the HTTP API.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Geocode lookup outcomes.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupError   = "error"
	LookupSkipped = "skipped"
)

var (
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rentprice_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"stage", "status"},
	)

	RowsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentprice_rows_dropped_total",
			Help: "Rows excluded by the cleaner, by reason",
		},
		[]string{"reason"},
	)

	RowWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentprice_row_warnings_total",
			Help: "Row-level transform failures that left the row unchanged",
		},
		[]string{"column"},
	)

	GeocodeLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rentprice_geocode_lookups_total",
			Help: "Reverse geocode lookups by outcome",
		},
		[]string{"result"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rentprice_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	ModelScore = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rentprice_model_metric",
			Help: "Evaluation metrics of the most recent training run",
		},
		[]string{"metric"},
	)
)

// RecordStage observes a stage duration.
func RecordStage(stage string, ok bool, d time.Duration) {
	status := "ok"
	if !ok {
		status = "error"
	}
	StageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// RecordRowsDropped counts rows excluded for reason.
func RecordRowsDropped(reason string, n int) {
	if n > 0 {
		RowsDropped.WithLabelValues(reason).Add(float64(n))
	}
}

// RecordGeocode counts one lookup outcome.
func RecordGeocode(result string) {
	GeocodeLookups.WithLabelValues(result).Inc()
}

// RecordAPIRequest observes one API request.
func RecordAPIRequest(method, route, status string, d time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// RecordMetrics publishes evaluation metrics.
func RecordMetrics(values map[string]float64) {
	for name, v := range values {
		ModelScore.WithLabelValues(name).Set(v)
	}
}
