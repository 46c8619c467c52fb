// Package metrics exposes the Prometheus instruments for ingestion and
// analysis. All collectors are registered on the default registry and
// served from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var RecordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "activation_analytics",
	Name:      "records_ingested_total",
	Help:      "Records accepted by ingestion, by record kind.",
}, []string{"kind"})

var IngestRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "activation_analytics",
	Name:      "records_rejected_total",
	Help:      "Records rejected by validation, by record kind.",
}, []string{"kind"})

var AnalysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "activation_analytics",
	Name:      "analysis_runs_total",
	Help:      "Completed analysis runs, by outcome.",
}, []string{"status"})

var AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "activation_analytics",
	Name:      "analysis_duration_seconds",
	Help:      "Wall clock duration of a full analysis run.",
	Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
})

var RedemptionEvents = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "activation_analytics",
	Name:      "redemption_events_total",
	Help:      "Redemption events detected across all analysis runs.",
})

var WeeklyRowsProduced = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "activation_analytics",
	Name:      "weekly_rows_last_run",
	Help:      "Weekly result rows produced by the most recent run.",
})

var DailyRowsProduced = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "activation_analytics",
	Name:      "daily_rows_last_run",
	Help:      "Daily result rows produced by the most recent run.",
})

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "activation_analytics",
	Name:      "http_requests_total",
	Help:      "HTTP requests served, by route and status class.",
}, []string{"route", "status"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "activation_analytics",
	Name:      "http_request_duration_seconds",
	Help:      "HTTP request latency, by route.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})
