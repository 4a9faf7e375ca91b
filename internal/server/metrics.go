package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	// requests counts analyze calls. Labels: outcome (ok, invalid, rejected, failed)
	requests *prometheus.CounterVec
	// duration observes end-to-end analyze latency in seconds.
	duration prometheus.Histogram
	// pairs counts filtered pairs returned. Labels: measure
	pairs *prometheus.CounterVec
	// droppedRows counts rows removed by sanitization.
	droppedRows prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corrloom_analyze_requests_total",
				Help: "Total number of analyze requests by outcome",
			},
			[]string{"outcome"},
		),
		duration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "corrloom_analyze_duration_seconds",
				Help:    "Analyze request latency in seconds",
				Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
		pairs: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "corrloom_filtered_pairs_total",
				Help: "Total number of filtered pairs returned",
			},
			[]string{"measure"},
		),
		droppedRows: f.NewCounter(
			prometheus.CounterOpts{
				Name: "corrloom_dropped_rows_total",
				Help: "Total number of input rows dropped during sanitization",
			},
		),
	}
}
