package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewscan_runs_total",
			Help: "Total number of detection runs by result",
		},
		[]string{"result"},
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reviewscan_run_duration_seconds",
			Help:    "Detection run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	queueLength = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reviewscan_queue_length",
			Help: "Number of companies waiting for evaluation",
		},
	)
)

// Run result labels
const (
	ResultTrusted   = "trusted"
	ResultUntrusted = "untrusted"
	ResultExists    = "exists"
	ResultError     = "error"
	ResultPanic     = "panic"
)
