package sweep

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "probesweep"

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Total number of sweep points executed",
		},
		[]string{"outcome"}, // outcome: "success", "degraded", "failed", "abandoned"
	)

	runDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Engine wall-clock time per completed run",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 16),
		},
	)

	pointsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "points_dropped_total",
			Help:      "Sweep points never started because the sweep was interrupted",
		},
	)

	pointsInflight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "points_inflight",
			Help:      "Sweep points currently executing",
		},
	)
)
