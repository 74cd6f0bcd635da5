package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docsect",
		Subsystem: "pipeline",
		Name:      "runs_total",
		Help:      "Analyses by outcome (completed, no_results, failed).",
	}, []string{"outcome"})

	documentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docsect",
		Subsystem: "pipeline",
		Name:      "documents_total",
		Help:      "Input documents by parse result.",
	}, []string{"result"})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "docsect",
		Subsystem: "pipeline",
		Name:      "run_duration_seconds",
		Help:      "Wall time of one analysis.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "docsect",
		Subsystem: "pipeline",
		Name:      "queue_depth",
		Help:      "Jobs waiting for a worker.",
	})
)
