package embedding

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docsect",
		Subsystem: "embedding",
		Name:      "requests_total",
		Help:      "Embedding calls by provider and outcome.",
	}, []string{"provider", "status"})

	textsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docsect",
		Subsystem: "embedding",
		Name:      "texts_total",
		Help:      "Texts sent to the embedding provider.",
	}, []string{"provider"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "docsect",
		Subsystem: "embedding",
		Name:      "request_duration_seconds",
		Help:      "Embedding call latency.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
	}, []string{"provider"})
)

// Instrumented wraps an Embedder with Prometheus metrics and rolling latency
// stats.
type Instrumented struct {
	Embedder
	provider string
	stats    *LatencyStats
}

// Instrument wraps e. stats may be nil.
func Instrument(e Embedder, provider string, stats *LatencyStats) *Instrumented {
	return &Instrumented{Embedder: e, provider: provider, stats: stats}
}

func (i *Instrumented) Embed(ctx context.Context, text string) (Vector, error) {
	start := time.Now()
	v, err := i.Embedder.Embed(ctx, text)
	i.observe(start, 1, err)
	return v, err
}

func (i *Instrumented) EmbedBatch(ctx context.Context, texts []string) ([]Vector, error) {
	start := time.Now()
	v, err := i.Embedder.EmbedBatch(ctx, texts)
	i.observe(start, len(texts), err)
	return v, err
}

func (i *Instrumented) observe(start time.Time, n int, err error) {
	elapsed := time.Since(start)
	status := "ok"
	if err != nil {
		status = "error"
	}
	requestsTotal.WithLabelValues(i.provider, status).Inc()
	textsTotal.WithLabelValues(i.provider).Add(float64(n))
	requestDuration.WithLabelValues(i.provider).Observe(elapsed.Seconds())
	if i.stats != nil {
		i.stats.Record(elapsed, n, err != nil)
	}
}
