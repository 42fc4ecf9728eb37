package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitegen",
			Subsystem: "generation",
			Name:      "generations_total",
			Help:      "网站生成尝试总数，按模式与结果区分。",
		},
		[]string{"mode", "outcome"},
	)

	generationChunksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sitegen",
			Subsystem: "generation",
			Name:      "chunks_total",
			Help:      "转发给客户端的增量片段总数。",
		},
		[]string{"mode"},
	)

	generationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sitegen",
			Subsystem: "generation",
			Name:      "duration_seconds",
			Help:      "一次生成从增强到落库的耗时（秒）。",
			Buckets:   []float64{1, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"mode", "outcome"},
	)
)

// Generation outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// ObserveGeneration records one finished generation attempt.
func ObserveGeneration(mode, outcome string, chunks int, elapsed time.Duration) {
	generationsTotal.WithLabelValues(mode, outcome).Inc()
	generationChunksTotal.WithLabelValues(mode).Add(float64(chunks))
	generationDuration.WithLabelValues(mode, outcome).Observe(elapsed.Seconds())
}
