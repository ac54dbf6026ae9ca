package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		genChars,
		genCallLatencySeconds,
		genStreamChunks,
	)
}

var (
	genChars = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_chars_total",
			Help: "Sum of accumulated output characters per provider/model.",
		},
		[]string{"provider", "model"},
	)

	genCallLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "generation_call_latency_seconds",
			Help:    "Streaming call latency per attempt, success and failure.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 180, 300, 600},
		},
		[]string{"provider", "model", "success"},
	)

	genStreamChunks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_stream_chunks_total",
			Help: "Number of stream chunks received per provider/model.",
		},
		[]string{"provider", "model"},
	)
)

func ObserveGeneration(provider, model string, chars int, latencySeconds float64, success bool) {
	lbl := []string{norm(provider), norm(model)}
	genChars.WithLabelValues(lbl...).Add(float64(chars))
	genCallLatencySeconds.WithLabelValues(norm(provider), norm(model), strconv.FormatBool(success)).
		Observe(latencySeconds)
}

func IncStreamChunk(provider, model string) {
	genStreamChunks.WithLabelValues(norm(provider), norm(model)).Inc()
}
