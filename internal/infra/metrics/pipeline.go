package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(retriesTotal, stallsTotal, heartbeatsTotal)
}

var (
	retriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "generation_retries_total",
			Help: "Retried streaming attempts, by failure classification.",
		},
		[]string{"kind"}, // 'rate_limited', 'overloaded', 'stalled', 'timed_out'
	)

	stallsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generation_stalls_total",
			Help: "Streaming attempts aborted by the rolling stall deadline.",
		},
	)

	heartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_heartbeats_total",
			Help: "Synthetic heartbeat events emitted to keep connections open.",
		},
	)
)

func IncRetry(kind string) { retriesTotal.WithLabelValues(norm(kind)).Inc() }
func IncStall()            { stallsTotal.Inc() }
func IncHeartbeat()        { heartbeatsTotal.Inc() }
