// Package metrics — прометеевские метрики консоли и клиента-стены.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Traffic: кадры, ушедшие в hub, по топикам
	FramesBroadcast *prometheus.CounterVec

	// Errors: кадры, не доставленные медленным подписчикам
	FramesDropped *prometheus.CounterVec

	// Saturation: живые SSE-подписчики по топикам
	StreamSubscribers *prometheus.GaugeVec

	// Resilience: переподключения клиента-стены
	StreamReconnects *prometheus.CounterVec

	// Latency: сколько занимают обращения к LLM
	AICallDuration *prometheus.HistogramVec

	// Saturation: состояние Circuit Breaker LLM (0 - ок, 1 - выбило)
	CircuitBreakerState prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern — без регистратора метрики летят в никуда
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		FramesBroadcast: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "tunnelops_stream_frames_total",
			Help: "Total number of frames broadcast per topic.",
		}, []string{"topic"}),

		FramesDropped: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "tunnelops_stream_frames_dropped_total",
			Help: "Frames dropped due to slow subscribers.",
		}, []string{"topic"}),

		StreamSubscribers: promauto.With(reg).NewGaugeVec(prometheus.GaugeOpts{
			Name: "tunnelops_stream_subscribers",
			Help: "Current number of live SSE subscribers per topic.",
		}, []string{"topic"}),

		StreamReconnects: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "tunnelops_stream_reconnects_total",
			Help: "Reconnect attempts of the wall client per topic.",
		}, []string{"topic"}),

		AICallDuration: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tunnelops_ai_call_duration_seconds",
			Help:    "Histogram of LLM call latencies.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"provider", "status"}),

		CircuitBreakerState: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "tunnelops_ai_circuit_breaker_state",
			Help: "Current state of the LLM circuit breaker (0=closed, 1=open).",
		}),
	}
}
