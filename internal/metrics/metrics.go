package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ScheduledSends = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "zapboard_scheduled_sends_total",
		Help: "Processed scheduled messages by outcome.",
	}, []string{"outcome"})

	DispatchSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "zapboard_dispatch_seconds",
		Help:    "Round-trip time of a single bridge send.",
		Buckets: prometheus.DefBuckets,
	})

	TicksSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "zapboard_ticks_skipped_total",
		Help: "Scheduler ticks skipped because the bridge was not ready.",
	})

	PendingScheduled = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "zapboard_pending_scheduled",
		Help: "Scheduled messages currently pending.",
	})
)

func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		ScheduledSends,
		DispatchSeconds,
		TicksSkipped,
		PendingScheduled,
	)
}

// Handler serves the default registry at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSend records one dispatch outcome and its duration.
func ObserveSend(success bool, seconds float64) {
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	ScheduledSends.WithLabelValues(outcome).Inc()
	DispatchSeconds.Observe(seconds)
}
