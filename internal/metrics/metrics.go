// Package metrics exposes the console's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the console collectors on a private registry so the
// handler serves only veloview series.
type Metrics struct {
	registry *prometheus.Registry

	PollAttempts      prometheus.Counter
	ReadinessWait     prometheus.Histogram
	ReadinessOutcomes *prometheus.CounterVec
	OverlayRedraws    prometheus.Counter
	OverlaySkips      prometheus.Counter
	BackendRequests   *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		PollAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veloview_playlist_poll_attempts_total",
			Help: "Playlist readiness poll attempts.",
		}),
		ReadinessWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "veloview_readiness_wait_seconds",
			Help:    "Time from pipeline start until the playlist became playable.",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8),
		}),
		ReadinessOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "veloview_readiness_outcomes_total",
			Help: "Readiness wait outcomes by kind.",
		}, []string{"outcome"}),
		OverlayRedraws: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veloview_overlay_redraws_total",
			Help: "Overlay redraws triggered by a changed timeline index.",
		}),
		OverlaySkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "veloview_overlay_skips_total",
			Help: "Render loop callbacks skipped because the index was unchanged.",
		}),
		BackendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "veloview_backend_requests_total",
			Help: "Backend requests by endpoint and result.",
		}, []string{"endpoint", "result"}),
	}

	m.registry.MustRegister(
		m.PollAttempts,
		m.ReadinessWait,
		m.ReadinessOutcomes,
		m.OverlayRedraws,
		m.OverlaySkips,
		m.BackendRequests,
	)
	return m
}

// Handler returns the /metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
