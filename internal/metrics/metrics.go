// Package metrics holds the Prometheus collectors exposed at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is separate from the global default so tests can gather it without
// picking up collectors registered by libraries.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

var (
	ContentSaves = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitecms",
		Name:      "content_saves_total",
		Help:      "Content save attempts by result.",
	}, []string{"result"})

	StoreWrites = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitecms",
		Name:      "store_writes_total",
		Help:      "Document store mutations by operation and result.",
	}, []string{"op", "result"})

	EditorSessions = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitecms",
		Name:      "editor_sessions",
		Help:      "Open editing sessions.",
	})

	WatchSubscriptions = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitecms",
		Name:      "watch_subscriptions",
		Help:      "Live-update stream subscribers.",
	})

	ReviewsSubmitted = factory.NewCounter(prometheus.CounterOpts{
		Namespace: "sitecms",
		Name:      "reviews_submitted_total",
		Help:      "Reviews accepted from visitors.",
	})

	ImageNormalizeSeconds = factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: "sitecms",
		Name:      "image_normalize_seconds",
		Help:      "Time spent decoding, scaling and re-encoding uploads.",
		Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
