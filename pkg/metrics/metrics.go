// Package metrics exposes Prometheus counters for the engine, the effect
// stream and ingestion.
package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "passages_transitions_total",
		Help: "Selection state transitions by target state",
	}, []string{"to"})
	BoundaryHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "passages_boundary_hits_total",
		Help: "Navigation requests that hit the first or last waypoint",
	})
	CommandErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "passages_command_errors_total",
		Help: "Rejected selection commands by command",
	}, []string{"command"})
	AnimationsScheduledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "passages_animations_scheduled_total",
		Help: "Animation tasks scheduled",
	})
	AnimationsFiredTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "passages_animations_fired_total",
		Help: "Animation tasks fired by task kind",
	}, []string{"task"})
	AnimationsCancelledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "passages_animations_cancelled_total",
		Help: "Animation tasks cancelled before firing",
	})
	EffectsDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "passages_effects_dropped_total",
		Help: "Effects dropped for slow stream subscribers",
	})
	StreamSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "passages_stream_subscribers",
		Help: "Connected effect stream subscribers",
	})
	NarrativesLoaded = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "passages_narratives",
		Help: "Narratives in the collection by inclusion",
	}, []string{"included"})
	IngestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "passages_ingest_duration_ms",
		Help:    "Table fetch and decode duration in milliseconds",
		Buckets: []float64{10, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
	}, []string{"table"})
	IngestFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "passages_ingest_failures_total",
		Help: "Failed table fetches",
	}, []string{"table"})
	UpstreamEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "passages_upstream_events_total",
		Help: "Upstream cache and API outcomes by provider",
	}, []string{"provider", "event"})
	HTTPRequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "passages_http_request_duration_ms",
		Help:    "API request duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"method", "status"})
)

func init() {
	prometheus.MustRegister(TransitionsTotal)
	prometheus.MustRegister(BoundaryHitsTotal)
	prometheus.MustRegister(CommandErrorsTotal)
	prometheus.MustRegister(AnimationsScheduledTotal)
	prometheus.MustRegister(AnimationsFiredTotal)
	prometheus.MustRegister(AnimationsCancelledTotal)
	prometheus.MustRegister(EffectsDroppedTotal)
	prometheus.MustRegister(StreamSubscribers)
	prometheus.MustRegister(NarrativesLoaded)
	prometheus.MustRegister(IngestDurationMs)
	prometheus.MustRegister(IngestFailuresTotal)
	prometheus.MustRegister(UpstreamEventsTotal)
	prometheus.MustRegister(HTTPRequestDurationMs)
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Animations reports scheduler activity to the animation counters.
type Animations struct{}

func (Animations) TasksScheduled(n int) {
	AnimationsScheduledTotal.Add(float64(n))
}

// TaskFired labels by the task name up to its first dash, so "counter-12"
// counts as "counter".
func (Animations) TaskFired(name string) {
	kind, _, _ := strings.Cut(name, "-")
	AnimationsFiredTotal.WithLabelValues(kind).Inc()
}

func (Animations) TasksCancelled(n int) {
	AnimationsCancelledTotal.Add(float64(n))
}

// Upstream counts a tracker event.
func Upstream(provider, event string) {
	UpstreamEventsTotal.WithLabelValues(provider, event).Inc()
}

// SetNarratives publishes the collection size.
func SetNarratives(included, excluded int) {
	NarrativesLoaded.WithLabelValues("true").Set(float64(included))
	NarrativesLoaded.WithLabelValues("false").Set(float64(excluded))
}
