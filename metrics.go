package pagenav

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Round trip kinds reported by Metrics.
const (
	tripForward  = "forward"
	tripReverse  = "reverse"
	tripBackward = "backward"
	tripWalk     = "walk"
	tripCount    = "count"
)

// Metrics collects the round trips an Engine makes to its store. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	roundTrips *prometheus.CounterVec
	failures   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	superseded prometheus.Counter
	countCache *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg when reg is
// not nil. Engines sharing one Metrics aggregate into the same series.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		roundTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_round_trips_total",
			Help:      "Requests sent to the store, by kind.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_failures_total",
			Help:      "Failed store requests, by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_request_duration_seconds",
			Help:      "Store request latency, by kind.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "navigations_superseded_total",
			Help:      "Navigations discarded because a newer one started.",
		}),
		countCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "count_cache_lookups_total",
			Help:      "Count cache lookups, by result.",
		}, []string{"result"}),
	}

	if reg != nil {
		reg.MustRegister(m.roundTrips, m.failures, m.duration, m.superseded, m.countCache)
	}

	return m
}

func (m *Metrics) observe(kind string, start time.Time, err error) {
	if m == nil {
		return
	}

	m.roundTrips.WithLabelValues(kind).Inc()
	m.duration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) supersede() {
	if m == nil {
		return
	}

	m.superseded.Inc()
}

func (m *Metrics) cacheLookup(result string) {
	if m == nil {
		return
	}

	m.countCache.WithLabelValues(result).Inc()
}
