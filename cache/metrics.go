package cache

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "wesl"
	subsystem = "parse_cache"
)

// Metrics holds prometheus metrics for parse caching.
type Metrics struct {
	lookups   *prometheus.CounterVec
	parseTime *prometheus.HistogramVec
}

// NewMetrics creates unregistered cache metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lookups_total",
				Help:      "Parse cache lookups.",
			},
			[]string{"outcome"}, // "hit", "shared" or "miss"
		),
		parseTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "parse_duration_seconds",
				Help:      "Time spent parsing files on cache misses.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 14), // 10µs to ~80ms
			},
			[]string{"result"}, // "success" or "error"
		),
	}
}

func (m *Metrics) lookup(outcome string) {
	if m != nil {
		m.lookups.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) observeParse(seconds float64, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.parseTime.WithLabelValues(result).Observe(seconds)
}

// MustRegister registers the metrics with the given Prometheus registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	registry.MustRegister(m.lookups)
	registry.MustRegister(m.parseTime)
}

// Lookups returns the lookup counter, labelled by outcome.
func (m *Metrics) Lookups() *prometheus.CounterVec {
	return m.lookups
}
