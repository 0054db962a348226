package wesl

import (
	"github.com/prometheus/client_golang/prometheus"
)

var stageDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "wesl",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Time spent in each pipeline stage.",
		Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 18), // 10µs to ~1.3s
	},
	[]string{"stage", "result"}, // result is "success" or "error"
)

// RegisterMetrics registers the pipeline metrics with registry.
func RegisterMetrics(registry prometheus.Registerer) {
	registry.MustRegister(stageDuration)
}

func observeStage(stage string, seconds float64, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	stageDuration.WithLabelValues(stage, result).Observe(seconds)
}
