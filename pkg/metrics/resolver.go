package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ResolverMetrics tracks price resolution latency and outcomes.
type ResolverMetrics struct {
	duration *prometheus.HistogramVec
	misses   *prometheus.CounterVec
}

// NewResolverMetrics registers resolver metrics on the provided registerer.
func NewResolverMetrics(reg prometheus.Registerer) *ResolverMetrics {
	if reg == nil {
		return &ResolverMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "resolve_duration_seconds",
		Help:    "Duration of price resolution calls in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "resolve_price_miss_total",
		Help: "Resolution calls that found no live price for the key.",
	}, []string{"op"})
	reg.MustRegister(duration, misses)
	return &ResolverMetrics{duration: duration, misses: misses}
}

// ObserveDuration records the duration of the named resolution op.
func (r *ResolverMetrics) ObserveDuration(op string, duration time.Duration) {
	if r == nil || r.duration == nil {
		return
	}
	r.duration.WithLabelValues(normalizeLabel(op)).Observe(duration.Seconds())
}

// IncMiss counts a resolution that found no live price.
func (r *ResolverMetrics) IncMiss(op string) {
	if r == nil || r.misses == nil {
		return
	}
	r.misses.WithLabelValues(normalizeLabel(op)).Inc()
}
