// Package metrics exports query builder events as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/roach88/gqlgate/internal/querybuilder"
)

const (
	namespace = "gqlgate"
	subsystem = "builder"
)

var _ querybuilder.Observer = (*Collector)(nil)

// Collector implements querybuilder.Observer.
type Collector struct {
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	compiles      *prometheus.CounterVec
	fallbacks     *prometheus.CounterVec
	compileErrors *prometheus.CounterVec
	compileTime   *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg.
// A nil reg registers with prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Collector{
		// Labels: identity
		cacheHits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_hits_total",
			Help:      "Build calls answered from the query cache",
		}, []string{"identity"}),
		cacheMisses: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "cache_misses_total",
			Help:      "Build calls that missed the query cache",
		}, []string{"identity"}),
		compiles: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "compiles_total",
			Help:      "Templates compiled successfully",
		}, []string{"identity"}),
		fallbacks: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "version_fallbacks_total",
			Help:      "Build calls with an unparseable server version",
		}, []string{"identity"}),
		// Labels: identity, code (E201..E207)
		compileErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "compile_errors_total",
			Help:      "Template compilations that failed, by error code",
		}, []string{"identity", "code"}),
		compileTime: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "compile_duration_seconds",
			Help:      "Time spent compiling one template",
			Buckets:   []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05},
		}, []string{"identity"}),
	}
}

func (c *Collector) CacheHit(identity, _ string) {
	c.cacheHits.WithLabelValues(identity).Inc()
}

func (c *Collector) CacheMiss(identity, _ string) {
	c.cacheMisses.WithLabelValues(identity).Inc()
}

func (c *Collector) Compiled(identity, _ string, elapsed time.Duration) {
	c.compiles.WithLabelValues(identity).Inc()
	c.compileTime.WithLabelValues(identity).Observe(elapsed.Seconds())
}

func (c *Collector) CompileFailed(identity, _, code string) {
	c.compileErrors.WithLabelValues(identity, code).Inc()
}

func (c *Collector) VersionFallback(identity, _ string) {
	c.fallbacks.WithLabelValues(identity).Inc()
}
