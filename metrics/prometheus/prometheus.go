// Package prometheus provides a Prometheus metrics.Collector for cacheproxy.
// This package is optional and only imported when Prometheus metrics are
// needed.
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/cacheproxy/cacheproxy/metrics"
)

// Collector implements metrics.Collector for Prometheus.
type Collector struct {
	cacheLookups   *prometheus.CounterVec
	cacheEntries   *prometheus.GaugeVec
	proxyRequests  *prometheus.CounterVec
	proxyDuration  *prometheus.HistogramVec
	fetchDuration  *prometheus.HistogramVec
	tunnelBytes    *prometheus.CounterVec
	tunnelsActive  prometheus.Gauge
	refreshesTotal *prometheus.CounterVec
}

// CollectorConfig provides configuration options for the Prometheus collector
type CollectorConfig struct {
	// Registry is the Prometheus registry to use. If nil, uses prometheus.DefaultRegisterer
	Registry prometheus.Registerer

	// Namespace for metrics (default: "cacheproxy")
	Namespace string

	// Subsystem for metrics (optional)
	Subsystem string

	// ConstLabels are labels added to all metrics
	ConstLabels prometheus.Labels
}

// NewCollector creates a new Prometheus collector with default registry and configuration
func NewCollector() *Collector {
	return NewCollectorWithConfig(CollectorConfig{})
}

// NewCollectorWithRegistry creates a new Prometheus collector with a custom registry
func NewCollectorWithRegistry(reg prometheus.Registerer) *Collector {
	return NewCollectorWithConfig(CollectorConfig{
		Registry: reg,
	})
}

// NewCollectorWithConfig creates a new Prometheus collector with custom configuration
func NewCollectorWithConfig(config CollectorConfig) *Collector {
	if config.Registry == nil {
		config.Registry = prometheus.DefaultRegisterer
	}
	if config.Namespace == "" {
		config.Namespace = "cacheproxy"
	}

	factory := promauto.With(config.Registry)

	return &Collector{
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "cache_lookups_total",
				Help:        "Total number of cache lookups",
				ConstLabels: config.ConstLabels,
			},
			[]string{"store", "result"},
		),
		cacheEntries: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "cache_entries",
				Help:        "Current number of entries held in a store",
				ConstLabels: config.ConstLabels,
			},
			[]string{"store"},
		),
		proxyRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "proxy_requests_total",
				Help:        "Total number of requests handled by the proxy",
				ConstLabels: config.ConstLabels,
			},
			[]string{"method", "cache_status", "status_code"},
		),
		proxyDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "proxy_request_duration_seconds",
				Help:        "Duration of proxy request handling in seconds",
				Buckets:     []float64{.001, .005, .01, .05, .1, .5, 1, 2, 5, 10},
				ConstLabels: config.ConstLabels,
			},
			[]string{"method", "cache_status"},
		),
		fetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "fetch_duration_seconds",
				Help:        "Duration of Upstream Fetcher calls in seconds",
				Buckets:     []float64{.001, .005, .01, .05, .1, .5, 1, 2, 5, 10, 30},
				ConstLabels: config.ConstLabels,
			},
			[]string{"outcome"},
		),
		tunnelBytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "tunnel_bytes_total",
				Help:        "Total bytes relayed over upgrade tunnels",
				ConstLabels: config.ConstLabels,
			},
			[]string{"direction"},
		),
		tunnelsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "tunnels_active",
				Help:        "Number of currently open upgrade tunnels",
				ConstLabels: config.ConstLabels,
			},
		),
		refreshesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   config.Namespace,
				Subsystem:   config.Subsystem,
				Name:        "refreshes_total",
				Help:        "Total number of invalidations applied",
				ConstLabels: config.ConstLabels,
			},
			[]string{"kind"},
		),
	}
}

// RecordCacheLookup records a cache lookup against a store.
func (c *Collector) RecordCacheLookup(store, result string) {
	c.cacheLookups.WithLabelValues(store, result).Inc()
}

// RecordCacheSize records the current number of entries in a store.
func (c *Collector) RecordCacheSize(store string, count int64) {
	c.cacheEntries.WithLabelValues(store).Set(float64(count))
}

// RecordProxyRequest records one request handled by the proxy.
func (c *Collector) RecordProxyRequest(method, cacheStatus string, statusCode int, duration time.Duration) {
	c.proxyRequests.WithLabelValues(method, cacheStatus, strconv.Itoa(statusCode)).Inc()
	c.proxyDuration.WithLabelValues(method, cacheStatus).Observe(duration.Seconds())
}

// RecordFetchDuration records one Upstream Fetcher call's duration.
func (c *Collector) RecordFetchDuration(outcome string, duration time.Duration) {
	c.fetchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordTunnelBytes records bytes relayed over an upgrade tunnel.
func (c *Collector) RecordTunnelBytes(direction string, bytes int64) {
	c.tunnelBytes.WithLabelValues(direction).Add(float64(bytes))
}

// RecordTunnelOpen adjusts the active-tunnels gauge by delta.
func (c *Collector) RecordTunnelOpen(delta int) {
	c.tunnelsActive.Add(float64(delta))
}

// RecordRefresh records one invalidation being applied.
func (c *Collector) RecordRefresh(kind string) {
	c.refreshesTotal.WithLabelValues(kind).Inc()
}

// Verify interface implementation at compile time
var _ metrics.Collector = (*Collector)(nil)
