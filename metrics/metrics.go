// Package metrics provides an interface for collecting reverse-proxy
// metrics. This package defines a generic interface that can be implemented
// by various metrics systems (Prometheus, OpenTelemetry, Datadog, etc.)
// without adding dependencies to the core cacheproxy package.
package metrics

import (
	"time"
)

// Collector defines the interface for metrics collection.
// Implementations of this interface can collect metrics for various
// monitoring systems without requiring changes to the cacheproxy core.
type Collector interface {
	// RecordCacheLookup records a cache lookup against the positive or
	// negative store.
	// Parameters:
	//   - store: "positive" or "negative"
	//   - result: "hit" or "miss"
	RecordCacheLookup(store, result string)

	// RecordCacheSize records the current number of entries held in a
	// store.
	// Parameters:
	//   - store: "positive" or "negative"
	//   - count: number of entries
	RecordCacheSize(store string, count int64)

	// RecordProxyRequest records one request handled by the Proxy Handler.
	// Parameters:
	//   - method: HTTP method
	//   - cacheStatus: "hit", "miss", or "bypass"
	//   - statusCode: HTTP status code returned to the client
	//   - duration: total handling duration
	RecordProxyRequest(method, cacheStatus string, statusCode int, duration time.Duration)

	// RecordFetchDuration records how long a single Upstream Fetcher call
	// to the origin took, regardless of outcome.
	RecordFetchDuration(outcome string, duration time.Duration)

	// RecordTunnelBytes records bytes relayed over an Upgrade Tunnel in one
	// direction for the lifetime of one upgraded connection.
	// Parameters:
	//   - direction: "client_to_origin" or "origin_to_client"
	//   - bytes: bytes copied
	RecordTunnelBytes(direction string, bytes int64)

	// RecordTunnelOpen records that an upgrade request was accepted (delta
	// +1) or closed (delta -1), for an active-tunnels gauge.
	RecordTunnelOpen(delta int)

	// RecordRefresh records one invalidation being applied.
	// Parameters:
	//   - kind: "all" or "pattern"
	RecordRefresh(kind string)
}

// NoOpCollector implements Collector with no-op operations.
// This is used as the default collector when metrics are not enabled,
// ensuring zero overhead for users who don't need metrics.
type NoOpCollector struct{}

// RecordCacheLookup does nothing (no-op implementation)
func (n *NoOpCollector) RecordCacheLookup(store, result string) {}

// RecordCacheSize does nothing (no-op implementation)
func (n *NoOpCollector) RecordCacheSize(store string, count int64) {}

// RecordProxyRequest does nothing (no-op implementation)
func (n *NoOpCollector) RecordProxyRequest(method, cacheStatus string, statusCode int, duration time.Duration) {
}

// RecordFetchDuration does nothing (no-op implementation)
func (n *NoOpCollector) RecordFetchDuration(outcome string, duration time.Duration) {}

// RecordTunnelBytes does nothing (no-op implementation)
func (n *NoOpCollector) RecordTunnelBytes(direction string, bytes int64) {}

// RecordTunnelOpen does nothing (no-op implementation)
func (n *NoOpCollector) RecordTunnelOpen(delta int) {}

// RecordRefresh does nothing (no-op implementation)
func (n *NoOpCollector) RecordRefresh(kind string) {}

// DefaultCollector is the default no-op collector used when metrics are not enabled
var DefaultCollector Collector = &NoOpCollector{}

// Verify that NoOpCollector implements Collector interface
var _ Collector = (*NoOpCollector)(nil)
