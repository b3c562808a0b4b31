package cacheproxy

import (
	"context"
	"net/http"
	"net/url"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"

	"github.com/cacheproxy/cacheproxy/metrics"
)

// ProxyConfig configures a proxy built by New. Zero value is not usable:
// Origin is required. Every other field has a documented default, mirroring
// the functional-options layering of the teacher's options.go.
type ProxyConfig struct {
	// Origin is the base URL every request is forwarded to.
	Origin *url.URL

	// Include and Exclude are Pattern lists per spec.md §4.1. Exclude always
	// wins when both match. An empty Include means "everything not excluded".
	Include []string
	Exclude []string

	// EnableUpgrades turns on the Upgrade Tunnel of spec.md §4.6. When false,
	// an upgrade request gets 501 Not Implemented instead of being tunneled.
	EnableUpgrades bool

	// GetOnly rejects every non-GET request with 405 Method Not Allowed
	// before the cache or the origin is consulted.
	GetOnly bool

	// Negative404Capacity bounds the 404 cache (spec.md §4.3). Zero disables
	// the separate negative map and folds 404s into the positive store
	// instead (see Open Question decision in DESIGN.md).
	Negative404Capacity int

	// Use404MetaTag additionally treats an origin response of any status
	// whose body contains the marker `<meta name="phantom-404" content="true">` as a
	// 404 for caching purposes, supplementing origins that can't be bent
	// into returning real 404 status codes, per spec.md §4.7.
	Use404MetaTag bool

	// CacheKeyFunc derives the cache key. Defaults to DefaultCacheKey.
	CacheKeyFunc CacheKeyFunc

	// HTTPClient is the outbound client used to reach Origin. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client

	// CircuitBreaker guards the Upstream Fetcher. Defaults to
	// DefaultCircuitBreaker(); WithNoCircuitBreaker leaves it nil, which turns
	// circuit breaking off entirely.
	CircuitBreaker circuitbreaker.CircuitBreaker[*http.Response]
	noBreaker      bool

	// Metrics receives operational counters/histograms. Defaults to
	// metrics.DefaultCollector (a no-op).
	Metrics metrics.Collector

	// RefreshChannel lets several proxies share one invalidation channel
	// (and therefore one RefreshTrigger), per SPEC_FULL §4's shared-trigger
	// constructor. Defaults to a private, freshly allocated channel.
	RefreshChannel *RefreshChannel
}

// Option mutates a ProxyConfig during New. Unset fields keep ProxyConfig's
// documented defaults.
type Option func(*ProxyConfig)

// WithInclude sets the include pattern list.
func WithInclude(patterns ...string) Option {
	return func(c *ProxyConfig) { c.Include = patterns }
}

// WithExclude sets the exclude pattern list.
func WithExclude(patterns ...string) Option {
	return func(c *ProxyConfig) { c.Exclude = patterns }
}

// WithUpgrades toggles the Upgrade Tunnel.
func WithUpgrades(enabled bool) Option {
	return func(c *ProxyConfig) { c.EnableUpgrades = enabled }
}

// WithGetOnly makes the proxy reject non-GET requests with 405.
func WithGetOnly(enabled bool) Option {
	return func(c *ProxyConfig) { c.GetOnly = enabled }
}

// WithNegative404Capacity sets the 404 cache's FIFO capacity.
func WithNegative404Capacity(capacity int) Option {
	return func(c *ProxyConfig) { c.Negative404Capacity = capacity }
}

// WithUse404MetaTag enables the `<meta name="phantom-404" content="true">`
// body-marker fallback for origins that can't return real 404 status codes.
func WithUse404MetaTag(enabled bool) Option {
	return func(c *ProxyConfig) { c.Use404MetaTag = enabled }
}

// WithCacheKeyFunc overrides cache key derivation.
func WithCacheKeyFunc(fn CacheKeyFunc) Option {
	return func(c *ProxyConfig) { c.CacheKeyFunc = fn }
}

// WithHTTPClient overrides the outbound client used to reach the origin.
func WithHTTPClient(client *http.Client) Option {
	return func(c *ProxyConfig) { c.HTTPClient = client }
}

// WithCircuitBreaker overrides the Upstream Fetcher's circuit breaker.
func WithCircuitBreaker(b circuitbreaker.CircuitBreaker[*http.Response]) Option {
	return func(c *ProxyConfig) { c.CircuitBreaker = b }
}

// WithNoCircuitBreaker disables circuit breaking; every fetch goes straight
// to the origin.
func WithNoCircuitBreaker() Option {
	return func(c *ProxyConfig) { c.noBreaker = true }
}

// WithMetrics overrides the operational metrics collector.
func WithMetrics(m metrics.Collector) Option {
	return func(c *ProxyConfig) { c.Metrics = m }
}

// WithRefreshChannel lets several proxies share one invalidation channel, so
// a single RefreshTrigger (from NewRefreshTrigger) can flush all of them.
func WithRefreshChannel(ch *RefreshChannel) Option {
	return func(c *ProxyConfig) { c.RefreshChannel = ch }
}

func newProxyConfig(origin *url.URL, opts ...Option) *ProxyConfig {
	c := &ProxyConfig{
		Origin:              origin,
		EnableUpgrades:      true,
		Negative404Capacity: DefaultNegativeCacheCapacity,
		CacheKeyFunc:        DefaultCacheKey,
		HTTPClient:          http.DefaultClient,
		Metrics:             metrics.DefaultCollector,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.RefreshChannel == nil {
		c.RefreshChannel = NewRefreshChannel()
	}
	if c.CircuitBreaker == nil && !c.noBreaker {
		c.CircuitBreaker = DefaultCircuitBreaker()
	}
	if c.noBreaker {
		c.CircuitBreaker = nil
	}
	return c
}

// New builds the complete proxy described by SPEC_FULL §1: a store, a
// pattern-gated cache lookup/insert pipeline, an Upstream Fetcher, an
// Upgrade Tunnel, and an Invalidation Listener wired to the returned
// trigger. The returned http.Handler is the full Proxy Handler of spec.md
// §4.7; the returned RefreshTrigger is cloneable and flushes this proxy's
// store (and any other proxy sharing the same WithRefreshChannel).
//
// The listener goroutine runs until ctx is cancelled; callers that don't
// need to tear a proxy down early can pass context.Background().
func New(ctx context.Context, origin *url.URL, opts ...Option) (http.Handler, RefreshTrigger) {
	cfg := newProxyConfig(origin, opts...)
	store := NewCacheStore(cfg.Negative404Capacity)
	startInvalidationListener(ctx, cfg.RefreshChannel, store, cfg.Metrics)

	h := &proxyHandler{
		cfg:     cfg,
		store:   store,
		fetcher: NewFetcher(cfg.Origin, cfg.HTTPClient, cfg.CircuitBreaker),
		tunnel:  NewTunnel(cfg.Origin, nil, cfg.Metrics),
	}
	return h, NewRefreshTrigger(cfg.RefreshChannel)
}
