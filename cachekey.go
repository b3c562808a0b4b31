package cacheproxy

import "net/http"

// RequestInfo is the input to a CacheKeyFunc. It borrows the request's
// header map rather than copying it; implementations must not retain it
// beyond the call, per spec.md §3.
type RequestInfo struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
}

// CacheKeyFunc derives an opaque CacheKey from a RequestInfo. It must be
// idempotent: the same RequestInfo always yields the same key (spec.md §8,
// property 8). Implementations are called on every request and must be
// safe for concurrent use.
type CacheKeyFunc func(RequestInfo) CacheKey

// DefaultCacheKey is the cache-key function used when a ProxyConfig doesn't
// supply one: "METHOD:PATH" when the query string is empty, otherwise
// "METHOD:PATH?QUERY", per spec.md §3.
func DefaultCacheKey(info RequestInfo) CacheKey {
	if info.Query == "" {
		return info.Method + ":" + info.Path
	}
	return info.Method + ":" + info.Path + "?" + info.Query
}
