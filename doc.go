// Package cacheproxy implements a caching reverse proxy. It sits in front of
// a backend origin server, serves previously-captured responses from an
// in-memory store, and passes through protocol upgrades (WebSocket and
// similar) and every request its include/exclude patterns mark as
// non-cacheable. Any method, mutating ones included, is cacheable unless a
// pattern excludes it or the proxy is restricted to GET.
//
// The cache is invalidated externally through a RefreshTrigger (full flush
// or wildcard-pattern match), letting an upstream system such as a
// prerenderer or a CMS publish hook evict stale entries on demand.
//
// Disk persistence, distributed cache coherence, TLS termination,
// conditional-request revalidation against the origin, content
// transformation and TTL-based expiry are all out of scope: entries live
// until they are explicitly invalidated or evicted for capacity.
package cacheproxy
