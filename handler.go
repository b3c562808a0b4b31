package cacheproxy

import (
	"io"
	"net/http"
	"strings"
	"time"
)

// notFoundMetaTag is the marker a body must contain for Use404MetaTag to
// classify an origin reply of any status as a 404, per spec.md §4.7.
const notFoundMetaTag = `<meta name="phantom-404" content="true">`

// proxyHandler implements the dispatch pipeline of spec.md §4.7.
type proxyHandler struct {
	cfg     *ProxyConfig
	store   *CacheStore
	fetcher *Fetcher
	tunnel  *Tunnel
}

func (h *proxyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	// 1. Upgrade check, before the body is read: a tunnel forwards the raw
	// body bytes itself.
	if IsUpgradeRequest(r) {
		if !h.cfg.EnableUpgrades {
			http.Error(w, "upgrades disabled", http.StatusNotImplemented)
			h.cfg.Metrics.RecordProxyRequest(r.Method, "bypass", http.StatusNotImplemented, time.Since(start))
			return
		}
		h.cfg.Metrics.RecordTunnelOpen(1)
		defer h.cfg.Metrics.RecordTunnelOpen(-1)
		h.tunnel.Serve(w, r)
		return
	}

	// 2. Method gate.
	if h.cfg.GetOnly && r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		h.cfg.Metrics.RecordProxyRequest(r.Method, "bypass", http.StatusMethodNotAllowed, time.Since(start))
		return
	}

	// 3. Cacheability.
	cacheable := shouldCache(r.Method, r.URL.Path, h.cfg.Include, h.cfg.Exclude)

	// 4. Key.
	key := h.cfg.CacheKeyFunc(RequestInfo{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Headers: r.Header,
	})

	// 5. Cache lookup, only if cacheable: positive map first, then negative.
	if cacheable {
		if resp, ok := h.store.Get(key); ok {
			h.cfg.Metrics.RecordCacheLookup("positive", "hit")
			h.serveCached(w, resp, r.Method, start)
			return
		}
		h.cfg.Metrics.RecordCacheLookup("positive", "miss")

		if resp, ok := h.store.GetNegative(key); ok {
			h.cfg.Metrics.RecordCacheLookup("negative", "hit")
			h.serveCached(w, resp, r.Method, start)
			return
		}
		h.cfg.Metrics.RecordCacheLookup("negative", "miss")
	}

	// 6. Origin fetch: read the inbound body fully, then forward.
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		h.cfg.Metrics.RecordProxyRequest(r.Method, "miss", http.StatusBadRequest, time.Since(start))
		return
	}

	fetchStart := time.Now()
	result, err := h.fetcher.Fetch(r.Context(), r.Method, r.URL.Path, r.URL.RawQuery, r.Header, body)
	if err != nil {
		h.cfg.Metrics.RecordFetchDuration("error", time.Since(fetchStart))
		GetLogger().Error("upstream fetch failed", "method", r.Method, "path", r.URL.Path, "error", err)
		http.Error(w, "bad gateway", http.StatusBadGateway)
		h.cfg.Metrics.RecordProxyRequest(r.Method, "miss", http.StatusBadGateway, time.Since(start))
		return
	}
	h.cfg.Metrics.RecordFetchDuration("success", time.Since(fetchStart))

	// 7. Negative classification.
	is404 := result.Status == http.StatusNotFound ||
		(h.cfg.Use404MetaTag && strings.Contains(string(result.Body), notFoundMetaTag))

	// 8. Cache insert, only if cacheable.
	if cacheable {
		cached := CachedResponse{Status: uint16(result.Status), Header: result.Headers, Body: result.Body}
		if is404 {
			h.store.SetNegative(key, cached)
			h.cfg.Metrics.RecordCacheSize("negative", int64(h.store.SizeNegative()))
		} else {
			h.store.Set(key, cached)
			h.cfg.Metrics.RecordCacheSize("positive", int64(h.store.Size()))
		}
	}

	// 9. Respond.
	writeUpstreamResponse(w, result)
	cacheStatus := "miss"
	if !cacheable {
		cacheStatus = "bypass"
	}
	h.cfg.Metrics.RecordProxyRequest(r.Method, cacheStatus, result.Status, time.Since(start))
}

// serveCached writes a previously captured response to w. Header names that
// fail validation are skipped with a warning; construction never fails the
// request, per spec.md §4.7.
func (h *proxyHandler) serveCached(w http.ResponseWriter, resp CachedResponse, method string, start time.Time) {
	dst := w.Header()
	for k, values := range resp.Header {
		if !validHeaderName(k) {
			GetLogger().Warn("dropping invalid cached header name", "name", k)
			continue
		}
		for _, v := range values {
			dst.Add(k, v)
		}
	}
	w.WriteHeader(int(resp.Status))
	w.Write(resp.Body)
	h.cfg.Metrics.RecordProxyRequest(method, "hit", int(resp.Status), time.Since(start))
}

func writeUpstreamResponse(w http.ResponseWriter, result FetchResult) {
	dst := w.Header()
	for k, values := range result.Headers {
		if !validHeaderName(k) {
			GetLogger().Warn("dropping invalid origin header name", "name", k)
			continue
		}
		for _, v := range values {
			dst.Add(k, v)
		}
	}
	w.WriteHeader(result.Status)
	w.Write(result.Body)
}

func validHeaderName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if !httpTokenByte(c) {
			return false
		}
	}
	return true
}

func httpTokenByte(c byte) bool {
	switch {
	case c >= '0' && c <= '9', c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		return true
	}
	switch c {
	case '!', '#', '$', '%', '&', '\'', '*', '+', '-', '.', '^', '_', '`', '|', '~':
		return true
	}
	return false
}
