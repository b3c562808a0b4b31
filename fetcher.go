package cacheproxy

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

// hopByHopHeaders are stripped before forwarding a request to the origin, per
// spec.md §4.5 / §9 ("Implementers should strip the full RFC-7230
// hop-by-hop set on the non-upgrade path"). Upgrade is only stripped here —
// the Upgrade Tunnel (tunnel.go) forwards it verbatim on its own path.
var hopByHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Transfer-Encoding",
	"TE",
	"Trailer",
	"Proxy-Authorization",
	"Proxy-Authenticate",
	"Upgrade",
}

// FetchResult is a captured origin reply, returned by Fetcher.Fetch on
// success.
type FetchResult struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Fetcher wraps an outbound *http.Client, forwarding method, headers (minus
// hop-by-hop) and body to the configured origin. Retrying is explicitly out
// of scope (spec.md §4.7/§9: "Nothing is retried by the core"); the only
// resilience primitive wired in is an optional circuit breaker that fails
// fast instead of hammering a down origin, adapted from the teacher's
// resilience.go.
type Fetcher struct {
	client  *http.Client
	base    *url.URL
	breaker circuitbreaker.CircuitBreaker[*http.Response]
}

// NewFetcher builds a Fetcher targeting baseURL. client defaults to
// http.DefaultClient when nil. breaker may be nil to disable circuit
// breaking entirely.
func NewFetcher(baseURL *url.URL, client *http.Client, breaker circuitbreaker.CircuitBreaker[*http.Response]) *Fetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &Fetcher{client: client, base: baseURL, breaker: breaker}
}

// DefaultCircuitBreaker returns a breaker pre-configured with sensible
// defaults for proxying to a single origin, mirroring the teacher's
// CircuitBreakerBuilder: it opens after 5 consecutive failures (errors or
// 5xx), and probes again after 30 seconds.
func DefaultCircuitBreaker() circuitbreaker.CircuitBreaker[*http.Response] {
	return circuitbreaker.NewBuilder[*http.Response]().
		HandleIf(func(r *http.Response, err error) bool {
			if err != nil {
				return true
			}
			return r != nil && r.StatusCode >= 500
		}).
		WithFailureThreshold(5).
		WithSuccessThreshold(2).
		WithDelay(30 * time.Second).
		Build()
}

// Fetch forwards one request to the origin and returns its captured reply.
// The returned error, when non-nil, always corresponds to the "Upstream
// failure" taxonomy entry in spec.md §7 (connect/send/receive/handshake) and
// should be surfaced to the client as 502 Bad Gateway.
func (f *Fetcher) Fetch(ctx context.Context, method, path, query string, headers http.Header, body []byte) (FetchResult, error) {
	target := *f.base
	target.Path = singleJoiningSlash(f.base.Path, path)
	target.RawQuery = query

	do := func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, method, target.String(), bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("building origin request: %w", err)
		}
		req.Header = cloneForwardHeaders(headers)
		return f.client.Do(req)
	}

	var resp *http.Response
	var err error
	if f.breaker != nil {
		resp, err = failsafe.With[*http.Response](f.breaker).Get(do)
	} else {
		resp, err = do()
	}
	if err != nil {
		return FetchResult{}, fmt.Errorf("fetching from origin: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return FetchResult{}, fmt.Errorf("reading origin response body: %w", err)
	}

	return FetchResult{Status: resp.StatusCode, Headers: resp.Header.Clone(), Body: respBody}, nil
}

// cloneForwardHeaders copies headers for the outbound request, dropping Host
// (the client synthesizes it from the target URL, per spec.md §4.5) and
// every hop-by-hop header. Header names are matched case-insensitively via
// strings.EqualFold.
func cloneForwardHeaders(in http.Header) http.Header {
	out := make(http.Header, len(in))
	for k, v := range in {
		if strings.EqualFold(k, "Host") {
			continue
		}
		if isHopByHop(k) {
			continue
		}
		vv := make([]string, len(v))
		copy(vv, v)
		out[k] = vv
	}
	return out
}

func isHopByHop(name string) bool {
	for _, h := range hopByHopHeaders {
		if strings.EqualFold(h, name) {
			return true
		}
	}
	return false
}

func singleJoiningSlash(a, b string) string {
	aslash := strings.HasSuffix(a, "/")
	bslash := strings.HasPrefix(b, "/")
	switch {
	case aslash && bslash:
		return a + b[1:]
	case !aslash && !bslash:
		return a + "/" + b
	}
	return a + b
}
