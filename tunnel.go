package cacheproxy

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/cacheproxy/cacheproxy/metrics"
)

// Tunnel implements the Upgrade Tunnel of spec.md §4.6: it dials a fresh TCP
// connection to the origin, replays the HTTP/1.1 handshake, and — once the
// origin answers 101 Switching Protocols — splices the two connections
// together for the lifetime of the upgrade. Adapted from the bidirectional
// copy in the original's handle_upgrade_request, expressed with
// net/http.Hijacker and io.Copy instead of hyper::upgrade.
type Tunnel struct {
	base    *url.URL
	dial    func(ctx context.Context, network, addr string) (net.Conn, error)
	metrics metrics.Collector
}

// NewTunnel builds a Tunnel targeting baseURL's host. A nil dial defaults to
// (&net.Dialer{}).DialContext. A nil collector defaults to metrics.DefaultCollector.
func NewTunnel(baseURL *url.URL, dial func(ctx context.Context, network, addr string) (net.Conn, error), collector metrics.Collector) *Tunnel {
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &Tunnel{base: baseURL, dial: dial, metrics: collector}
}

// IsUpgradeRequest reports whether r carries an Upgrade header or a
// Connection header whose token list contains "upgrade", per spec.md §4.6
// ("the inbound headers contain Upgrade or a Connection value ... upgrade").
// It must be checked before the request body is read, since a tunnel
// forwards the raw body bytes itself.
func IsUpgradeRequest(r *http.Request) bool {
	return headerTokenContains(r.Header, "Connection", "upgrade") || r.Header.Get("Upgrade") != ""
}

func headerTokenContains(h http.Header, name, token string) bool {
	for _, v := range h.Values(name) {
		for _, part := range strings.Split(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), token) {
				return true
			}
		}
	}
	return false
}

// originAddr resolves host:port for the tunnel's target, defaulting the port
// from the base URL's scheme per spec.md §4.6 (443 for https, 80 otherwise).
func (t *Tunnel) originAddr() string {
	if t.base.Port() != "" {
		return t.base.Host
	}
	port := "80"
	if t.base.Scheme == "https" {
		port = "443"
	}
	return net.JoinHostPort(t.base.Hostname(), port)
}

// Serve hijacks w's connection, replays r against the origin over a fresh
// TCP connection, and either relays a non-101 origin response verbatim or
// switches both sides into raw byte-copy mode. It never returns an error the
// caller needs to turn into an HTTP status: if w cannot be hijacked Serve
// answers 500 itself; once the inbound connection is hijacked, a failed dial
// or handshake is logged, answered with a raw 502 written to that
// connection, and the connection is closed, matching the Rust original's
// best-effort teardown on a broken handshake.
func (t *Tunnel) Serve(w http.ResponseWriter, r *http.Request) {
	hijacker, ok := w.(http.Hijacker)
	if !ok {
		http.Error(w, "upgrade not supported by this server", http.StatusInternalServerError)
		return
	}

	clientConn, clientBuf, err := hijacker.Hijack()
	if err != nil {
		GetLogger().Warn("tunnel hijack failed", "error", err)
		return
	}
	defer clientConn.Close()

	originConn, err := t.dial(r.Context(), "tcp", t.originAddr())
	if err != nil {
		writeRawResponse(clientConn, http.StatusBadGateway, "failed to connect to origin")
		GetLogger().Warn("tunnel dial failed", "addr", t.originAddr(), "error", err)
		return
	}
	defer originConn.Close()

	if err := r.Write(originConn); err != nil {
		writeRawResponse(clientConn, http.StatusBadGateway, "failed to forward handshake to origin")
		GetLogger().Warn("tunnel handshake write failed", "error", err)
		return
	}

	originReader := bufio.NewReader(originConn)
	originResp, err := http.ReadResponse(originReader, r)
	if err != nil {
		writeRawResponse(clientConn, http.StatusBadGateway, "failed to read origin handshake response")
		GetLogger().Warn("tunnel handshake read failed", "error", err)
		return
	}
	defer originResp.Body.Close()

	if originResp.StatusCode != http.StatusSwitchingProtocols {
		// The origin declined the upgrade; relay its answer verbatim and stop.
		originResp.Write(clientConn)
		return
	}

	if err := originResp.Write(clientConn); err != nil {
		GetLogger().Warn("tunnel failed writing 101 response to client", "error", err)
		return
	}

	done := make(chan struct{}, 2)
	go func() {
		n, _ := io.Copy(originConn, clientBuf)
		t.metrics.RecordTunnelBytes("client_to_origin", n)
		GetLogger().Debug("tunnel client->origin closed", "bytes", n)
		done <- struct{}{}
	}()
	go func() {
		n, _ := io.Copy(clientConn, originReader)
		t.metrics.RecordTunnelBytes("origin_to_client", n)
		GetLogger().Debug("tunnel origin->client closed", "bytes", n)
		done <- struct{}{}
	}()
	<-done
	<-done
}

func writeRawResponse(w io.Writer, status int, msg string) {
	fmt.Fprintf(w, "HTTP/1.1 %d %s\r\nContent-Length: %d\r\nConnection: close\r\n\r\n%s",
		status, http.StatusText(status), len(msg), msg)
}
