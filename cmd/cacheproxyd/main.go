// Command cacheproxyd runs the caching reverse proxy and its control plane
// (cache refresh plus a Prometheus /metrics endpoint) side by side, reading
// their configuration from a single TOML file named as the program's one
// positional argument. Adapted from the original's main.rs, which spawns a
// proxy server and a control server as sibling tasks and exits if either
// stops; here that's two goroutines racing on a shared error channel.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cacheproxy/cacheproxy"
	"github.com/cacheproxy/cacheproxy/configfile"
	"github.com/cacheproxy/cacheproxy/control"
	"github.com/cacheproxy/cacheproxy/metrics/prometheus"
)

func main() {
	if err := run(); err != nil {
		slog.Error("cacheproxyd exiting", "error", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		return fmt.Errorf("usage: %s <config-file.toml>", os.Args[0])
	}
	configPath := os.Args[1]

	cfg, err := configfile.Load(configPath)
	if err != nil {
		return err
	}

	slog.Info("loaded configuration", "path", configPath)
	slog.Info("resolved server config",
		"control_port", cfg.Server.ControlPort,
		"proxy_port", cfg.Server.ProxyPort,
		"proxy_url", cfg.Server.ProxyURL,
		"include_paths", cfg.Server.IncludePaths,
		"exclude_paths", cfg.Server.ExcludePaths,
		"enable_websocket", cfg.Server.EnableWebsocket,
	)

	origin, err := url.Parse(cfg.Server.ProxyURL)
	if err != nil {
		return fmt.Errorf("parsing proxy_url: %w", err)
	}

	collector := prometheus.NewCollector()

	proxyHandler, trigger := cacheproxy.New(context.Background(), origin,
		cacheproxy.WithInclude(cfg.Server.IncludePaths...),
		cacheproxy.WithExclude(cfg.Server.ExcludePaths...),
		cacheproxy.WithUpgrades(cfg.Server.EnableWebsocket),
		cacheproxy.WithMetrics(collector),
	)

	controlHandler := control.NewHandler(trigger, cfg.Server.ControlAuth)
	controlMux := http.NewServeMux()
	controlMux.Handle("/refresh-cache", controlHandler)
	controlMux.Handle("/metrics", promhttp.Handler())

	proxyAddr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.ProxyPort)
	controlAddr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.ControlPort)

	errs := make(chan error, 2)

	go func() {
		slog.Info("proxy server listening", "addr", proxyAddr)
		errs <- fmt.Errorf("proxy server: %w", http.ListenAndServe(proxyAddr, proxyHandler))
	}()

	go func() {
		slog.Info("control server listening", "addr", controlAddr)
		errs <- fmt.Errorf("control server: %w", http.ListenAndServe(controlAddr, controlMux))
	}()

	return <-errs
}
