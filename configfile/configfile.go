// Package configfile loads the TOML configuration document described in
// spec.md §6: a single [server] table giving the proxy and control ports,
// the origin URL, path policy, and upgrade/auth toggles. Missing fields take
// the documented defaults, following the metadata-driven default pattern the
// wider Go ecosystem uses BurntSushi/toml for (e.g. Trickster's
// internal/config).
package configfile

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

const (
	defaultControlPort = 17809
	defaultProxyPort   = 3000
)

// Config is the root of the TOML document.
type Config struct {
	Server ServerConfig `toml:"server"`
}

// ServerConfig is the [server] table.
type ServerConfig struct {
	ControlPort     uint16   `toml:"control_port"`
	ProxyPort       uint16   `toml:"proxy_port"`
	ProxyURL        string   `toml:"proxy_url"`
	IncludePaths    []string `toml:"include_paths"`
	ExcludePaths    []string `toml:"exclude_paths"`
	EnableWebsocket bool     `toml:"enable_websocket"`
	ControlAuth     string   `toml:"control_auth"`
}

// Load reads and parses the TOML document at path, applying defaults for
// every field the document's [server] table omits.
func Load(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("parsing config file %q: %w", path, err)
	}
	applyDefaults(&cfg, &meta)
	return cfg, nil
}

func applyDefaults(cfg *Config, meta *toml.MetaData) {
	if !meta.IsDefined("server", "control_port") {
		cfg.Server.ControlPort = defaultControlPort
	}
	if !meta.IsDefined("server", "proxy_port") {
		cfg.Server.ProxyPort = defaultProxyPort
	}
	// EnableWebsocket defaults to true per spec.md §6 ("Default true"),
	// unlike the TOML zero value: only honor an explicit false.
	if !meta.IsDefined("server", "enable_websocket") {
		cfg.Server.EnableWebsocket = true
	}
}
