package configfile

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeTempConfig(t, `
[server]
proxy_url = "http://origin:8080"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ControlPort != defaultControlPort {
		t.Errorf("ControlPort = %d, want %d", cfg.Server.ControlPort, defaultControlPort)
	}
	if cfg.Server.ProxyPort != defaultProxyPort {
		t.Errorf("ProxyPort = %d, want %d", cfg.Server.ProxyPort, defaultProxyPort)
	}
	if !cfg.Server.EnableWebsocket {
		t.Error("EnableWebsocket should default to true")
	}
	if cfg.Server.ProxyURL != "http://origin:8080" {
		t.Errorf("ProxyURL = %q, want the configured value", cfg.Server.ProxyURL)
	}
}

func TestLoadHonorsExplicitValues(t *testing.T) {
	path := writeTempConfig(t, `
[server]
control_port = 9999
proxy_port = 8888
proxy_url = "http://origin:8080"
include_paths = ["/api/*"]
exclude_paths = ["POST */api/admin/*"]
enable_websocket = false
control_auth = "secret"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.ControlPort != 9999 {
		t.Errorf("ControlPort = %d, want 9999", cfg.Server.ControlPort)
	}
	if cfg.Server.ProxyPort != 8888 {
		t.Errorf("ProxyPort = %d, want 8888", cfg.Server.ProxyPort)
	}
	if cfg.Server.EnableWebsocket {
		t.Error("EnableWebsocket should honor an explicit false")
	}
	if len(cfg.Server.IncludePaths) != 1 || cfg.Server.IncludePaths[0] != "/api/*" {
		t.Errorf("IncludePaths = %v", cfg.Server.IncludePaths)
	}
	if cfg.Server.ControlAuth != "secret" {
		t.Errorf("ControlAuth = %q, want \"secret\"", cfg.Server.ControlAuth)
	}
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
