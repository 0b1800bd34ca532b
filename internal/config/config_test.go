package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"lnharness/internal/config"
)

func TestLoadDefaultsExpandPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("LIGHTNINGD_TARBALL_FILE", "")
	t.Setenv("LIGHTNINGD_DOWNLOAD_ENDPOINT", "")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}
	if resolved != filepath.Join(tempHome, ".config", "lnharness", "config.toml") {
		t.Fatalf("unexpected resolved path %q", resolved)
	}
	if cfg.Paths.StateDir != filepath.Join(tempHome, ".local", "share", "lnharness") {
		t.Fatalf("unexpected state dir: %q", cfg.Paths.StateDir)
	}
	if cfg.Fetch.InstallDir != filepath.Join(tempHome, ".local", "share", "lnharness", "dist") {
		t.Fatalf("unexpected install dir: %q", cfg.Fetch.InstallDir)
	}
	if cfg.Node.Network != "regtest" || cfg.Node.Attempts != 3 || cfg.Node.ViewStdout {
		t.Fatalf("unexpected node defaults: %#v", cfg.Node)
	}
	if len(cfg.Node.Args) != 1 || cfg.Node.Args[0] != "--regtest" {
		t.Fatalf("unexpected default args: %v", cfg.Node.Args)
	}
	if cfg.ReadyTimeout() != 0 {
		t.Fatalf("expected unbounded readiness by default, got %s", cfg.ReadyTimeout())
	}
	if cfg.StopGrace() != 5*time.Second {
		t.Fatalf("unexpected stop grace: %s", cfg.StopGrace())
	}
	if cfg.HistoryPath() != filepath.Join(cfg.Paths.StateDir, "history.db") {
		t.Fatalf("unexpected history path: %q", cfg.HistoryPath())
	}
}

func TestLoadExplicitFile(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[node]
network = "signet"
args = ["--signet", "  ", "--log-level=debug"]
attempts = 0
static_dir = "~/node"
ready_timeout_seconds = 30

[logging]
format = "JSON"
level = "Debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected explicit file to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Node.Network != "signet" || cfg.Node.Attempts != 0 {
		t.Fatalf("unexpected node section: %#v", cfg.Node)
	}
	if got := strings.Join(cfg.Node.Args, " "); got != "--signet --log-level=debug" {
		t.Fatalf("expected blank args dropped, got %q", got)
	}
	if cfg.Node.StaticDir != filepath.Join(tempHome, "node") {
		t.Fatalf("expected static dir expansion, got %q", cfg.Node.StaticDir)
	}
	if cfg.ReadyTimeout() != 30*time.Second {
		t.Fatalf("unexpected ready timeout: %s", cfg.ReadyTimeout())
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging, got %#v", cfg.Logging)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[node]\nnetwrok = \"regtest\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, _, err := config.Load(path); err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
}

func TestFetchEnvironmentFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	tarball := filepath.Join(t.TempDir(), "clightning.tar.xz")
	t.Setenv("LIGHTNINGD_TARBALL_FILE", tarball)
	t.Setenv("LIGHTNINGD_DOWNLOAD_ENDPOINT", "https://mirror.example/releases/")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Fetch.TarballFile != tarball {
		t.Fatalf("expected tarball from env, got %q", cfg.Fetch.TarballFile)
	}
	if cfg.Fetch.Endpoint != "https://mirror.example/releases" {
		t.Fatalf("expected trimmed endpoint from env, got %q", cfg.Fetch.Endpoint)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*config.Config) {}},
		{
			name:    "both directories",
			mutate:  func(c *config.Config) { c.Node.TmpDir = "/tmp/a"; c.Node.StaticDir = "/tmp/b" },
			wantErr: "cannot both be set",
		},
		{
			name:    "negative attempts",
			mutate:  func(c *config.Config) { c.Node.Attempts = -1 },
			wantErr: "node.attempts",
		},
		{
			name:    "network with separator",
			mutate:  func(c *config.Config) { c.Node.Network = "../regtest" },
			wantErr: "bare network name",
		},
		{
			name:    "log format",
			mutate:  func(c *config.Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:    "negative ready timeout",
			mutate:  func(c *config.Config) { c.Node.ReadyTimeoutSeconds = -5 },
			wantErr: "ready_timeout_seconds",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestSampleConfigParses(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "sample", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample returned error: %v", err)
	}

	var raw map[string]any
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatalf("sample config is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
}
