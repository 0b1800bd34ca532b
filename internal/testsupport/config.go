package testsupport

import (
	"path/filepath"
	"testing"

	"lnharness/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := ShortTempDir(t)
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Fetch.InstallDir = filepath.Join(base, "dist")
	cfgVal.Node.TmpDir = filepath.Join(base, "nodes")

	builder := &configBuilder{t: t, baseDir: base, cfg: &cfgVal}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithStaticDir switches the node to a persistent directory under the test root.
func WithStaticDir(name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Node.TmpDir = ""
		b.cfg.Node.StaticDir = filepath.Join(b.baseDir, name)
	}
}

// WithExecutable pins node.executable.
func WithExecutable(path string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Node.Executable = path
	}
}

// WithAttempts overrides the relaunch budget.
func WithAttempts(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Node.Attempts = n
	}
}
