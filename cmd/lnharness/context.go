package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"lnharness/internal/config"
	"lnharness/internal/exepath"
	"lnharness/internal/harness"
	"lnharness/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) resolveExecutable() (exepath.Result, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return exepath.Result{}, err
	}
	return exepath.Resolve(exepath.Options{
		Override:   cfg.Node.Executable,
		InstallDir: cfg.Fetch.InstallDir,
	})
}

// harnessConf maps the [node] section onto a launch configuration.
func harnessConf(cfg *config.Config, stdout io.Writer) harness.Conf {
	conf := harness.DefaultConf()
	conf.Args = append([]string(nil), cfg.Node.Args...)
	conf.ViewStdout = cfg.Node.ViewStdout
	conf.Stdout = stdout
	conf.Network = cfg.Node.Network
	conf.TmpDir = cfg.Node.TmpDir
	conf.StaticDir = cfg.Node.StaticDir
	conf.Attempts = cfg.Node.Attempts
	conf.ReadyTimeout = cfg.ReadyTimeout()
	if grace := cfg.StopGrace(); grace > 0 {
		conf.StopGrace = grace
	}
	return conf
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

// isTerminal reports whether w is an interactive terminal.
func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
