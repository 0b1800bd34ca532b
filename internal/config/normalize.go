package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeNode(); err != nil {
		return err
	}
	if err := c.normalizeFetch(); err != nil {
		return err
	}
	var err error
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.StateDir == "" {
		if c.Paths.StateDir, err = expandPath(defaultStateDir); err != nil {
			return fmt.Errorf("paths.state_dir: %w", err)
		}
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizeNode() error {
	var err error
	c.Node.Network = strings.TrimSpace(c.Node.Network)
	if c.Node.Network == "" {
		c.Node.Network = defaultNetwork
	}
	if c.Node.Executable, err = expandPath(strings.TrimSpace(c.Node.Executable)); err != nil {
		return fmt.Errorf("node.executable: %w", err)
	}
	if c.Node.TmpDir, err = expandPath(strings.TrimSpace(c.Node.TmpDir)); err != nil {
		return fmt.Errorf("node.tmp_dir: %w", err)
	}
	if c.Node.StaticDir, err = expandPath(strings.TrimSpace(c.Node.StaticDir)); err != nil {
		return fmt.Errorf("node.static_dir: %w", err)
	}
	args := make([]string, 0, len(c.Node.Args))
	for _, arg := range c.Node.Args {
		if trimmed := strings.TrimSpace(arg); trimmed != "" {
			args = append(args, trimmed)
		}
	}
	c.Node.Args = args
	return nil
}

func (c *Config) normalizeFetch() error {
	if strings.TrimSpace(c.Fetch.TarballFile) == "" {
		c.Fetch.TarballFile = os.Getenv("LIGHTNINGD_TARBALL_FILE")
	}
	if strings.TrimSpace(c.Fetch.Endpoint) == "" {
		c.Fetch.Endpoint = os.Getenv("LIGHTNINGD_DOWNLOAD_ENDPOINT")
	}
	if strings.TrimSpace(c.Fetch.Endpoint) == "" {
		c.Fetch.Endpoint = defaultFetchEndpoint
	}
	c.Fetch.Endpoint = strings.TrimRight(strings.TrimSpace(c.Fetch.Endpoint), "/")
	c.Fetch.Version = strings.TrimSpace(c.Fetch.Version)
	c.Fetch.Filename = strings.TrimSpace(c.Fetch.Filename)
	if c.Fetch.TimeoutSeconds <= 0 {
		c.Fetch.TimeoutSeconds = defaultFetchTimeoutSeconds
	}

	var err error
	if c.Fetch.TarballFile, err = expandPath(strings.TrimSpace(c.Fetch.TarballFile)); err != nil {
		return fmt.Errorf("fetch.tarball_file: %w", err)
	}
	if c.Fetch.SumsFile, err = expandPath(strings.TrimSpace(c.Fetch.SumsFile)); err != nil {
		return fmt.Errorf("fetch.sums_file: %w", err)
	}
	if strings.TrimSpace(c.Fetch.InstallDir) == "" {
		c.Fetch.InstallDir = defaultInstallDir
	}
	if c.Fetch.InstallDir, err = expandPath(strings.TrimSpace(c.Fetch.InstallDir)); err != nil {
		return fmt.Errorf("fetch.install_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if file, err := expandPath(strings.TrimSpace(c.Logging.File)); err == nil {
		c.Logging.File = file
	}
}
