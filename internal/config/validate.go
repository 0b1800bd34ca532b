package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateNode(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateNode() error {
	if c.Node.Network == "" {
		return errors.New("node.network must be set")
	}
	if strings.ContainsAny(c.Node.Network, `/\`) {
		return fmt.Errorf("node.network %q must be a bare network name", c.Node.Network)
	}
	if c.Node.Attempts < 0 {
		return errors.New("node.attempts must be zero or greater")
	}
	if c.Node.TmpDir != "" && c.Node.StaticDir != "" {
		return errors.New("node.tmp_dir and node.static_dir cannot both be set")
	}
	if c.Node.ReadyTimeoutSeconds < 0 {
		return errors.New("node.ready_timeout_seconds must be zero (unbounded) or positive")
	}
	if c.Node.StopGraceSeconds < 0 {
		return errors.New("node.stop_grace_seconds must be zero or positive")
	}
	return nil
}

func (c *Config) validateFetch() error {
	if c.Fetch.Version == "" && c.Fetch.TarballFile == "" {
		return errors.New("fetch.version must be set unless fetch.tarball_file is provided")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}
