// Package exepath locates the lightningd executable.
package exepath

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// EnvExecutable overrides every other source.
const EnvExecutable = "LIGHTNINGD_EXE"

// BinaryName is the executable looked up on PATH.
const BinaryName = "lightningd"

// ErrNoExecutable is returned when no source yields a runnable executable.
var ErrNoExecutable = errors.New("lightningd executable not found")

// Source names where a resolved executable came from.
type Source string

const (
	SourceEnv        Source = "env"
	SourceConfig     Source = "config"
	SourceDownloaded Source = "downloaded"
	SourcePath       Source = "path"
)

// Options are the non-environment inputs to Resolve.
type Options struct {
	// Override is the configured executable, if any.
	Override string
	// InstallDir is the fetch install directory; empty skips that source.
	InstallDir string
}

// Candidate is one considered location.
type Candidate struct {
	Source Source
	Path   string
	Err    error
}

// Result is a resolved executable.
type Result struct {
	Path   string
	Source Source
	// Tried lists the candidates rejected before Path was chosen.
	Tried []Candidate
}

// DownloadedPath is where fetch.Install places the executable.
func DownloadedPath(installDir string) string {
	return filepath.Join(installDir, "lightning", "usr", "bin", BinaryName)
}

// Resolve picks the executable from $LIGHTNINGD_EXE, then opts.Override, then
// the downloaded location, then PATH. Explicit sources (env and config) that
// are set but not executable fail immediately instead of falling through.
func Resolve(opts Options) (Result, error) {
	var res Result

	if env := strings.TrimSpace(os.Getenv(EnvExecutable)); env != "" {
		return explicit(SourceEnv, env)
	}
	if override := strings.TrimSpace(opts.Override); override != "" {
		return explicit(SourceConfig, override)
	}
	if opts.InstallDir != "" {
		path := DownloadedPath(opts.InstallDir)
		if err := checkExecutable(path); err == nil {
			return Result{Path: path, Source: SourceDownloaded}, nil
		} else {
			res.Tried = append(res.Tried, Candidate{Source: SourceDownloaded, Path: path, Err: err})
		}
	}
	path, err := exec.LookPath(BinaryName)
	if err == nil {
		if abs, absErr := filepath.Abs(path); absErr == nil {
			path = abs
		}
		res.Path = path
		res.Source = SourcePath
		return res, nil
	}
	res.Tried = append(res.Tried, Candidate{Source: SourcePath, Path: BinaryName, Err: err})
	return res, fmt.Errorf("%w: %s", ErrNoExecutable, describe(res.Tried))
}

func explicit(source Source, path string) (Result, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Result{}, fmt.Errorf("resolve %s executable %q: %w", source, path, err)
	}
	if err := checkExecutable(abs); err != nil {
		tried := []Candidate{{Source: source, Path: abs, Err: err}}
		return Result{Tried: tried}, fmt.Errorf("%w: %s", ErrNoExecutable, describe(tried))
	}
	return Result{Path: abs, Source: source}, nil
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	if err := unix.Access(path, unix.X_OK); err != nil {
		return fmt.Errorf("%s is not executable: %w", path, err)
	}
	return nil
}

func describe(tried []Candidate) string {
	parts := make([]string, 0, len(tried))
	for _, c := range tried {
		parts = append(parts, fmt.Sprintf("%s %s (%v)", c.Source, c.Path, c.Err))
	}
	return strings.Join(parts, "; ")
}
