package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lnharness/internal/exepath"
	"lnharness/internal/fileutil"
	"lnharness/internal/logging"
)

const (
	// DefaultEndpoint serves release assets as <endpoint>/<version>/<name>.
	DefaultEndpoint = "https://github.com/ElementsProject/lightning/releases/download"
	// SumsName is the checksum listing published next to the tarballs.
	SumsName = "SHA256SUMS"

	defaultTimeout = 5 * time.Minute
)

// Options control Install.
type Options struct {
	// Version is the release tag, e.g. v23.02.2.
	Version string
	// Filename overrides the tarball name; otherwise it is the base name of
	// TarballFile, or derived from the host Ubuntu release.
	Filename string
	// Endpoint is the download base URL.
	Endpoint string
	// TarballFile reads the tarball from disk instead of downloading it.
	TarballFile string
	// SumsFile reads the checksum listing from disk instead of downloading it.
	SumsFile string
	// InstallDir receives lightning/usr/bin/lightningd.
	InstallDir string
	// OSReleasePath overrides /etc/os-release.
	OSReleasePath string
	// Force reinstalls over an existing executable.
	Force bool

	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

// Result describes a completed Install.
type Result struct {
	Executable string
	Filename   string
	// Source is the file path or URL the tarball came from.
	Source    string
	SHA256    string
	Extracted []string
	// Skipped is set when the executable already existed.
	Skipped bool
}

// Install makes sure a released lightningd exists below opts.InstallDir.
func Install(ctx context.Context, opts Options) (Result, error) {
	if strings.TrimSpace(opts.InstallDir) == "" {
		return Result{}, errors.New("fetch: install directory is required")
	}
	logger := logging.NewComponentLogger(opts.Logger, "fetch")
	exe := exepath.DownloadedPath(opts.InstallDir)

	if !opts.Force && fileutil.IsExecutableFile(exe) {
		logger.Debug("lightningd already installed", logging.String("path", exe))
		return Result{Executable: exe, Skipped: true}, nil
	}

	name, err := tarballName(opts)
	if err != nil {
		return Result{}, err
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}
	f := fetcher{client: client, endpoint: strings.TrimRight(firstNonEmpty(opts.Endpoint, DefaultEndpoint), "/"), version: opts.Version}

	data, source, err := f.tarball(ctx, opts.TarballFile, name)
	if err != nil {
		return Result{}, err
	}
	logger.Info("tarball obtained",
		logging.String("filename", name),
		logging.String("source", source),
		logging.Int("bytes", len(data)),
	)

	sums, err := f.sums(ctx, opts.SumsFile)
	if err != nil {
		return Result{}, err
	}
	want, err := LookupSum(bytes.NewReader(sums), name)
	if err != nil {
		return Result{}, err
	}
	got := fileutil.SHA256Hex(data)
	if got != want {
		logging.ErrorWithContext(logger, "tarball checksum mismatch", "checksum_mismatch",
			logging.String("expected", want),
			logging.String("actual", got),
			logging.String(logging.FieldErrorHint, "delete the tarball and download it again"),
		)
		return Result{}, fmt.Errorf("%w: %s expected %s, got %s", ErrChecksumMismatch, source, want, got)
	}

	home := filepath.Join(opts.InstallDir, "lightning")
	extracted, err := Extract(bytes.NewReader(data), name, home)
	if err != nil {
		return Result{}, err
	}
	if !fileutil.IsExecutableFile(exe) {
		return Result{}, fmt.Errorf("%s did not contain usr/bin/%s", name, exepath.BinaryName)
	}
	logger.Info("lightningd installed",
		logging.String("path", exe),
		logging.Int("files", len(extracted)),
		logging.String("sha256", got),
	)
	return Result{
		Executable: exe,
		Filename:   name,
		Source:     source,
		SHA256:     got,
		Extracted:  extracted,
	}, nil
}

func tarballName(opts Options) (string, error) {
	if name := strings.TrimSpace(opts.Filename); name != "" {
		return name, nil
	}
	if opts.TarballFile != "" {
		return filepath.Base(opts.TarballFile), nil
	}
	if opts.Version == "" {
		return "", errors.New("fetch: version is required to name the tarball")
	}
	v, err := DetectUbuntu(opts.OSReleasePath)
	if err != nil {
		return "", err
	}
	return TarballName(opts.Version, v), nil
}

type fetcher struct {
	client   *http.Client
	endpoint string
	version  string
}

func (f fetcher) tarball(ctx context.Context, file, name string) ([]byte, string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, "", fmt.Errorf("read tarball %s: %w", file, err)
		}
		return data, file, nil
	}
	url, err := f.url(name)
	if err != nil {
		return nil, "", err
	}
	data, err := f.get(ctx, url)
	return data, url, err
}

func (f fetcher) sums(ctx context.Context, file string) ([]byte, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read checksums %s: %w", file, err)
		}
		return data, nil
	}
	url, err := f.url(SumsName)
	if err != nil {
		return nil, err
	}
	return f.get(ctx, url)
}

func (f fetcher) url(name string) (string, error) {
	if f.version == "" {
		return "", fmt.Errorf("fetch: version is required to download %s", name)
	}
	return f.endpoint + "/" + f.version + "/" + name, nil
}

func (f fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	return data, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
