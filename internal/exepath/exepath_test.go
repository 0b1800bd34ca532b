package exepath_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lnharness/internal/exepath"
	"lnharness/internal/testsupport"
)

func isolate(t *testing.T) string {
	t.Helper()
	empty := t.TempDir()
	t.Setenv("PATH", empty)
	t.Setenv(exepath.EnvExecutable, "")
	return empty
}

func TestResolvePrecedence(t *testing.T) {
	pathDir := isolate(t)
	onPath := testsupport.WriteStubExecutable(t, pathDir, "lightningd", 0)
	installDir := t.TempDir()
	downloaded := testsupport.WriteStubExecutable(t, filepath.Dir(exepath.DownloadedPath(installDir)), "lightningd", 0)
	configured := testsupport.WriteStubExecutable(t, t.TempDir(), "lightningd-custom", 0)
	fromEnv := testsupport.WriteStubExecutable(t, t.TempDir(), "lightningd-env", 0)

	res, err := exepath.Resolve(exepath.Options{InstallDir: installDir})
	if err != nil || res.Path != downloaded || res.Source != exepath.SourceDownloaded {
		t.Fatalf("expected downloaded executable, got %+v err=%v", res, err)
	}

	res, err = exepath.Resolve(exepath.Options{})
	if err != nil || res.Path != onPath || res.Source != exepath.SourcePath {
		t.Fatalf("expected PATH executable, got %+v err=%v", res, err)
	}

	res, err = exepath.Resolve(exepath.Options{Override: configured, InstallDir: installDir})
	if err != nil || res.Path != configured || res.Source != exepath.SourceConfig {
		t.Fatalf("expected configured executable, got %+v err=%v", res, err)
	}

	t.Setenv(exepath.EnvExecutable, fromEnv)
	res, err = exepath.Resolve(exepath.Options{Override: configured, InstallDir: installDir})
	if err != nil || res.Path != fromEnv || res.Source != exepath.SourceEnv {
		t.Fatalf("expected env executable, got %+v err=%v", res, err)
	}
}

func TestResolveFallsThroughMissingDownload(t *testing.T) {
	pathDir := isolate(t)
	onPath := testsupport.WriteStubExecutable(t, pathDir, "lightningd", 0)

	res, err := exepath.Resolve(exepath.Options{InstallDir: t.TempDir()})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res.Path != onPath || len(res.Tried) != 1 || res.Tried[0].Source != exepath.SourceDownloaded {
		t.Fatalf("expected PATH fallback after missing download, got %+v", res)
	}
}

func TestResolveExplicitNotExecutable(t *testing.T) {
	pathDir := isolate(t)
	testsupport.WriteStubExecutable(t, pathDir, "lightningd", 0)
	plain := filepath.Join(t.TempDir(), "lightningd")
	if err := os.WriteFile(plain, []byte("not a program"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := exepath.Resolve(exepath.Options{Override: plain}); !errors.Is(err, exepath.ErrNoExecutable) {
		t.Fatalf("expected ErrNoExecutable for non-executable override, got %v", err)
	}
	t.Setenv(exepath.EnvExecutable, filepath.Join(t.TempDir(), "missing"))
	if _, err := exepath.Resolve(exepath.Options{}); !errors.Is(err, exepath.ErrNoExecutable) {
		t.Fatalf("expected ErrNoExecutable for missing env executable, got %v", err)
	}
}

func TestResolveNothingFound(t *testing.T) {
	isolate(t)
	res, err := exepath.Resolve(exepath.Options{InstallDir: t.TempDir()})
	if !errors.Is(err, exepath.ErrNoExecutable) {
		t.Fatalf("expected ErrNoExecutable, got %v", err)
	}
	if len(res.Tried) != 2 {
		t.Fatalf("expected both candidates reported, got %+v", res.Tried)
	}
}

func TestResolveRejectsDirectory(t *testing.T) {
	isolate(t)
	if _, err := exepath.Resolve(exepath.Options{Override: t.TempDir()}); !errors.Is(err, exepath.ErrNoExecutable) {
		t.Fatalf("expected directory override to be rejected, got %v", err)
	}
}
