package fetch

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"lnharness/internal/exepath"
	"lnharness/internal/fileutil"
)

// ErrUnsupportedArchive is returned for tarball names without a known
// compression suffix.
var ErrUnsupportedArchive = errors.New("unsupported archive format")

// Extract unpacks every regular file named lightningd from the tar stream r
// into dest, keeping its relative path. name selects the decompressor by
// suffix: .tar.xz, .tar.gz, .tgz or .tar.zst.
func Extract(r io.Reader, name, dest string) ([]string, error) {
	decompressed, closeFn, err := decompressor(r, name)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var written []string
	tr := tar.NewReader(decompressed)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return written, fmt.Errorf("read %s: %w", name, err)
		}
		if hdr.Typeflag != tar.TypeReg || path.Base(hdr.Name) != exepath.BinaryName {
			continue
		}
		rel, err := safeRelative(hdr.Name)
		if err != nil {
			return written, err
		}
		target := filepath.Join(dest, rel)
		mode := hdr.FileInfo().Mode().Perm()
		if mode == 0 {
			mode = 0o755
		}
		if err := fileutil.WriteAtomic(target, tr, mode); err != nil {
			return written, fmt.Errorf("extract %s: %w", hdr.Name, err)
		}
		written = append(written, target)
	}
	return written, nil
}

func decompressor(r io.Reader, name string) (io.Reader, func(), error) {
	switch {
	case strings.HasSuffix(name, ".tar.xz"):
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open xz stream: %w", err)
		}
		return xr, func() {}, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gr, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open gzip stream: %w", err)
		}
		return gr, func() { _ = gr.Close() }, nil
	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open zstd stream: %w", err)
		}
		return zr, zr.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedArchive, name)
	}
}

func safeRelative(name string) (string, error) {
	cleaned := path.Clean(strings.TrimPrefix(name, "./"))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("archive entry %q escapes the install directory", name)
	}
	return filepath.FromSlash(cleaned), nil
}
