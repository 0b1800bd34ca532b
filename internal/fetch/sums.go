package fetch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	// ErrChecksumNotFound is returned when SHA256SUMS has no line for the tarball.
	ErrChecksumNotFound = errors.New("no checksum listed for tarball")
	// ErrChecksumMismatch is returned when the tarball hash differs from the listing.
	ErrChecksumMismatch = errors.New("tarball checksum mismatch")
)

// LookupSum finds the hash for name in a SHA256SUMS listing of
// "<hex>  <name>" lines. A leading '*' on the name (binary mode) is accepted.
func LookupSum(r io.Reader, name string) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		hash, file, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "  ")
		if !ok {
			continue
		}
		if strings.TrimPrefix(strings.TrimSpace(file), "*") == name {
			return strings.ToLower(hash), nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("read checksums: %w", err)
	}
	return "", fmt.Errorf("%w: %s", ErrChecksumNotFound, name)
}
