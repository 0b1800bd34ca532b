package fetch

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// DefaultOSReleasePath is the os-release file consulted by DetectUbuntu.
const DefaultOSReleasePath = "/etc/os-release"

// ErrUnsupportedOS is returned when the release name cannot be derived from
// the host distribution.
var ErrUnsupportedOS = errors.New("release tarballs are only published for Ubuntu")

// UbuntuVersion is a parsed VERSION_ID such as 22.04.
type UbuntuVersion struct {
	Major int
	Minor int
}

func (v UbuntuVersion) String() string {
	return fmt.Sprintf("%d.%02d", v.Major, v.Minor)
}

// TarballName returns the release asset name for version on Ubuntu v.
func TarballName(version string, v UbuntuVersion) string {
	return fmt.Sprintf("clightning-%s-Ubuntu-%s.tar.xz", version, v)
}

// DetectUbuntu reads the os-release file at path.
func DetectUbuntu(path string) (UbuntuVersion, error) {
	if path == "" {
		path = DefaultOSReleasePath
	}
	f, err := os.Open(path)
	if err != nil {
		return UbuntuVersion{}, fmt.Errorf("open os-release: %w", err)
	}
	defer f.Close()
	return ParseOSRelease(f)
}

// ParseOSRelease extracts the Ubuntu version from os-release content.
func ParseOSRelease(r io.Reader) (UbuntuVersion, error) {
	fields := map[string]string{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		if unquoted, err := strconv.Unquote(value); err == nil {
			value = unquoted
		} else {
			value = strings.Trim(value, `'"`)
		}
		fields[key] = value
	}
	if err := scanner.Err(); err != nil {
		return UbuntuVersion{}, fmt.Errorf("read os-release: %w", err)
	}

	id := strings.ToLower(fields["ID"])
	if id != "ubuntu" && !strings.Contains(" "+strings.ToLower(fields["ID_LIKE"])+" ", " ubuntu ") {
		return UbuntuVersion{}, fmt.Errorf("%w: ID=%q", ErrUnsupportedOS, fields["ID"])
	}
	majorText, minorText, ok := strings.Cut(fields["VERSION_ID"], ".")
	if !ok {
		return UbuntuVersion{}, fmt.Errorf("%w: unparseable VERSION_ID %q", ErrUnsupportedOS, fields["VERSION_ID"])
	}
	major, err := strconv.Atoi(majorText)
	if err != nil {
		return UbuntuVersion{}, fmt.Errorf("%w: unparseable VERSION_ID %q", ErrUnsupportedOS, fields["VERSION_ID"])
	}
	minor, err := strconv.Atoi(minorText)
	if err != nil {
		return UbuntuVersion{}, fmt.Errorf("%w: unparseable VERSION_ID %q", ErrUnsupportedOS, fields["VERSION_ID"])
	}
	return UbuntuVersion{Major: major, Minor: minor}, nil
}
