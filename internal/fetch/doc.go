// Package fetch installs a released lightningd into a local directory.
//
// Install picks the release tarball name for the running Ubuntu release (or
// takes an explicit name), reads it from a local file or downloads it,
// verifies its SHA-256 against a SHA256SUMS listing and unpacks every archive
// entry named lightningd below <install_dir>/lightning. A present executable
// short-circuits the whole process.
package fetch
