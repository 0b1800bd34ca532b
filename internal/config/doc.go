// Package config loads, normalizes, and validates lnharness configuration.
//
// Settings come from a TOML file (default ~/.config/lnharness/config.toml,
// falling back to ./lnharness.toml), layered over repository defaults. Path
// fields are tilde-expanded and made absolute, and the download related
// environment variables (LIGHTNINGD_TARBALL_FILE, LIGHTNINGD_DOWNLOAD_ENDPOINT)
// fill in fetch settings the file leaves empty.
//
// LIGHTNINGD_EXE and TEMPDIR_ROOT are deliberately not folded in here: they are
// read by exepath and workdir at the moment they are needed, so library callers
// that never load a config file observe the same precedence.
package config
