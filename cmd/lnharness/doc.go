// Command lnharness launches disposable lightningd nodes for integration
// tests and local experiments, installs released binaries and inspects the
// launch history.
package main
