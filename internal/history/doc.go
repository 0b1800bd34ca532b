// Package history keeps a sqlite ledger of harness lifecycle events.
//
// Store implements harness.Observer so it can be passed straight to
// harness.WithObserver; every event becomes one row keyed by launch id.
package history
