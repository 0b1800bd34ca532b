// Package workdir materializes the data directory handed to lightningd as
// --lightning-dir.
//
// A Dir is either Temporary (removed on Close) or Persistent (kept on Close,
// guarded by an advisory lock while open so two harnesses never share live
// state). Callers only ever see Path and Close; the cleanup policy travels with
// the kind.
package workdir
