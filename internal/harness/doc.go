// Package harness launches lightningd, waits until its control socket answers
// getinfo, and tears it down deterministically.
//
// Launch runs a bounded loop of attempts. Each attempt materializes a fresh
// work directory, spawns the executable with --lightning-dir pointing at it,
// and polls every 100ms: first whether the process already exited, then
// whether the control socket answers a status query. A process that exits
// before becoming ready consumes one unit of the attempt budget and the next
// attempt starts from a new directory; the usual cause is a port grabbed by
// another process between allocation and bind. Configuration errors and spawn
// failures are never retried.
//
// The returned Node owns the process, the connected client and the work
// directory. Close must be called on every Node: it kills the process (after
// a graceful stop for persistent directories) and removes temporary
// directories. Attempts that fail after spawning go through the same teardown.
package harness
