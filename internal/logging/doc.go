// Package logging builds the slog loggers used by the harness and CLI.
//
// Two formats are supported: a single-line console format for humans and a
// JSON format for log shipping. Field keys shared across packages (launch_id,
// attempt, pid, event_type) live here so log lines stay greppable across a
// launch, its retries, and its shutdown.
package logging
