// Package logging builds the slog loggers used across revoice.
//
// Two output formats are supported: a console handler that renders
// timestamp/level/component followed by key=value attributes, and a JSON
// handler for machine consumption. Construction is driven by the daemon
// configuration; tests use NewNop.
package logging
