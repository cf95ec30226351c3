// Package logging assembles structured slog loggers and formatting helpers used
// across stemdeck.
//
// It owns the configurable console/JSON handlers, rotates the on-disk log via
// lumberjack, and exposes context-aware helpers so the job controller and the
// player can tag log lines with job IDs, stages, and session IDs. The package
// also provides a no-op logger for tests and wiring code that cannot fail, and
// a small in-memory hub the terminal player reads recent events from.
//
// Prefer these constructors over hand-rolled slog setup so every component
// emits data with the same shape.
package logging
