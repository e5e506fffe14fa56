// Package logging assembles structured slog loggers and formatting helpers used
// across dubline.
//
// It owns the console and JSON handlers, fans records out to an optional JSON
// log file, and exposes context-aware helpers so stage code automatically tags
// log lines with run IDs, job IDs, and stage names. The package also provides a
// no-op logger for tests and wiring code that cannot fail.
package logging
