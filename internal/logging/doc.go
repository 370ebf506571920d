// Package logging assembles structured slog loggers and formatting helpers used
// across rommate.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so scan code can tag log lines
// with scan IDs, systems, and file paths automatically. A no-op logger is
// provided for tests and library callers that do not care about output.
package logging
