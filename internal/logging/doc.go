// Package logging assembles structured slog loggers and formatting helpers used
// across polyglot.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so processor code can tag log
// lines with queue item IDs, lease owners, and correlation IDs. The daemon
// tees console output with a per-run JSON file (TeeLogger, WithRunID) and
// prunes old run files with PruneRunLogs.
//
// Prefer these constructors over hand-rolled slog setup so new components emit
// records with the same shape as the rest of the system.
package logging
