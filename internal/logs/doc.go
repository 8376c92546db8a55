// Package logs reads the daemon log for `polyglot logs`.
//
// The daemon writes one file per run and points polyglot.log at the newest
// one. Follow re-resolves that pointer on every poll, so a tail survives a
// daemon restart and starts over at the top of the new run's file.
package logs
