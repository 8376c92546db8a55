// Package queue persists translation jobs in SQLite and exposes helpers for
// driving their lifecycle.
//
// The Store manages the database connection, goose migrations, stats
// queries, and the guarded status transitions
// pending -> processing -> completed|failed. Each transition is a single
// conditional UPDATE so a lost race surfaces as ErrInvalidTransition instead
// of a silent overwrite.
//
// The same database hosts the processing lease table. AcquireLease is an
// atomic upsert that only succeeds when no unexpired lease exists, which keeps
// at most one batch doing outbound API work at a time.
//
// Treat this package as the single source of truth for job status; when you
// add columns, add a new file under migrations/ rather than editing
// 00001_init.sql.
package queue
