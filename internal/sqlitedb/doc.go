// Package sqlitedb opens the SQLite databases used by polyglot and applies
// their embedded goose migrations.
//
// Both the job store and the content store go through Open so they share the
// same pragmas (WAL, foreign keys, busy timeout) and the same SQLITE_BUSY
// retry policy.
package sqlitedb
