// Command polyglot is the command-line front end for the translation queue.
//
// Commands talk to a running daemon over its Unix socket when one is
// reachable. Queue inspection, enqueueing, and manual processing fall back to
// opening the SQLite stores directly so the CLI can be driven from cron
// without a long-running daemon. The hidden `daemon` subcommand runs the
// daemon process itself.
package main
