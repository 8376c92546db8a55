// Package daemon coordinates the long-running polyglot process.
//
// It wires configuration, the queue and content stores, the translation
// client, the queue processor, and the scheduler into a single lifecycle with
// flock-based locking to prevent multiple instances per data directory. The
// daemon exposes the request/status operations, queue maintenance helpers,
// and the HTTP API (chi router, bearer auth, Prometheus metrics).
//
// Keep orchestration logic here: processing rules live in processor,
// reconciliation rules in reconcile, while the daemon focuses on startup,
// shutdown, and transport.
package daemon
