// Package services defines shared utilities consumed by the queue processor
// and its external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp queue item IDs, lease owners, and correlation
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures can be
//     classified (configuration, transport, remote, not found, empty response)
//     without string matching.
//
// Use these helpers when wiring new integrations so error handling and
// observability stay uniform across the daemon.
package services
