// Package api defines wire-format types, converters, and the request/status
// services shared by the HTTP API, the IPC server, and the CLI.
//
// # Key Types
//
// QueueItem: transport representation of a translation job.
//
// DaemonStatus: running state, database paths, queue counts, the current
// processing lease, and scheduler state.
//
// EnqueueRequest/EnqueueResponse: the translation request contract.
//
// TranslationStatus: the polling view of one job, with the operator-facing
// message for its state.
//
// # Services
//
// QueueService: read-only queue listing, counts, and lookups returning DTOs.
//
// TranslationService: validates and enqueues translation requests, renders
// the prompt template, kicks the scheduler, and builds status views.
//
// # Design Notes
//
// DTOs use snake_case JSON tags. Timestamps use RFC3339 with milliseconds.
// Request failures are RequestError values carrying a services marker, so the
// HTTP layer can map them to status codes with errors.Is while clients still
// receive the plain message.
package api
