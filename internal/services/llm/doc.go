// Package llm provides the chat-completion client used to translate queued
// content.
//
// The client talks to an OpenAI-compatible endpoint (x.ai by default) and
// issues exactly one request per call. There are no retries: a failed item is
// recorded as failed and recovery is a fresh enqueue.
//
// # Errors
//
// Failures surface as one of three typed errors so the processor can record a
// stable, operator-readable message:
//
//   - ConfigError: no API key configured.
//   - TransportError: the HTTP call could not complete (includes timeouts).
//   - APIError: the remote returned a non-200 status or a payload without
//     choices[0].message.content.
//
// Each type matches the corresponding marker in internal/services via
// errors.Is.
//
// # Entry Points
//
// NewClient: construct client from Config.
// Client.Translate: send one prompt, receive the translated text.
// Client.TestConnection / Client.CheckConnection: verify key and model.
package llm
