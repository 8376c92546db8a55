// Package notifications delivers translation outcomes via ntfy.
//
// NewService returns an ntfy publisher when a topic is configured and a no-op
// otherwise. Callers publish an Event with a loose Payload; events disabled in
// the [notifications] section are dropped without a request. Delivery failures
// are returned to the caller, which logs them and moves on.
package notifications
