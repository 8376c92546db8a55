package llm

import (
	"fmt"

	"polyglot/internal/services"
)

// ConfigError reports a client that cannot issue requests.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// Is matches services.ErrConfiguration.
func (e *ConfigError) Is(target error) bool { return target == services.ErrConfiguration }

// TransportError reports an HTTP call that could not complete.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("API request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Is matches services.ErrTransport.
func (e *TransportError) Is(target error) bool { return target == services.ErrTransport }

// APIError reports a response the remote rejected or that could not be used.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string { return e.Message }

// Is matches services.ErrRemote.
func (e *APIError) Is(target error) bool { return target == services.ErrRemote }
