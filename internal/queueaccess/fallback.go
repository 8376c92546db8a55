package queueaccess

import (
	"errors"
	"fmt"

	"polyglot/internal/ipc"
	"polyglot/internal/queue"
)

// Session is an open queue handle. Offline is set when the daemon could not
// be reached and the queue database was opened directly.
type Session struct {
	Access  Access
	Offline bool
	close   func() error
}

// Close releases the IPC connection or the database handle.
func (s Session) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenWithFallback prefers the running daemon so reads see its in-flight
// state, and falls back to the queue database when no daemon answers.
func OpenWithFallback(
	dial func() (*ipc.Client, error),
	openStore func() (*queue.Store, error),
) (Session, error) {
	if dial != nil {
		if client, err := dial(); err == nil {
			return Session{Access: NewIPCAccess(client), close: client.Close}, nil
		}
	}
	if openStore == nil {
		return Session{}, errors.New("open queue store: daemon unreachable and no database configured")
	}
	store, err := openStore()
	if err != nil {
		return Session{}, fmt.Errorf("open queue store: %w", err)
	}
	return Session{Access: NewStoreAccess(store), Offline: true, close: store.Close}, nil
}
