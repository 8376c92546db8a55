package queue

import "errors"

// ErrInvalidTransition reports a status change the state machine does not
// allow, or one whose precondition no longer holds in the database.
var ErrInvalidTransition = errors.New("invalid status transition")
