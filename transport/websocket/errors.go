package websocket

import (
	"errors"
	"fmt"
)

// Protocol errors are recoverable: they are reported to the offending
// connection and the connection keeps processing frames. Only socket I/O
// errors terminate a connection.
var (
	ErrAlreadySubscribed = errors.New("already subscribed to a session")
	ErrNotSubscribed     = errors.New("not subscribed to any session")
)

// SessionNotFoundError reports a message targeting an unknown session.
type SessionNotFoundError struct {
	ID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.ID)
}

// InvalidMessageError reports a malformed frame or a failed store write.
type InvalidMessageError struct {
	Detail string
}

func (e *InvalidMessageError) Error() string {
	return fmt.Sprintf("invalid message format: %s", e.Detail)
}
