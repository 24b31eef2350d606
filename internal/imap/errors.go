package imap

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates an identifier could not be resolved to any message.
// It is terminal: callers report it, they do not retry.
var ErrNotFound = errors.New("message not found")

// ConnectionError is a transport or authentication failure. It is fatal for
// the whole operation; no strategy fallback is possible without a connection.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// ProtocolError means a specific command was rejected or its response was
// malformed. Inside the strategy chain it triggers fallthrough to the next
// layer; outside the chain it is surfaced to the caller.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error during %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func connErr(op string, err error) error {
	return &ConnectionError{Op: op, Err: err}
}

func protoErr(op string, err error) error {
	return &ProtocolError{Op: op, Err: err}
}
