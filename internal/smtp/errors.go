package smtp

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrMissingHost      = errors.New("host is required")
	ErrMissingUser      = errors.New("user is required")
	ErrMissingRecipient = errors.New("recipient is required")
	ErrInvalidSender    = errors.New("sender must contain exactly one '@' followed by a domain")
	ErrReplyTooLong     = fmt.Errorf("reply spans more than %d lines", maxReplyLines)
)

// ConnectionError means the TCP connection could not be established.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// TimeoutError means the server did not answer within the inactivity timeout.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

type WriteError struct {
	Err error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("failed to send command: %v", e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

type ReadError struct {
	Err error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("failed to read response: %v", e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// MessageError means the test message could not be built or signed.
// It is a local configuration problem, no command has been sent.
type MessageError struct {
	Err error
}

func (e *MessageError) Error() string {
	return fmt.Sprintf("failed to prepare test message: %v", e.Err)
}

func (e *MessageError) Unwrap() error { return e.Err }

// ProtocolError means the server answered with a code outside the stage's accepted set.
type ProtocolError struct {
	Stage    Stage
	Expected []string
	Reply    string
}

func (e *ProtocolError) Error() string {
	reply := strings.ReplaceAll(strings.TrimRight(e.Reply, "\r\n"), "\r\n", " | ")
	if reply == "" {
		reply = "<empty reply>"
	}
	return fmt.Sprintf("%s: expected status %s, got %s", e.Stage, strings.Join(e.Expected, " or "), reply)
}
