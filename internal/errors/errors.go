// Package errors provides domain-specific error types for wbtcp.
//
// Protocol-level outcomes (a line that does not parse, a client that
// went away) are message kinds, not errors.  What remains here are the
// failures a caller has to act on: fatal socket errors, which end the
// session, and configuration mistakes, which stop the program before
// it binds anything.
package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	ErrNotConnected    = errors.New("not connected")
	ErrSessionClosed   = errors.New("session is closed")
	ErrInvalidCommand  = errors.New("invalid command")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// ── Structured error types ───────────────────────────────────────────

// FatalError is an unrecoverable failure of the listener or of the
// active connection.  The session cannot continue after one.
type FatalError struct {
	Op   string // "resolve", "listen", "accept", "read", "write", "dial"
	Addr string // endpoint or peer address involved
	Err  error  // underlying error
}

func (e *FatalError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *FatalError) Unwrap() error { return e.Err }

// ConfigError represents an invalid configuration value.
type ConfigError struct {
	Field   string      // config field name
	Value   interface{} // the invalid value (nil if missing)
	Message string      // human-readable explanation
	Hint    string      // suggestion for the user (optional)
}

func (e *ConfigError) Error() string {
	msg := fmt.Sprintf("config: --%s", e.Field)
	if e.Value != nil {
		msg += fmt.Sprintf("=%v", e.Value)
	}
	msg += ": " + e.Message
	if e.Hint != "" {
		msg += "\n  hint: " + e.Hint
	}
	return msg
}

// ── Constructors ─────────────────────────────────────────────────────

// Fatal creates a FatalError.
func Fatal(op, addr string, err error) *FatalError {
	return &FatalError{Op: op, Addr: addr, Err: err}
}

// ── Classification helpers ───────────────────────────────────────────

// IsFatal reports whether err ends the session.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsDisconnect reports whether err only means the peer has gone away
// (or the socket was closed locally), as opposed to a broken stack.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE)
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use wbtcp/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }

// Join is [errors.Join].
func Join(errs ...error) error { return errors.Join(errs...) }
