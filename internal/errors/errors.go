// Package errors provides domain-specific error types for aictl.
//
// These types carry structured context (wire stage, offending input,
// byte counts) so the session loops can tell recoverable per-frame
// failures apart from connection-level ones, and so diagnostics name
// what actually went wrong on the wire.
package errors

import (
	"errors"
	"fmt"
	"io"
	"net"
)

// ── Sentinel errors ──────────────────────────────────────────────────

var (
	// ErrAmountRange rejects movement amounts outside [0.00, 1.00].
	ErrAmountRange = errors.New("amount out of range [0.00, 1.00]")

	// ErrDecisionBudget reports a decider that did not finish within
	// its time budget.  The tick produces no command.
	ErrDecisionBudget = errors.New("decision exceeded time budget")
)

// ── Structured error types ───────────────────────────────────────────

// DecodeError represents a malformed state frame.  It is recoverable:
// the receiver skips the line and keeps reading.
type DecodeError struct {
	Line string // the offending line (may be truncated)
	Err  error  // underlying JSON error
}

func (e *DecodeError) Error() string {
	line := e.Line
	if len(line) > 80 {
		line = line[:80] + "…"
	}
	return fmt.Sprintf("decode state frame %q: %v", line, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// FramingError represents a broken image frame: a short length prefix,
// a truncated payload, an implausible length, or undecodable image
// bytes.  It aborts the current fetch only, never the session.
type FramingError struct {
	Stage string // "length-prefix", "payload", "decode"
	Want  int    // bytes expected (0 if not applicable)
	Got   int    // bytes actually read
	Err   error  // underlying error
}

func (e *FramingError) Error() string {
	s := "image frame " + e.Stage
	if e.Want > 0 {
		s += fmt.Sprintf(": %d of %d bytes", e.Got, e.Want)
	}
	if e.Err != nil {
		s += fmt.Sprintf(": %v", e.Err)
	}
	return s
}

func (e *FramingError) Unwrap() error { return e.Err }

// NetworkError represents a connection-level failure.  It is terminal
// for the owning session but never for the server.
type NetworkError struct {
	Op   string // operation: "listen", "accept", "read", "write"
	Addr string // network address involved
	Err  error  // underlying error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

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

// ── Classification helpers ───────────────────────────────────────────

// IsTimeout reports whether err is a network deadline expiry.  The
// receiver treats these as a poll tick, not a failure.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// IsDisconnect reports whether err means the peer is gone or the
// socket has been torn down — the conditions that end a session
// without being worth an error-level log.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe)
}

// ── Re-exports for convenience ───────────────────────────────────────
//
// These allow callers to use aictl/internal/errors as a drop-in
// replacement for the standard library in common operations.

// As is [errors.As].
func As(err error, target interface{}) bool { return errors.As(err, target) }

// Is is [errors.Is].
func Is(err, target error) bool { return errors.Is(err, target) }

// New is [errors.New].
func New(text string) error { return errors.New(text) }

// Unwrap is [errors.Unwrap].
func Unwrap(err error) error { return errors.Unwrap(err) }
