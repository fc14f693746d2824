// Package mega is the awaitable facade over a native MEGA SDK client.
// Every public method submits one native operation and blocks the calling
// goroutine until the SDK's worker thread completes it, surfacing the result
// as a value or a typed error. Session provides the open/close lifecycle
// around the native handle.
package mega

import (
	"errors"
	"fmt"

	"github.com/openmega/megawait/internal/bridge"
	"github.com/openmega/megawait/internal/native"
)

// Sentinel errors for native result classification.
// Use errors.Is(err, mega.ErrNotFound) to check.
var (
	ErrInvalidArgument = errors.New("mega: invalid argument")
	ErrAuthentication  = errors.New("mega: authentication failed")
	ErrNotFound        = errors.New("mega: not found")
	ErrQuotaExceeded   = errors.New("mega: quota exceeded")
	ErrTransient       = errors.New("mega: transient error")
	ErrCancelled       = errors.New("mega: operation cancelled")
	ErrSessionClosed   = errors.New("mega: session closed")
	ErrNotOpen         = errors.New("mega: session not open")
	ErrAlreadyOpen     = errors.New("mega: session already open")
	ErrUnknown         = errors.New("mega: unknown error")
)

// OpError wraps a sentinel error with the operation name, the raw native
// code, and the SDK's message for debugging.
type OpError struct {
	Op      string
	Code    native.Code
	Message string
	Err     error // sentinel, for errors.Is()
}

func (e *OpError) Error() string {
	switch {
	case e.Code != native.CodeOK && e.Message != "":
		return fmt.Sprintf("mega: %s: %s (%s)", e.Op, e.Message, e.Code)
	case e.Code != native.CodeOK:
		return fmt.Sprintf("mega: %s: %v (%s)", e.Op, e.Err, e.Code)
	case e.Message != "":
		// No native code: cancellation and teardown failures. The sentinel
		// text already carries the "mega:" prefix.
		return fmt.Sprintf("%v (%s): %s", e.Err, e.Op, e.Message)
	default:
		return fmt.Sprintf("%v (%s)", e.Err, e.Op)
	}
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// classifyCode maps a native result code to a sentinel error.
// Returns nil for CodeOK. Unmapped codes fall through to ErrUnknown; the
// raw code is retained on the OpError either way.
func classifyCode(code native.Code) error {
	switch code {
	case native.CodeOK:
		return nil
	case native.CodeArgs, native.CodeAppKey, native.CodeRange, native.CodeCircular, native.CodeExist:
		return ErrInvalidArgument
	case native.CodeKey, native.CodeSID, native.CodeBlocked, native.CodeAccess, native.CodeMFARequired:
		return ErrAuthentication
	case native.CodeNoEnt:
		return ErrNotFound
	case native.CodeOverQuota, native.CodeGoingOverQuota:
		return ErrQuotaExceeded
	case native.CodeAgain, native.CodeRateLimit, native.CodeTempUnavail,
		native.CodeTooManyConnections, native.CodeSSL, native.CodeInternal,
		native.CodeFailed, native.CodeExpired, native.CodeWrite, native.CodeRead:
		return ErrTransient
	case native.CodeIncomplete:
		return ErrCancelled
	default:
		return ErrUnknown
	}
}

// translate converts a bridged outcome into a typed error, or nil for
// success. It never panics and always yields a value.
//
// Login is special-cased: the SDK reports an unknown account as ENOENT,
// which on any other operation means "not found" but on login means the
// credentials are wrong.
func translate(op string, o bridge.Outcome) error {
	if o.Closed {
		return &OpError{Op: op, Err: ErrSessionClosed}
	}

	sentinel := classifyCode(o.Code)
	if sentinel == nil {
		return nil
	}

	if sentinel == ErrNotFound && o.Request != nil && o.Request.Kind == native.KindLogin {
		sentinel = ErrAuthentication
	}

	return &OpError{Op: op, Code: o.Code, Message: o.Message, Err: sentinel}
}
