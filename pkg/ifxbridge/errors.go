package ifxbridge

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	handle, err := manager.Obtain(ctx)
//	if errors.Is(err, ifxbridge.ErrManagerClosed) {
//	    // Handle obtaining from a closed manager
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrManagerClosed indicates the connection manager has been closed.
	ErrManagerClosed = errors.New("connection manager closed")

	// ErrUnknownDialect indicates the requested dialect is not registered.
	ErrUnknownDialect = errors.New("unknown dialect")

	// ErrApprovalDenied indicates the user denied approval for the operation.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrExecutionFailed indicates SQL execution failed.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrCredentialsExpired indicates a token-based credential has expired
	// and could not be refreshed.
	ErrCredentialsExpired = errors.New("credentials expired")
)

// Kind sentinels matched by the typed errors below, so callers can test the
// failure kind with errors.Is without naming the concrete type:
//
//	if errors.Is(err, ifxbridge.ErrConnectionUnavailable) { ... }
var (
	// ErrConnectFailed matches every ConnectError.
	ErrConnectFailed = errors.New("connection attempt failed")

	// ErrValidationFailed matches every ValidationError.
	ErrValidationFailed = errors.New("connection validation failed")

	// ErrConnectionUnavailable matches every UnavailableError.
	ErrConnectionUnavailable = errors.New("connection unavailable")

	// ErrTimedOut matches every TimeoutError.
	ErrTimedOut = errors.New("timed out waiting for connection")
)

// ConnectError reports the failure of a single connection attempt.
// It carries the address that was dialed so operators can tell which
// endpoint misbehaved without re-reading their configuration.
type ConnectError struct {
	// Addr is the host:port that was dialed.
	Addr string

	// Permanent is set when the failure was classified as permanent, such as
	// rejected credentials or a missing database. Retrying cannot fix these;
	// callers should surface them instead of treating them as an outage.
	Permanent bool

	// Err is the underlying driver or network error.
	Err error
}

func (e *ConnectError) Error() string {
	if e.Permanent {
		return fmt.Sprintf("connect to %s: permanent failure: %v", e.Addr, e.Err)
	}
	return fmt.Sprintf("connect to %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

func (e *ConnectError) Is(target error) bool { return target == ErrConnectFailed }

// ValidationError reports a failed liveness probe on a cached connection.
// The manager treats any validation failure as "connection is dead" and
// discards the cached connection; callers normally never see this error
// directly because a fresh connection is established instead.
type ValidationError struct {
	// Query is the probe statement that failed.
	Query string

	// Err is the underlying driver error.
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation query %q failed: %v", e.Query, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func (e *ValidationError) Is(target error) bool { return target == ErrValidationFailed }

// UnavailableError is the terminal error returned when the retry budget is
// exhausted or a permanent failure is detected. It wraps the most recent
// underlying cause and records how many attempts were made.
type UnavailableError struct {
	// Attempts is the total number of connection attempts made, including
	// the first one.
	Attempts int

	// Elapsed is the wall-clock time spent across all attempts and delays.
	Elapsed time.Duration

	// Err is the error from the last attempt.
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("connection unavailable after %d attempt(s) in %s: %v",
		e.Attempts, e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

func (e *UnavailableError) Is(target error) bool { return target == ErrConnectionUnavailable }

// TimeoutError is returned when a caller's context expires while waiting for
// a connection that other callers may still be establishing. The shared
// establishment keeps running; only this caller gives up.
type TimeoutError struct {
	// Elapsed is how long the caller waited before giving up.
	Elapsed time.Duration

	// Err is the context error (context.DeadlineExceeded or context.Canceled).
	Err error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for connection: %v",
		e.Elapsed.Round(time.Millisecond), e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

func (e *TimeoutError) Is(target error) bool { return target == ErrTimedOut }

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	// Check for typed errors first; they carry the most context.
	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return ExitUnavailable
	}
	var connect *ConnectError
	if errors.As(err, &connect) {
		return ExitConnectionError
	}
	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return ExitTimeout
	}

	// Check for sentinel errors
	switch {
	case errors.Is(err, ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, ErrUnknownDialect):
		return ExitConfigError
	case errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrExecutionFailed):
		return ExitExecutionFailed
	case errors.Is(err, ErrManagerClosed):
		return ExitGeneralError
	}

	// Check for common connection error patterns
	errStr := err.Error()
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
