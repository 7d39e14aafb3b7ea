package ifxbridge

import (
	"context"
	"time"
)

// Validator checks whether a cached connection is still usable.
type Validator interface {
	// Validate probes the handle. A nil return means the connection can
	// be handed to callers; any error means it must be discarded.
	Validate(ctx context.Context, h *Handle) error
}

// QueryValidator probes liveness by running a cheap, side-effect-free query
// on the pinned connection. The probe runs under its own timeout: a
// validation that hangs is indistinguishable from a dead connection, and
// stalling every Obtain behind it would defeat the point of caching.
type QueryValidator struct {
	query   string
	timeout time.Duration
}

// NewQueryValidator creates a validator for the given probe query.
// An empty query or non-positive timeout falls back to package defaults.
func NewQueryValidator(query string, timeout time.Duration) *QueryValidator {
	if query == "" {
		query = "SELECT 1"
	}
	if timeout <= 0 {
		timeout = DefaultValidationTimeout
	}
	return &QueryValidator{query: query, timeout: timeout}
}

// Validate runs the probe and discards its result. Any failure, including
// hitting the probe timeout, marks the connection as dead.
func (v *QueryValidator) Validate(ctx context.Context, h *Handle) error {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	rows, err := h.Conn().QueryContext(ctx, v.query)
	if err != nil {
		return &ValidationError{Query: v.query, Err: err}
	}
	if err := rows.Close(); err != nil {
		return &ValidationError{Query: v.query, Err: err}
	}
	if err := rows.Err(); err != nil {
		return &ValidationError{Query: v.query, Err: err}
	}
	return nil
}

// Query returns the probe statement for tests and debugging.
func (v *QueryValidator) Query() string {
	return v.query
}

// Compile-time interface check
var _ Validator = (*QueryValidator)(nil)
