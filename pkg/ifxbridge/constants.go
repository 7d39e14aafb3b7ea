package ifxbridge

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Operation completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or parameters
	ExitConnectionError = 11 // Failed to connect to the database
	ExitApprovalDenied  = 12 // User denied an overwrite approval
	ExitExecutionFailed = 13 // SQL execution failed
	ExitUnavailable     = 14 // Connection could not be established within the retry budget
	ExitTimeout         = 15 // Caller's deadline expired while waiting for a connection
)

const (
	// DefaultRetryMaxAttempts is the default total number of connection
	// attempts before the manager gives up. The first attempt counts.
	DefaultRetryMaxAttempts = 3

	// DefaultRetryBaseDelay is the default delay after the first failed attempt.
	DefaultRetryBaseDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default ceiling for the delay between attempts.
	DefaultRetryMaxDelay = 30 * time.Second

	// DefaultRetryGrowthFactor is the default multiplier applied to the delay
	// after each failed attempt.
	DefaultRetryGrowthFactor = 2.0

	// DefaultValidationInterval is how long a cached connection is trusted
	// before it is re-validated on the next Obtain.
	DefaultValidationInterval = 5 * time.Minute

	// DefaultValidationTimeout bounds a single validation probe. Validation
	// must be cheap; a probe that takes longer than this is treated as failed.
	DefaultValidationTimeout = 5 * time.Second

	// DefaultConnectTimeout bounds a single connection attempt, including the
	// TCP dial, authentication handshake, and session setup statements.
	DefaultConnectTimeout = 15 * time.Second

	// DefaultForceApprovalCountdown is the countdown duration before a forced
	// approval proceeds.
	DefaultForceApprovalCountdown = 5 * time.Second

	// MaxErrorPreviewLength is the maximum number of characters shown in
	// error messages when previewing failed SQL statements.
	MaxErrorPreviewLength = 200
)
