package ifxbridge

import "context"

// Approver handles user interaction for approval workflows,
// particularly for destructive operations like overwriting an existing
// project configuration.
//
// Implementations:
//   - ForcedApprover: Shows countdown and automatically approves
//   - InteractiveApprover: Prompts user to type the subject name for confirmation
type Approver interface {
	// RequestApproval prompts for confirmation before an overwrite proceeds.
	//
	// Parameters:
	//   - ctx: Context for cancellation
	//   - subject: The resource about to be overwritten (file path or database name)
	//
	// Returns:
	//   - bool: true if approved, false if denied
	//   - error: Any error that occurred during the approval process
	RequestApproval(ctx context.Context, subject string) (bool, error)
}
