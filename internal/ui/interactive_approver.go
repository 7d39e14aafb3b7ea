package ui

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

// InteractiveApprover implements the Approver interface for console-based
// interactive confirmation. It prompts the user to type the subject name
// to confirm destructive operations.
type InteractiveApprover struct {
	verbose bool
	input   io.Reader
	output  io.Writer
}

// NewInteractiveApprover creates a new InteractiveApprover.
func NewInteractiveApprover(verbose bool) ifxbridge.Approver {
	return &InteractiveApprover{
		verbose: verbose,
		input:   os.Stdin,
		output:  os.Stderr,
	}
}

// RequestApproval prompts the user to type the subject name to confirm.
func (a *InteractiveApprover) RequestApproval(ctx context.Context, subject string) (bool, error) {
	fmt.Fprintf(a.output, "\n⚠️  WARNING: You are about to OVERWRITE '%s'\n", subject)
	fmt.Fprintln(a.output, "This will permanently delete the existing contents!")
	fmt.Fprintf(a.output, "\nTo confirm, type '%s' and press Enter: ", subject)

	// Read user input with context cancellation support
	inputChan := make(chan string, 1)
	errChan := make(chan error, 1)

	go func() {
		reader := bufio.NewReader(a.input)
		line, err := reader.ReadString('\n')
		if err != nil {
			errChan <- err
			return
		}
		inputChan <- strings.TrimSpace(line)
	}()

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case err := <-errChan:
		return false, fmt.Errorf("failed to read input: %w", err)
	case line := <-inputChan:
		if line == subject {
			fmt.Fprintln(a.output, "✓ Confirmed. Proceeding with overwrite...")
			return true, nil
		}
		fmt.Fprintf(a.output, "✗ Input '%s' does not match '%s'. Operation cancelled.\n", line, subject)
		return false, nil
	}
}

// Verify InteractiveApprover implements the Approver interface at compile time
var _ ifxbridge.Approver = (*InteractiveApprover)(nil)
