package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

const dangerBanner = `
  ##################################################
  #                     DANGER                     #
  ##################################################

  You are about to OVERWRITE:

      ${subject}

  The existing contents will be permanently lost.
`

// ForcedApprover implements the Approver interface for forced (non-interactive)
// approval. It displays a countdown and automatically approves after the countdown,
// used when the --force flag is provided.
type ForcedApprover struct {
	verbose bool
	output  io.Writer
	sleepFn func(time.Duration)
}

// NewForcedApprover creates a new ForcedApprover.
func NewForcedApprover(verbose bool) ifxbridge.Approver {
	return &ForcedApprover{
		verbose: verbose,
		output:  os.Stderr,
		sleepFn: time.Sleep,
	}
}

// RequestApproval displays a countdown and automatically approves after the countdown.
func (a *ForcedApprover) RequestApproval(ctx context.Context, subject string) (bool, error) {
	warningText := strings.ReplaceAll(dangerBanner, "${subject}", subject)
	fmt.Fprintln(a.output)
	fmt.Fprint(a.output, warningText)
	fmt.Fprintln(a.output)

	countdownSeconds := int(ifxbridge.DefaultForceApprovalCountdown.Seconds())
	for i := countdownSeconds; i > 0; i-- {
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		default:
			fmt.Fprintf(a.output, "\rOverwriting in: %d seconds... (Press Ctrl+C to cancel)", i)
			a.sleepFn(1 * time.Second)
		}
	}

	fmt.Fprintf(a.output, "\r✓ Proceeding with overwrite...                              \n")
	return true, nil
}

// Verify ForcedApprover implements the Approver interface at compile time
var _ ifxbridge.Approver = (*ForcedApprover)(nil)
