package tui

import (
	"os"

	"golang.org/x/term"
)

// Mode says whether ifxbridge may prompt and render TUI components.
type Mode int

const (
	// ModeNonInteractive suits pipelines, scripts, and piped input.
	ModeNonInteractive Mode = iota
	// ModeInteractive means a human is at the terminal.
	ModeInteractive
)

// Environment variables that force non-interactive mode when set.
// IFXBRIDGE_NON_INTERACTIVE must equal "1"; the others count when non-empty
// (CI is the de facto pipeline convention, NO_COLOR signals automation or
// accessibility tooling).
var nonInteractiveEnv = []string{"CI", "NO_COLOR"}

// DetectMode decides the interaction mode. Environment overrides win; after
// that both stdin and stdout must be terminals, since a wizard that cannot
// read keystrokes or render frames is worse than a plain error message.
func DetectMode() Mode {
	if os.Getenv("IFXBRIDGE_NON_INTERACTIVE") == "1" {
		return ModeNonInteractive
	}
	for _, name := range nonInteractiveEnv {
		if os.Getenv(name) != "" {
			return ModeNonInteractive
		}
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd())) {
		return ModeNonInteractive
	}

	return ModeInteractive
}

// IsInteractive reports whether DetectMode resolves to ModeInteractive.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}
