package tui

import (
	"fmt"
	"io"
	"os"
)

// PromptContinue asks a yes/no question on the terminal. Non-interactive
// sessions answer yes so scripted runs do not hang.
func PromptContinue(message string) bool {
	if !IsInteractive() {
		return true
	}

	fmt.Printf("%s [Y/n]: ", message)

	var response string
	fmt.Scanln(&response)

	return response == "" || response == "y" || response == "Y"
}

// ProgressDisplay prints step progress for long operations like connection
// probes. It degrades to plain lines when not attached to a terminal.
type ProgressDisplay struct {
	out io.Writer
}

func NewProgressDisplay() *ProgressDisplay {
	return &ProgressDisplay{out: os.Stdout}
}

// WithOutput redirects the display output, mainly for tests.
func (p *ProgressDisplay) WithOutput(w io.Writer) *ProgressDisplay {
	p.out = w
	return p
}

func (p *ProgressDisplay) Start(message string) {
	if !IsInteractive() {
		fmt.Fprintln(p.out, message)
		return
	}
	fmt.Fprintf(p.out, "%s %s\n", SymbolSpinner, message)
}

func (p *ProgressDisplay) Success(message string) {
	fmt.Fprintf(p.out, "%s %s\n", SymbolCheck, message)
}

func (p *ProgressDisplay) Error(message string) {
	fmt.Fprintf(p.out, "%s %s\n", SymbolCross, message)
}
