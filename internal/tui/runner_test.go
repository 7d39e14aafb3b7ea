package tui

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgressDisplay_Success(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay().WithOutput(&buf)

	p.Success("connected to stores@ol_informix1210")

	out := buf.String()
	if !strings.Contains(out, SymbolCheck) || !strings.Contains(out, "connected to stores@ol_informix1210") {
		t.Errorf("unexpected success output: %q", out)
	}
}

func TestProgressDisplay_Error(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay().WithOutput(&buf)

	p.Error("connection refused")

	out := buf.String()
	if !strings.Contains(out, SymbolCross) || !strings.Contains(out, "connection refused") {
		t.Errorf("unexpected error output: %q", out)
	}
}

func TestProgressDisplay_StartNonInteractive(t *testing.T) {
	t.Setenv("IFXBRIDGE_NON_INTERACTIVE", "1")

	var buf bytes.Buffer
	p := NewProgressDisplay().WithOutput(&buf)

	p.Start("connecting")

	if got := buf.String(); got != "connecting\n" {
		t.Errorf("expected plain line in non-interactive mode, got %q", got)
	}
}
