package wizards

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func asInitWizard(t *testing.T, m tea.Model) InitWizard {
	t.Helper()
	w, ok := m.(InitWizard)
	if !ok {
		t.Fatalf("expected InitWizard, got %T", m)
	}
	return w
}

func TestInitWizard_DefaultsToQuickSetup(t *testing.T) {
	w := NewInitWizard("./myapp")

	if w.step != initStepSetupChoice {
		t.Errorf("expected initial step initStepSetupChoice, got %d", w.step)
	}
	if w.tuneSettings {
		t.Error("quick setup should be the default")
	}
	if w.targetDir != "./myapp" {
		t.Errorf("target dir: got %q", w.targetDir)
	}
}

func TestInitWizard_EmptyTargetDefaultsToDot(t *testing.T) {
	w := NewInitWizard("")
	if w.targetDir != "." {
		t.Errorf("expected \".\", got %q", w.targetDir)
	}
}

func TestInitWizard_ToggleAndConfirm(t *testing.T) {
	var m tea.Model = NewInitWizard("./myapp")

	m, _ = update(t, m, keyMsg("down")) // switch to custom setup
	m, _ = update(t, m, keyMsg("enter"))

	w := asInitWizard(t, m)
	if w.step != initStepConfirm {
		t.Fatalf("expected confirm step, got %d", w.step)
	}
	if !w.result.TuneSettings {
		t.Error("expected TuneSettings after toggle")
	}
	if w.result.TargetDir != "./myapp" {
		t.Errorf("target dir not recorded: %q", w.result.TargetDir)
	}

	m, cmd := update(t, m, keyMsg("enter"))
	if !isQuitCmd(cmd) {
		t.Fatal("expected quit after confirmation")
	}
	if asInitWizard(t, m).Result().Cancelled {
		t.Error("confirmed run must not be cancelled")
	}
}

func TestInitWizard_EscCancels(t *testing.T) {
	var m tea.Model = NewInitWizard(".")

	m, cmd := update(t, m, keyMsg("esc"))

	if !isQuitCmd(cmd) {
		t.Fatal("expected quit on esc")
	}
	if !asInitWizard(t, m).Result().Cancelled {
		t.Error("expected Cancelled to be set")
	}
}

func TestInitWizard_QuitKeyCancels(t *testing.T) {
	var m tea.Model = NewInitWizard(".")

	m, cmd := update(t, m, keyMsg("q"))

	if !isQuitCmd(cmd) {
		t.Fatal("expected quit on q")
	}
	if !asInitWizard(t, m).Result().Cancelled {
		t.Error("expected Cancelled to be set")
	}
}

func TestInitWizard_BackFromConfirm(t *testing.T) {
	var m tea.Model = NewInitWizard(".")

	m, _ = update(t, m, keyMsg("enter"))
	if asInitWizard(t, m).step != initStepConfirm {
		t.Fatal("expected confirm step")
	}

	m, _ = update(t, m, keyMsg("esc"))
	if asInitWizard(t, m).step != initStepSetupChoice {
		t.Error("esc from confirm should return to the setup choice")
	}
}

func TestInitWizard_ViewConfirmListsFiles(t *testing.T) {
	var m tea.Model = NewInitWizard("./myapp")
	m, _ = update(t, m, keyMsg("enter"))

	view := m.View()
	for _, want := range []string{"Ready to configure", "Directory:", "ifxbridge.yaml", ".env.example"} {
		if !strings.Contains(view, want) {
			t.Errorf("confirm view missing %q:\n%s", want, view)
		}
	}
}

func TestInitWizard_ViewSetupChoice(t *testing.T) {
	w := NewInitWizard(".")

	view := w.View()
	for _, want := range []string{"Project Setup", "Quick setup", "Custom setup"} {
		if !strings.Contains(view, want) {
			t.Errorf("setup choice view missing %q:\n%s", want, view)
		}
	}
}
