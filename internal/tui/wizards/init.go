package wizards

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/openifx/ifxbridge/internal/config"
	"github.com/openifx/ifxbridge/internal/tui"
)

// InitResult holds the result of the init wizard chain.
type InitResult struct {
	Cancelled    bool
	TargetDir    string
	TuneSettings bool
	ConnResult   ConnectionResult
	ConfigResult ConfigResult
}

// InitWizard is the entry screen of ifxbridge init: it confirms the target
// directory and asks whether to tune the optional settings after the
// connection test. The connection and config wizards run afterwards.
type InitWizard struct {
	step initStep

	// Target directory
	targetDir string

	// Settings tuning choice
	tuneSettings bool

	// Result
	result InitResult

	// Dimensions
	width  int
	height int

	keys tui.KeyMap
}

type initStep int

const (
	initStepSetupChoice initStep = iota
	initStepConfirm
	initStepDone
)

// NewInitWizard creates a new init wizard.
func NewInitWizard(targetDir string) InitWizard {
	if targetDir == "" {
		targetDir = "."
	}
	return InitWizard{
		step:      initStepSetupChoice,
		targetDir: targetDir,
		width:     80,
		height:    24,
		keys:      tui.DefaultKeyMap(),
	}
}

// Init implements tea.Model.
func (w InitWizard) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (w InitWizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
		return w, nil

	case tea.KeyMsg:
		if key.Matches(msg, w.keys.Quit) || msg.String() == "ctrl+c" {
			w.result.Cancelled = true
			return w, tea.Quit
		}

		switch w.step {
		case initStepSetupChoice:
			return w.updateSetupChoice(msg)
		case initStepConfirm:
			return w.updateConfirm(msg)
		}
	}

	return w, nil
}

func (w InitWizard) updateSetupChoice(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, w.keys.Up), key.Matches(msg, w.keys.Down):
		w.tuneSettings = !w.tuneSettings
	case key.Matches(msg, w.keys.Select):
		w.result.TuneSettings = w.tuneSettings
		w.result.TargetDir = w.targetDir
		w.step = initStepConfirm
	case key.Matches(msg, w.keys.Back):
		w.result.Cancelled = true
		return w, tea.Quit
	}
	return w, nil
}

func (w InitWizard) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, w.keys.Select):
		w.step = initStepDone
		return w, tea.Quit
	case key.Matches(msg, w.keys.Back):
		w.step = initStepSetupChoice
	}
	return w, nil
}

// View implements tea.Model.
func (w InitWizard) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("ifxbridge init - Project Setup"))
	b.WriteString("\n")

	switch w.step {
	case initStepSetupChoice:
		b.WriteString(w.viewSetupChoice())
	case initStepConfirm:
		b.WriteString(w.viewConfirm())
	}

	return b.String()
}

func (w InitWizard) viewSetupChoice() string {
	var b strings.Builder

	b.WriteString(tui.SubtitleStyle.Render("How much do you want to configure?"))
	b.WriteString("\n\n")

	options := []struct {
		selected bool
		name     string
		desc     string
	}{
		{!w.tuneSettings, "Quick setup (recommended)", "Connection details only, package defaults for everything else"},
		{w.tuneSettings, "Custom setup", "Also tune driver parameters and the validation interval"},
	}

	for _, opt := range options {
		cursor := "  "
		style := tui.UnselectedStyle
		symbol := tui.SymbolUnselected

		if opt.selected {
			cursor = ""
			style = tui.SelectedStyle
			symbol = tui.SymbolSelected
		}

		b.WriteString(cursor)
		b.WriteString(style.Render(symbol + " " + opt.name))
		b.WriteString("\n")
		b.WriteString(tui.DescriptionStyle.Render(opt.desc))
		b.WriteString("\n")
	}

	b.WriteString(tui.HelpStyle.Render("\n↑/↓ toggle • enter select • esc cancel"))

	return b.String()
}

func (w InitWizard) viewConfirm() string {
	var b strings.Builder

	b.WriteString(tui.SuccessStyle.Render(tui.SymbolCheck + " Ready to configure"))
	b.WriteString("\n\n")

	absPath, _ := filepath.Abs(w.targetDir)
	b.WriteString(fmt.Sprintf("Directory: %s\n", absPath))
	b.WriteString(fmt.Sprintf("Files:     %s, .env.example\n", config.ConfigFileName))

	if w.result.TuneSettings {
		b.WriteString("\nAfter the connection test you'll tune the optional settings.\n")
	}

	b.WriteString(tui.HelpStyle.Render("\nenter continue • esc go back"))

	return b.String()
}

// Result returns the wizard result.
func (w InitWizard) Result() InitResult {
	return w.result
}

// RunInitWizard executes the init wizard chain: the entry screen, the
// connection wizard, and optionally the config wizard. The returned
// ConfigResult.Config is ready to hand to the scaffolder.
func RunInitWizard(targetDir string) (InitResult, error) {
	wizard := NewInitWizard(targetDir)
	p := tea.NewProgram(wizard, tea.WithAltScreen())

	model, err := p.Run()
	if err != nil {
		return InitResult{Cancelled: true}, err
	}

	result := model.(InitWizard).Result()
	if result.Cancelled {
		return result, nil
	}

	connResult, err := RunConnectionWizard()
	if err != nil {
		return result, err
	}
	result.ConnResult = connResult
	if connResult.Cancelled {
		result.Cancelled = true
		return result, nil
	}

	seed := ProjectConfigFromResult(connResult)
	if result.TuneSettings {
		cfgResult, err := RunConfigWizard(seed)
		if err != nil {
			return result, err
		}
		if cfgResult.Cancelled {
			result.Cancelled = true
			return result, nil
		}
		result.ConfigResult = cfgResult
	} else {
		result.ConfigResult = ConfigResult{Config: seed}
	}

	return result, nil
}

// ShowInitComplete displays the completion message after the files are
// written. tree comes from scaffold.BuildFileTree.
func ShowInitComplete(targetDir, tree string) {
	fmt.Println()
	fmt.Println(tui.SymbolCheck + " Project configured!")
	fmt.Println()
	fmt.Print(tree)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  1. cd %s\n", targetDir)
	fmt.Println("  2. Put the database password in .env (copy .env.example)")
	fmt.Println("  3. Run: ifxbridge ping")
	fmt.Println()
}
