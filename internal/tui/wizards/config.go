package wizards

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/openifx/ifxbridge/internal/config"
	"github.com/openifx/ifxbridge/internal/tui"
)

// ConfigResult holds the result of the config wizard.
type ConfigResult struct {
	Cancelled bool
	Config    config.ProjectConfig
}

// ConfigWizard tunes the optional ifxbridge.yaml settings after the
// connection wizard has produced the endpoint: driver parameters and the
// validation interval. The caller hands the result to the scaffolder;
// nothing is written here.
type ConfigWizard struct {
	step configStep

	// Seed produced by the connection wizard or loaded from disk
	base config.ProjectConfig

	// Driver parameters
	params    []paramEntry
	paramIdx  int
	editingKV bool
	kvInputs  []textinput.Model
	kvFocus   int

	// Validation interval ("" keeps the package default)
	interval string

	result ConfigResult

	width  int
	height int

	keys tui.KeyMap
}

type configStep int

const (
	configStepParams configStep = iota
	configStepValidation
	configStepReview
	configStepDone
)

type paramEntry struct {
	Key   string
	Value string
}

// intervalChoices are the validation intervals offered by the wizard, each
// bound to a digit key. The empty value keeps the package default.
var intervalChoices = []struct {
	Digit string
	Value string
	Label string
}{
	{"1", "0s", "validate on every use"},
	{"2", "30s", "trust for 30 seconds"},
	{"3", "5m", "trust for 5 minutes"},
	{"4", "-1s", "never validate"},
	{"0", "", "package default"},
}

// NewConfigWizard creates a config wizard seeded with base. Parameters
// already present on the connection are offered for editing.
func NewConfigWizard(base config.ProjectConfig) ConfigWizard {
	return ConfigWizard{
		step:     configStepParams,
		base:     base,
		params:   paramEntries(base.Connection.Params),
		interval: base.Validation.Interval,
		width:    80,
		height:   24,
		keys:     tui.DefaultKeyMap(),
	}
}

// paramEntries flattens a params map into sorted entries for stable display.
func paramEntries(params map[string]string) []paramEntry {
	if len(params) == 0 {
		return []paramEntry{}
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]paramEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, paramEntry{Key: k, Value: params[k]})
	}
	return entries
}

// Init implements tea.Model.
func (w ConfigWizard) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (w ConfigWizard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		w.width = msg.Width
		w.height = msg.Height
		return w, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			w.result.Cancelled = true
			return w, tea.Quit
		}

		switch w.step {
		case configStepParams:
			return w.updateParams(msg)
		case configStepValidation:
			return w.updateValidation(msg)
		case configStepReview:
			return w.updateReview(msg)
		}

	default:
		// Forward non-key messages (focus, blink cursor) to active input
		if w.editingKV && w.kvFocus < len(w.kvInputs) {
			var cmd tea.Cmd
			w.kvInputs[w.kvFocus], cmd = w.kvInputs[w.kvFocus].Update(msg)
			return w, cmd
		}
	}

	return w, nil
}

func (w ConfigWizard) updateParams(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if w.editingKV {
		return w.updateKVEdit(msg)
	}

	switch {
	case key.Matches(msg, w.keys.Up):
		if w.paramIdx > 0 {
			w.paramIdx--
		}
	case key.Matches(msg, w.keys.Down):
		if w.paramIdx < len(w.params) {
			w.paramIdx++
		}
	case key.Matches(msg, w.keys.Select):
		if w.paramIdx == len(w.params) {
			// Add new parameter
			w.editingKV = true
			w.kvInputs = w.createKVInputs("", "")
			w.kvFocus = 0
			return w, w.kvInputs[0].Focus()
		}
		// Edit existing
		p := w.params[w.paramIdx]
		w.editingKV = true
		w.kvInputs = w.createKVInputs(p.Key, p.Value)
		w.kvFocus = 0
		return w, w.kvInputs[0].Focus()
	case msg.String() == "d":
		// Delete parameter
		if w.paramIdx < len(w.params) {
			w.params = append(w.params[:w.paramIdx], w.params[w.paramIdx+1:]...)
			if w.paramIdx > 0 && w.paramIdx >= len(w.params) {
				w.paramIdx--
			}
		}
	case msg.String() == "n":
		// Next step
		w.step = configStepValidation
	case key.Matches(msg, w.keys.Back):
		w.result.Cancelled = true
		return w, tea.Quit
	}
	return w, nil
}

func (w *ConfigWizard) createKVInputs(k, v string) []textinput.Model {
	keyInput := textinput.New()
	keyInput.Placeholder = "DELIMIDENT"
	keyInput.CharLimit = 64
	keyInput.Width = 30
	keyInput.SetValue(k)

	valInput := textinput.New()
	valInput.Placeholder = "y"
	valInput.CharLimit = 256
	valInput.Width = 40
	valInput.SetValue(v)

	return []textinput.Model{keyInput, valInput}
}

func (w ConfigWizard) updateKVEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, w.keys.Tab), msg.String() == "down":
		if w.kvFocus < len(w.kvInputs)-1 {
			w.kvInputs[w.kvFocus].Blur()
			w.kvFocus++
			return w, w.kvInputs[w.kvFocus].Focus()
		}
	case msg.String() == "shift+tab", msg.String() == "up":
		if w.kvFocus > 0 {
			w.kvInputs[w.kvFocus].Blur()
			w.kvFocus--
			return w, w.kvInputs[w.kvFocus].Focus()
		}
	case key.Matches(msg, w.keys.Select):
		// Save the parameter
		k := w.kvInputs[0].Value()
		v := w.kvInputs[1].Value()
		if k != "" {
			if w.paramIdx < len(w.params) {
				w.params[w.paramIdx] = paramEntry{Key: k, Value: v}
			} else {
				w.params = append(w.params, paramEntry{Key: k, Value: v})
			}
		}
		w.editingKV = false
		w.kvInputs = nil
		return w, nil
	case key.Matches(msg, w.keys.Back):
		w.editingKV = false
		w.kvInputs = nil
		return w, nil
	default:
		var cmd tea.Cmd
		w.kvInputs[w.kvFocus], cmd = w.kvInputs[w.kvFocus].Update(msg)
		return w, cmd
	}
	return w, nil
}

func (w ConfigWizard) updateValidation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	for _, c := range intervalChoices {
		if msg.String() == c.Digit {
			w.interval = c.Value
		}
	}

	switch {
	case key.Matches(msg, w.keys.Select), msg.String() == "n":
		w.step = configStepReview
	case key.Matches(msg, w.keys.Back):
		w.step = configStepParams
	}
	return w, nil
}

func (w ConfigWizard) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, w.keys.Select):
		w.buildConfig()
		w.step = configStepDone
		return w, tea.Quit
	case key.Matches(msg, w.keys.Back):
		w.step = configStepValidation
	}
	return w, nil
}

// assembleConfig applies the edited params and interval to the seed.
func (w ConfigWizard) assembleConfig() config.ProjectConfig {
	cfg := w.base
	cfg.Connection.Params = nil
	if len(w.params) > 0 {
		cfg.Connection.Params = make(map[string]string, len(w.params))
		for _, p := range w.params {
			cfg.Connection.Params[p.Key] = p.Value
		}
	}
	cfg.Validation.Interval = w.interval
	return cfg
}

func (w *ConfigWizard) buildConfig() {
	w.result.Config = w.assembleConfig()
}

// View implements tea.Model.
func (w ConfigWizard) View() string {
	var b strings.Builder

	b.WriteString(tui.TitleStyle.Render("ifxbridge - Project Settings"))
	b.WriteString("\n")

	switch w.step {
	case configStepParams:
		b.WriteString(w.viewParams())
	case configStepValidation:
		b.WriteString(w.viewValidation())
	case configStepReview:
		b.WriteString(w.viewReview())
	}

	return b.String()
}

func (w ConfigWizard) viewParams() string {
	var b strings.Builder

	b.WriteString(tui.SuccessStyle.Render(tui.SymbolCheck + " Connection: "))
	b.WriteString(fmt.Sprintf("%s:%d/%s", w.base.Connection.Host, w.base.Connection.Port, w.base.Connection.Database))
	b.WriteString("\n\n")

	b.WriteString(tui.SubtitleStyle.Render("Driver parameters"))
	b.WriteString("\n")
	b.WriteString(tui.DescriptionStyle.Render("Passed through to the driver, e.g. DELIMIDENT=y (optional)"))
	b.WriteString("\n\n")

	if w.editingKV {
		b.WriteString("Key:   ")
		b.WriteString(w.kvInputs[0].View())
		b.WriteString("\n")
		b.WriteString("Value: ")
		b.WriteString(w.kvInputs[1].View())
		b.WriteString("\n\n")
		b.WriteString(tui.HelpStyle.Render("tab next • enter save • esc cancel"))
	} else {
		for i, p := range w.params {
			cursor := "  "
			style := tui.UnselectedStyle
			if i == w.paramIdx {
				cursor = ""
				style = tui.SelectedStyle
			}
			b.WriteString(cursor)
			b.WriteString(style.Render(fmt.Sprintf("%s = %s", p.Key, p.Value)))
			b.WriteString("\n")
		}

		cursor := "  "
		style := tui.UnselectedStyle
		if w.paramIdx == len(w.params) {
			cursor = ""
			style = tui.SelectedStyle
		}
		b.WriteString(cursor)
		b.WriteString(style.Render("+ Add parameter"))
		b.WriteString("\n\n")

		b.WriteString(tui.HelpStyle.Render("↑/↓ navigate • enter edit • d delete • n next step"))
	}

	return b.String()
}

func (w ConfigWizard) viewValidation() string {
	var b strings.Builder

	b.WriteString(tui.SubtitleStyle.Render("Connection validation"))
	b.WriteString("\n")
	b.WriteString(tui.DescriptionStyle.Render("How long a cached connection is trusted before it is probed again"))
	b.WriteString("\n\n")

	for _, c := range intervalChoices {
		style := tui.UnselectedStyle
		symbol := tui.SymbolUnselected
		if c.Value == w.interval {
			style = tui.SelectedStyle
			symbol = tui.SymbolSelected
		}
		label := c.Label
		if c.Value != "" {
			label = fmt.Sprintf("%-4s %s", c.Value, c.Label)
		}
		b.WriteString("  ")
		b.WriteString(style.Render(fmt.Sprintf("%s [%s] %s", symbol, c.Digit, label)))
		b.WriteString("\n")
	}

	b.WriteString(tui.HelpStyle.Render("\ndigit select • n next step • esc back"))

	return b.String()
}

func (w ConfigWizard) viewReview() string {
	var b strings.Builder

	b.WriteString(tui.SubtitleStyle.Render("Review ifxbridge.yaml"))
	b.WriteString("\n\n")

	yamlBytes, _ := yaml.Marshal(w.assembleConfig())
	for _, line := range strings.Split(string(yamlBytes), "\n") {
		b.WriteString(tui.DescriptionStyle.Render("  " + line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(tui.HelpStyle.Render("enter accept • esc go back"))

	return b.String()
}

// Result returns the wizard result.
func (w ConfigWizard) Result() ConfigResult {
	return w.result
}

// RunConfigWizard executes the config wizard on the given seed.
func RunConfigWizard(base config.ProjectConfig) (ConfigResult, error) {
	wizard := NewConfigWizard(base)
	p := tea.NewProgram(wizard, tea.WithAltScreen())

	model, err := p.Run()
	if err != nil {
		return ConfigResult{Cancelled: true}, err
	}

	return model.(ConfigWizard).Result(), nil
}

// ProjectConfigFromResult converts a completed connection wizard result into
// the ifxbridge.yaml shape. Passwords are not carried over.
func ProjectConfigFromResult(res ConnectionResult) config.ProjectConfig {
	conn := config.ConnectionConfig{
		Dialect:        res.Config.Dialect,
		Host:           res.Config.Endpoint.Host,
		Port:           res.Config.Endpoint.Port,
		Server:         res.Config.Endpoint.Server,
		Database:       res.Config.Endpoint.Database,
		Username:       res.Config.Credentials.Username,
		AuthMethod:     config.AuthMethodToken(res.Config.AuthMethod),
		AWSRegion:      res.AWSRegion,
		GoogleInstance: res.GoogleInstance,
	}
	if len(res.Config.Endpoint.Params) > 0 {
		conn.Params = make(map[string]string, len(res.Config.Endpoint.Params))
		for k, v := range res.Config.Endpoint.Params {
			conn.Params[k] = v
		}
	}
	return config.ProjectConfig{Connection: conn}
}
