package wizards

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"gopkg.in/yaml.v3"

	"github.com/openifx/ifxbridge/internal/config"
	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

func asConfigWizard(t *testing.T, m tea.Model) ConfigWizard {
	t.Helper()
	w, ok := m.(ConfigWizard)
	if !ok {
		t.Fatalf("expected ConfigWizard, got %T", m)
	}
	return w
}

func settingsSeed() config.ProjectConfig {
	return config.ProjectConfig{
		Connection: config.ConnectionConfig{
			Dialect:  "informix",
			Host:     "db.example.com",
			Port:     9088,
			Server:   "ol_informix1210",
			Database: "stores",
			Username: "informix",
		},
	}
}

func TestConfigWizard_InitialState(t *testing.T) {
	w := NewConfigWizard(settingsSeed())

	if w.step != configStepParams {
		t.Errorf("expected initial step configStepParams, got %d", w.step)
	}
	if len(w.params) != 0 {
		t.Errorf("expected no params on a fresh seed, got %d", len(w.params))
	}
	if w.interval != "" {
		t.Errorf("expected empty interval, got %q", w.interval)
	}
}

func TestConfigWizard_SeedParamsAreSorted(t *testing.T) {
	seed := settingsSeed()
	seed.Connection.Params = map[string]string{"LOBCACHE": "0", "DELIMIDENT": "y"}

	w := NewConfigWizard(seed)

	if len(w.params) != 2 {
		t.Fatalf("expected 2 seeded params, got %d", len(w.params))
	}
	if w.params[0].Key != "DELIMIDENT" || w.params[1].Key != "LOBCACHE" {
		t.Errorf("expected sorted keys, got %q then %q", w.params[0].Key, w.params[1].Key)
	}
}

func TestConfigWizard_AcceptDefaultsPassesSeedThrough(t *testing.T) {
	seed := settingsSeed()
	seed.Connection.Params = map[string]string{"DELIMIDENT": "y"}
	var m tea.Model = NewConfigWizard(seed)

	m, _ = update(t, m, keyMsg("n")) // params -> validation
	m, _ = update(t, m, keyMsg("n")) // validation -> review
	m, cmd := update(t, m, keyMsg("enter"))

	if !isQuitCmd(cmd) {
		t.Fatal("expected quit after accepting the review")
	}
	res := asConfigWizard(t, m).Result()
	if res.Cancelled {
		t.Fatal("wizard should not be cancelled")
	}
	if res.Config.Connection.Host != "db.example.com" {
		t.Errorf("host not carried through: %q", res.Config.Connection.Host)
	}
	if res.Config.Connection.Params["DELIMIDENT"] != "y" {
		t.Errorf("seeded param lost: %v", res.Config.Connection.Params)
	}
	if res.Config.Validation.Interval != "" {
		t.Errorf("interval should stay at the package default, got %q", res.Config.Validation.Interval)
	}
}

func TestConfigWizard_AddParameter(t *testing.T) {
	var m tea.Model = NewConfigWizard(settingsSeed())

	m, _ = update(t, m, keyMsg("enter")) // open the add-parameter editor
	if !asConfigWizard(t, m).editingKV {
		t.Fatal("expected KV editor to open")
	}
	m = typeString(t, m, "DELIMIDENT")
	m, _ = update(t, m, keyMsg("tab"))
	m = typeString(t, m, "y")
	m, _ = update(t, m, keyMsg("enter")) // save the pair

	w := asConfigWizard(t, m)
	if w.editingKV {
		t.Fatal("expected KV editor to close after save")
	}
	if len(w.params) != 1 || w.params[0].Key != "DELIMIDENT" || w.params[0].Value != "y" {
		t.Fatalf("unexpected params: %v", w.params)
	}

	m, _ = update(t, m, keyMsg("n"))
	m, _ = update(t, m, keyMsg("n"))
	m, _ = update(t, m, keyMsg("enter"))

	res := asConfigWizard(t, m).Result()
	if res.Config.Connection.Params["DELIMIDENT"] != "y" {
		t.Errorf("added param missing from result: %v", res.Config.Connection.Params)
	}
}

func TestConfigWizard_EditExistingParameter(t *testing.T) {
	seed := settingsSeed()
	seed.Connection.Params = map[string]string{"DELIMIDENT": "y"}
	var m tea.Model = NewConfigWizard(seed)

	m, _ = update(t, m, keyMsg("enter")) // edit DELIMIDENT
	m, _ = update(t, m, keyMsg("tab"))   // move to the value field
	m = typeString(t, m, "es")           // append to "y"
	m, _ = update(t, m, keyMsg("enter"))

	w := asConfigWizard(t, m)
	if w.params[0].Value != "yes" {
		t.Errorf("expected edited value \"yes\", got %q", w.params[0].Value)
	}
}

func TestConfigWizard_EmptyKeyIsDiscarded(t *testing.T) {
	var m tea.Model = NewConfigWizard(settingsSeed())

	m, _ = update(t, m, keyMsg("enter"))
	m, _ = update(t, m, keyMsg("enter")) // save with empty key

	w := asConfigWizard(t, m)
	if w.editingKV {
		t.Fatal("expected KV editor to close")
	}
	if len(w.params) != 0 {
		t.Errorf("empty key must not create a parameter: %v", w.params)
	}
}

func TestConfigWizard_DeleteParameter(t *testing.T) {
	seed := settingsSeed()
	seed.Connection.Params = map[string]string{"DELIMIDENT": "y", "LOBCACHE": "0"}
	var m tea.Model = NewConfigWizard(seed)

	m, _ = update(t, m, keyMsg("d")) // delete DELIMIDENT
	w := asConfigWizard(t, m)
	if len(w.params) != 1 || w.params[0].Key != "LOBCACHE" {
		t.Fatalf("unexpected params after delete: %v", w.params)
	}

	m, _ = update(t, m, keyMsg("n"))
	m, _ = update(t, m, keyMsg("n"))
	m, _ = update(t, m, keyMsg("enter"))

	res := asConfigWizard(t, m).Result()
	if _, ok := res.Config.Connection.Params["DELIMIDENT"]; ok {
		t.Error("deleted param still present in result")
	}
}

func TestConfigWizard_IntervalSelection(t *testing.T) {
	tests := []struct {
		digit    string
		expected string
	}{
		{"1", "0s"},
		{"2", "30s"},
		{"3", "5m"},
		{"4", "-1s"},
		{"0", ""},
	}

	for _, tt := range tests {
		t.Run("digit "+tt.digit, func(t *testing.T) {
			var m tea.Model = NewConfigWizard(settingsSeed())

			m, _ = update(t, m, keyMsg("n")) // params -> validation
			m, _ = update(t, m, keyMsg(tt.digit))
			m, _ = update(t, m, keyMsg("n")) // validation -> review
			m, _ = update(t, m, keyMsg("enter"))

			res := asConfigWizard(t, m).Result()
			if res.Config.Validation.Interval != tt.expected {
				t.Errorf("expected interval %q, got %q", tt.expected, res.Config.Validation.Interval)
			}
		})
	}
}

func TestConfigWizard_EscFromParamsCancels(t *testing.T) {
	var m tea.Model = NewConfigWizard(settingsSeed())

	m, cmd := update(t, m, keyMsg("esc"))

	if !isQuitCmd(cmd) {
		t.Fatal("expected quit on esc")
	}
	if !asConfigWizard(t, m).Result().Cancelled {
		t.Error("expected Cancelled to be set")
	}
}

func TestConfigWizard_EscFromReviewGoesBack(t *testing.T) {
	var m tea.Model = NewConfigWizard(settingsSeed())

	m, _ = update(t, m, keyMsg("n"))
	m, _ = update(t, m, keyMsg("n"))
	if asConfigWizard(t, m).step != configStepReview {
		t.Fatal("expected to be at the review step")
	}

	m, _ = update(t, m, keyMsg("esc"))
	if asConfigWizard(t, m).step != configStepValidation {
		t.Error("esc from review should return to the validation step")
	}
}

func TestConfigWizard_CtrlCCancels(t *testing.T) {
	var m tea.Model = NewConfigWizard(settingsSeed())

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})

	if !isQuitCmd(cmd) {
		t.Fatal("expected quit on ctrl+c")
	}
	if !asConfigWizard(t, m).Result().Cancelled {
		t.Error("expected Cancelled to be set")
	}
}

func TestConfigWizard_ViewParams(t *testing.T) {
	seed := settingsSeed()
	seed.Connection.Params = map[string]string{"DELIMIDENT": "y"}
	w := NewConfigWizard(seed)

	view := w.View()
	for _, want := range []string{"Project Settings", "db.example.com:9088/stores", "DELIMIDENT = y", "+ Add parameter"} {
		if !strings.Contains(view, want) {
			t.Errorf("params view missing %q:\n%s", want, view)
		}
	}
}

func TestConfigWizard_ViewReviewShowsYAML(t *testing.T) {
	var m tea.Model = NewConfigWizard(settingsSeed())

	m, _ = update(t, m, keyMsg("n"))
	m, _ = update(t, m, keyMsg("n"))

	view := m.View()
	for _, want := range []string{"Review ifxbridge.yaml", "connection:", "host: db.example.com"} {
		if !strings.Contains(view, want) {
			t.Errorf("review view missing %q:\n%s", want, view)
		}
	}
}

func TestProjectConfigFromResult(t *testing.T) {
	res := ConnectionResult{
		Config: ifxbridge.Config{
			Dialect: ifxbridge.DialectPostgres,
			Endpoint: ifxbridge.Endpoint{
				Host:     "pg.example.com",
				Port:     5432,
				Database: "app",
				Params:   map[string]string{"sslmode": "require"},
			},
			Credentials: ifxbridge.Credentials{Username: "svc", Password: "hunter2"},
			AuthMethod:  ifxbridge.AuthMethodAWSIAM,
		},
		AWSRegion: "eu-west-1",
	}

	cfg := ProjectConfigFromResult(res)

	if cfg.Connection.Dialect != ifxbridge.DialectPostgres {
		t.Errorf("dialect: got %q", cfg.Connection.Dialect)
	}
	if cfg.Connection.Host != "pg.example.com" || cfg.Connection.Port != 5432 {
		t.Errorf("endpoint not carried: %+v", cfg.Connection)
	}
	if cfg.Connection.AuthMethod != config.AuthTokenAWSIAM {
		t.Errorf("auth method token: got %q", cfg.Connection.AuthMethod)
	}
	if cfg.Connection.AWSRegion != "eu-west-1" {
		t.Errorf("aws region: got %q", cfg.Connection.AWSRegion)
	}
	if cfg.Connection.Params["sslmode"] != "require" {
		t.Errorf("params not copied: %v", cfg.Connection.Params)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if strings.Contains(string(data), "hunter2") {
		t.Fatalf("password leaked into the YAML shape:\n%s", data)
	}
}

func TestProjectConfigFromResult_StandardAuthOmitsToken(t *testing.T) {
	res := ConnectionResult{
		Config: ifxbridge.Config{
			Dialect: ifxbridge.DialectInformix,
			Endpoint: ifxbridge.Endpoint{
				Host:     "ifx.example.com",
				Port:     9088,
				Server:   "ol_prod",
				Database: "stores",
			},
			Credentials: ifxbridge.Credentials{Username: "informix"},
		},
	}

	cfg := ProjectConfigFromResult(res)

	if cfg.Connection.AuthMethod != "" {
		t.Errorf("standard auth should map to an empty token, got %q", cfg.Connection.AuthMethod)
	}
	if cfg.Connection.Server != "ol_prod" {
		t.Errorf("server not carried: %q", cfg.Connection.Server)
	}
}
