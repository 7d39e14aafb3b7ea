package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openifx/ifxbridge/internal/config"
)

// forceNonInteractive pins init to the flag-driven path regardless of the
// terminal the tests run under, and resets the shared flag struct.
func forceNonInteractive(t *testing.T) {
	t.Helper()
	t.Setenv("IFXBRIDGE_NON_INTERACTIVE", "1")
	initFlags = connectionFlags{}
	initForce = false
	t.Cleanup(func() {
		initFlags = connectionFlags{}
		initForce = false
	})
}

func TestRunInit_EmptyDirectory(t *testing.T) {
	forceNonInteractive(t)
	projectDir := filepath.Join(t.TempDir(), "orders-svc")

	initFlags.dialect = "informix"
	initFlags.host = "db1.example.com"
	initFlags.port = 9088
	initFlags.server = "prod"
	initFlags.database = "stores"
	initFlags.username = "appuser"

	if err := initCmd.RunE(initCmd, []string{projectDir}); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	configPath := filepath.Join(projectDir, config.ConfigFileName)
	if _, err := os.Stat(configPath); err != nil {
		t.Fatalf("expected %s to exist: %v", config.ConfigFileName, err)
	}
	if _, err := os.Stat(filepath.Join(projectDir, ".env.example")); err != nil {
		t.Errorf("expected .env.example to exist: %v", err)
	}

	cfg, err := config.Load(projectDir)
	if err != nil {
		t.Fatalf("generated config does not load: %v", err)
	}
	if cfg.Connection.Host != "db1.example.com" || cfg.Connection.Port != 9088 ||
		cfg.Connection.Server != "prod" || cfg.Connection.Database != "stores" {
		t.Errorf("generated connection = %+v, want the flag values", cfg.Connection)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(data), "password:") {
		t.Error("generated config must never contain a password key")
	}
}

func TestRunInit_NonEmptyDirectoryRefused(t *testing.T) {
	forceNonInteractive(t)
	targetDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(targetDir, "existing.txt"), []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	initFlags.host = "db1"
	err := initCmd.RunE(initCmd, []string{targetDir})
	if err == nil {
		t.Fatal("expected error for non-empty directory without approval")
	}
	if !strings.Contains(err.Error(), "not empty") {
		t.Errorf("error should explain the refusal, got: %v", err)
	}
}

func TestRunInit_ReinitNeedsApproval(t *testing.T) {
	forceNonInteractive(t)
	projectDir := filepath.Join(t.TempDir(), "svc")

	initFlags.host = "db1"
	if err := initCmd.RunE(initCmd, []string{projectDir}); err != nil {
		t.Fatalf("first init failed: %v", err)
	}

	// A second run on top of an existing ifxbridge.yaml is refused without
	// an approver.
	if err := initCmd.RunE(initCmd, []string{projectDir}); err == nil {
		t.Fatal("expected error when re-initializing without --force")
	}
}

func TestProjectConfigFromFlags_DropsPassword(t *testing.T) {
	forceNonInteractive(t)
	t.Setenv("IFX_PASSWORD", "super-secret")

	f := &connectionFlags{host: "db1", database: "stores", username: "appuser"}
	pc, err := projectConfigFromFlags(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pc.Connection.Host != "db1" || pc.Connection.Username != "appuser" {
		t.Errorf("connection = %+v, want flag values", pc.Connection)
	}
	// ProjectConfig has no password field; make sure none of the string
	// fields smuggle it through.
	for _, v := range []string{pc.Connection.Dialect, pc.Connection.Host, pc.Connection.Server,
		pc.Connection.Database, pc.Connection.Username, pc.Connection.AuthMethod} {
		if v == "super-secret" {
			t.Fatal("password leaked into the generated project config")
		}
	}
}
