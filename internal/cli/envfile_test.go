package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestQuoteEnvValue(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"secret", "secret"},
		{"s3cr3t!", "s3cr3t!"},
		{"pa ss", "'pa ss'"},
		{"p#ss", "'p#ss'"},
		{`p\ss`, `'p\ss'`},
		{`it's`, `"it's"`},
		{`a'b"c`, `"a'b\"c"`},
		{"", "''"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := quoteEnvValue(tt.input)
			if got != tt.want {
				t.Errorf("quoteEnvValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestWriteEnvEntry_NewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	if err := writeEnvEntry(path, "IFX_PASSWORD", "secret"); err != nil {
		t.Fatalf("writeEnvEntry() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}

	want := "IFX_PASSWORD=secret\n"
	if string(data) != want {
		t.Errorf("file content = %q, want %q", string(data), want)
	}
}

func TestWriteEnvEntry_UpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	existing := "# local overrides\nIFX_HOST=db1\nIFX_PASSWORD=oldpass\n"
	if err := os.WriteFile(path, []byte(existing), 0600); err != nil {
		t.Fatal(err)
	}

	if err := writeEnvEntry(path, "IFX_PASSWORD", "newpass"); err != nil {
		t.Fatalf("writeEnvEntry() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d: %q", len(lines), string(data))
	}
	if lines[0] != "# local overrides" {
		t.Errorf("comment modified: %q", lines[0])
	}
	if lines[1] != "IFX_HOST=db1" {
		t.Errorf("unrelated key modified: %q", lines[1])
	}
	if lines[2] != "IFX_PASSWORD=newpass" {
		t.Errorf("third line = %q, want updated entry", lines[2])
	}
}

func TestWriteEnvEntry_AppendsNew(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	existing := "IFX_HOST=db1\n"
	if err := os.WriteFile(path, []byte(existing), 0600); err != nil {
		t.Fatal(err)
	}

	if err := writeEnvEntry(path, "IFX_PASSWORD", "secret"); err != nil {
		t.Fatalf("writeEnvEntry() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), string(data))
	}
	if lines[1] != "IFX_PASSWORD=secret" {
		t.Errorf("appended line = %q", lines[1])
	}
}

func TestWriteEnvEntry_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatal(err)
	}

	if err := writeEnvEntry(path, "IFX_PASSWORD", "secret"); err != nil {
		t.Fatalf("writeEnvEntry() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "IFX_PASSWORD=secret\n" {
		t.Errorf("file content = %q, want single entry", string(data))
	}
}

func TestWriteEnvEntry_QuotesPassword(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	if err := writeEnvEntry(path, "IFX_PASSWORD", "it's 9088"); err != nil {
		t.Fatalf("writeEnvEntry() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	want := `IFX_PASSWORD="it's 9088"` + "\n"
	if string(data) != want {
		t.Errorf("file content = %q, want %q", string(data), want)
	}
}

func TestWriteEnvEntry_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", ".env")

	if err := writeEnvEntry(path, "IFX_PASSWORD", "secret"); err != nil {
		t.Fatalf("writeEnvEntry() error = %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("file not created: %v", err)
	}
}

func TestWriteEnvEntry_RestrictsPermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")

	if err := writeEnvEntry(path, "IFX_PASSWORD", "secret"); err != nil {
		t.Fatalf("writeEnvEntry() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file mode = %o, want 0600", perm)
	}
}
