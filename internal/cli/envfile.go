package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openifx/ifxbridge/internal/tui"
)

// envFileName is the dotenv file commands autoload from the working
// directory.
const envFileName = ".env"

// offerSaveEnv prompts the user to save the password to dir/.env after a
// successful wizard. Does nothing if the password is empty, the terminal is
// non-interactive, or the user declines.
func offerSaveEnv(dir, password string) {
	if password == "" || !tui.IsInteractive() {
		return
	}

	path := filepath.Join(dir, envFileName)

	fmt.Fprintln(os.Stderr, "")
	if !tui.PromptContinue("Save password to .env for future sessions?") {
		fmt.Fprintln(os.Stderr, "Tip: provide the password via $IFX_PASSWORD or a connection string.")
		return
	}

	if err := writeEnvEntry(path, "IFX_PASSWORD", password); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save .env: %v\n", err)
		fmt.Fprintln(os.Stderr, "Tip: provide the password via $IFX_PASSWORD or a connection string.")
		return
	}

	fmt.Fprintf(os.Stderr, "Saved to %s\n", path)
	fmt.Fprintln(os.Stderr, "Reminder: add .env to .gitignore, it now holds a credential.")
}

// writeEnvEntry adds or updates a KEY=VALUE line in a dotenv file, keeping
// every other line (comments included) intact.
func writeEnvEntry(path, key, value string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}

	entry := fmt.Sprintf("%s=%s", key, quoteEnvValue(value))
	prefix := key + "="

	var lines []string
	if data, err := os.ReadFile(path); err == nil {
		if len(data) > 0 {
			lines = strings.Split(strings.TrimRight(string(data), "\n"), "\n")
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to read existing %s: %w", path, err)
	}

	// Replace existing entry or append
	found := false
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			lines[i] = entry
			found = true
			break
		}
	}
	if !found {
		lines = append(lines, entry)
	}

	content := strings.Join(lines, "\n") + "\n"

	// Restricted permissions: the file holds a credential.
	return os.WriteFile(path, []byte(content), 0600)
}

// quoteEnvValue wraps values that would not survive a plain KEY=VALUE line.
// Single quotes keep the value literal for the dotenv loader; double quotes
// with escapes are the fallback when the value itself has single quotes.
func quoteEnvValue(v string) string {
	if v != "" && !strings.ContainsAny(v, " \t#'\"\\") {
		return v
	}
	if !strings.Contains(v, "'") {
		return "'" + v + "'"
	}
	escaped := strings.ReplaceAll(v, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return `"` + escaped + `"`
}
