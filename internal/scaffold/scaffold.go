package scaffold

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openifx/ifxbridge/internal/config"
	"github.com/openifx/ifxbridge/internal/logging"
	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

// ErrDeclined is returned when the approver rejects an overwrite.
var ErrDeclined = errors.New("overwrite declined")

const (
	envFileName    = ".env"
	envExampleName = ".env.example"
)

// managedFiles are the files ifxbridge init owns. Their presence alone does
// not make a target directory count as occupied.
var managedFiles = map[string]bool{
	config.ConfigFileName: true,
	envFileName:           true,
	envExampleName:        true,
}

// Scaffolder writes the configuration files produced by ifxbridge init:
// ifxbridge.yaml and a .env.example with the credential placeholders.
// Passwords never go into the YAML file.
type Scaffolder struct {
	approver ifxbridge.Approver
	logger   ifxbridge.Logger
}

// NewScaffolder creates a Scaffolder. The approver is consulted before
// anything existing is overwritten; with a nil approver every overwrite is
// refused. A nil logger discards output.
func NewScaffolder(approver ifxbridge.Approver, logger ifxbridge.Logger) *Scaffolder {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	return &Scaffolder{
		approver: approver,
		logger:   logger,
	}
}

// CreateProject writes ifxbridge.yaml and .env.example into targetPath,
// creating the directory when necessary.
//
// A missing or empty directory is written to directly. A directory that only
// holds files from a previous run needs approval to overwrite the existing
// config. Any other content needs approval for the directory itself.
func (s *Scaffolder) CreateProject(ctx context.Context, targetPath string, cfg config.ProjectConfig) error {
	configPath := filepath.Join(targetPath, config.ConfigFileName)

	blocking, err := blockingEntries(targetPath)
	if err != nil {
		return fmt.Errorf("failed to check target directory: %w", err)
	}

	switch {
	case fileExists(configPath):
		if err := s.requestApproval(ctx, configPath); err != nil {
			return err
		}
	case len(blocking) > 0:
		if s.approver == nil {
			return fmt.Errorf("target directory '%s' is not empty (found %s)\n\nifxbridge init writes %s and %s into an empty directory or on top of a previous setup.\n\nOptions:\n• Choose a different location\n• Re-run in a terminal to confirm interactively\n• Pass --force to overwrite", targetPath, strings.Join(preview(blocking, 3), ", "), config.ConfigFileName, envExampleName)
		}
		if err := s.requestApproval(ctx, targetPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(targetPath, 0755); err != nil {
		return fmt.Errorf("failed to create project directory: %w", err)
	}

	data, err := marshalProjectConfig(cfg)
	if err != nil {
		return fmt.Errorf("failed to render %s: %w", config.ConfigFileName, err)
	}
	s.logger.Verbose("writing %s", configPath)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", configPath, err)
	}

	envPath := filepath.Join(targetPath, envExampleName)
	s.logger.Verbose("writing %s", envPath)
	if err := os.WriteFile(envPath, []byte(envExample(cfg)), 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", envPath, err)
	}

	s.logger.Verbose("project files created in %s", targetPath)
	return nil
}

func (s *Scaffolder) requestApproval(ctx context.Context, subject string) error {
	if s.approver == nil {
		return fmt.Errorf("'%s' already exists: %w", subject, ErrDeclined)
	}
	approved, err := s.approver.RequestApproval(ctx, subject)
	if err != nil {
		return fmt.Errorf("approval for '%s' failed: %w", subject, err)
	}
	if !approved {
		return fmt.Errorf("'%s' left untouched: %w", subject, ErrDeclined)
	}
	return nil
}

// marshalProjectConfig renders the YAML body with a short header reminding
// readers where the password lives.
func marshalProjectConfig(cfg config.ProjectConfig) ([]byte, error) {
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	header := "# ifxbridge project configuration.\n" +
		"# Passwords are never stored here; set IFX_PASSWORD in the environment\n" +
		"# or in a .env file next to this one.\n"
	return append([]byte(header), body...), nil
}

// envExample renders the .env.example contents. The username placeholder is
// only included when the config does not pin one.
func envExample(cfg config.ProjectConfig) string {
	var sb strings.Builder
	sb.WriteString("# Copy to .env and fill in the secrets.\n")
	sb.WriteString("# Keep .env out of version control.\n")
	sb.WriteString("IFX_PASSWORD=\n")
	if cfg.Connection.Username == "" {
		sb.WriteString("IFX_USER=\n")
	}
	return sb.String()
}

// blockingEntries returns the names of directory entries that do not belong
// to a previous ifxbridge setup. A missing directory blocks nothing.
func blockingEntries(path string) ([]string, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path exists but is not a directory")
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var blocking []string
	for _, entry := range entries {
		if managedFiles[entry.Name()] {
			continue
		}
		blocking = append(blocking, entry.Name())
	}
	return blocking, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func preview(names []string, n int) []string {
	if len(names) <= n {
		return names
	}
	return append(names[:n:n], "...")
}

// BuildFileTree renders the directory as a tree for display after init.
func BuildFileTree(rootPath string) (string, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		absPath = rootPath
	}

	var sb strings.Builder
	sb.WriteString(absPath + "/\n")
	if err := writeTree(&sb, rootPath, ""); err != nil {
		return "", fmt.Errorf("failed to build file tree: %w", err)
	}
	return sb.String(), nil
}

// writeTree appends dir's entries to sb, one line each. os.ReadDir returns
// entries sorted by name, so the last index marks the closing branch.
func writeTree(sb *strings.Builder, dir, indent string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}

	for i, entry := range entries {
		branch, childIndent := "├── ", indent+"│   "
		if i == len(entries)-1 {
			branch, childIndent = "└── ", indent+"    "
		}

		name := entry.Name()
		if entry.IsDir() {
			name += "/"
		}
		sb.WriteString(indent + branch + name + "\n")

		if entry.IsDir() {
			if err := writeTree(sb, filepath.Join(dir, entry.Name()), childIndent); err != nil {
				return err
			}
		}
	}
	return nil
}
