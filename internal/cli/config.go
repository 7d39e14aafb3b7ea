package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openifx/ifxbridge/internal/config"
	"github.com/openifx/ifxbridge/internal/tui"
	"github.com/openifx/ifxbridge/internal/tui/wizards"
	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or edit the resolved configuration",
	Long: `Config prints the configuration a command would run with, after applying
the full precedence chain: flags > IFX_* environment variables >
ifxbridge.yaml > package defaults.

The password is never printed; only whether one is set.

With --edit, an interactive wizard creates or rewrites ifxbridge.yaml:
  1. Database connection setup (dialect, endpoint, authentication)
  2. Driver parameters (key-value pairs)
  3. Validation interval

Examples:
  # Show what ping/exec would use in this directory
  ifxbridge config

  # Show the effect of an override
  ifxbridge config -h db2.example.com --dialect postgres

  # Create or edit ifxbridge.yaml interactively
  ifxbridge config --edit`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

var (
	configFlags connectionFlags
	configEdit  bool
)

func init() {
	rootCmd.AddCommand(configCmd)

	registerConnectionFlags(configCmd, &configFlags)

	configCmd.Flags().BoolVar(&configEdit, "edit", false,
		"Create or edit ifxbridge.yaml with the interactive wizard")
}

func runConfig(cmd *cobra.Command, args []string) error {
	if configEdit {
		return runConfigEdit()
	}

	cfg, auth, err := resolveManagerConfig(&configFlags)
	if err != nil {
		return err
	}
	cfg.ApplyDefaults()

	printResolvedConfig(os.Stdout, cfg, auth)
	return nil
}

// printResolvedConfig renders the effective configuration. The password
// value never appears, only whether one is present.
func printResolvedConfig(w io.Writer, cfg ifxbridge.Config, auth authSettings) {
	fmt.Fprintln(w, "Connection:")
	fmt.Fprintf(w, "  Dialect:        %s\n", cfg.Dialect)
	fmt.Fprintf(w, "  Host:           %s\n", cfg.Endpoint.Host)
	fmt.Fprintf(w, "  Port:           %d\n", cfg.Endpoint.Port)
	if cfg.Endpoint.Server != "" {
		fmt.Fprintf(w, "  Server:         %s\n", cfg.Endpoint.Server)
	}
	fmt.Fprintf(w, "  Database:       %s\n", valueOrUnset(cfg.Endpoint.Database))
	fmt.Fprintf(w, "  Username:       %s\n", valueOrUnset(cfg.Credentials.Username))
	if cfg.Credentials.Password != "" {
		fmt.Fprintf(w, "  Password:       (set, redacted)\n")
	} else {
		fmt.Fprintf(w, "  Password:       (not set)\n")
	}
	fmt.Fprintf(w, "  Auth Method:    %s\n", auth.method)
	switch auth.method {
	case ifxbridge.AuthMethodAWSIAM:
		fmt.Fprintf(w, "  AWS Region:     %s\n", valueOrUnset(auth.awsRegion))
	case ifxbridge.AuthMethodAzureEntraID:
		fmt.Fprintf(w, "  Azure Tenant:   %s\n", valueOrUnset(auth.azureTenantID))
		fmt.Fprintf(w, "  Azure Client:   %s\n", valueOrUnset(auth.azureClientID))
		if auth.azureClientSecret != "" {
			fmt.Fprintf(w, "  Azure Secret:   (set, redacted)\n")
		} else {
			fmt.Fprintf(w, "  Azure Secret:   (not set)\n")
		}
	case ifxbridge.AuthMethodGoogleIAM:
		fmt.Fprintf(w, "  Instance:       %s\n", valueOrUnset(auth.googleInstance))
	}

	if len(cfg.Endpoint.Params) > 0 {
		fmt.Fprintln(w, "  Params:")
		keys := make([]string, 0, len(cfg.Endpoint.Params))
		for k := range cfg.Endpoint.Params {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "    %s=%s\n", k, cfg.Endpoint.Params[k])
		}
	}

	fmt.Fprintln(w, "Retry:")
	fmt.Fprintf(w, "  Max Attempts:   %d\n", cfg.Retry.MaxAttempts)
	fmt.Fprintf(w, "  Base Delay:     %s\n", cfg.Retry.BaseDelay)
	fmt.Fprintf(w, "  Max Delay:      %s\n", cfg.Retry.MaxDelay)
	fmt.Fprintf(w, "  Growth Factor:  %g\n", cfg.Retry.GrowthFactor)
	fmt.Fprintf(w, "  Jitter:         %g\n", cfg.Retry.Jitter)

	fmt.Fprintln(w, "Validation:")
	switch {
	case cfg.Validation.Interval < 0:
		fmt.Fprintf(w, "  Interval:       disabled\n")
	case cfg.Validation.Interval == 0:
		fmt.Fprintf(w, "  Interval:       every use\n")
	default:
		fmt.Fprintf(w, "  Interval:       %s\n", cfg.Validation.Interval)
	}
	fmt.Fprintf(w, "  Timeout:        %s\n", cfg.Validation.Timeout)
	if cfg.Validation.Query != "" {
		fmt.Fprintf(w, "  Query:          %s\n", cfg.Validation.Query)
	} else {
		fmt.Fprintf(w, "  Query:          (dialect default)\n")
	}

	fmt.Fprintln(w, "Session:")
	fmt.Fprintf(w, "  Isolation:      %s\n", cfg.Session.Isolation)
	if cfg.Session.LockWaitSeconds != nil {
		switch seconds := *cfg.Session.LockWaitSeconds; {
		case seconds < 0:
			fmt.Fprintf(w, "  Lock Wait:      wait forever\n")
		case seconds == 0:
			fmt.Fprintf(w, "  Lock Wait:      not wait\n")
		default:
			fmt.Fprintf(w, "  Lock Wait:      %ds\n", seconds)
		}
	} else {
		fmt.Fprintf(w, "  Lock Wait:      (server default)\n")
	}
	if len(cfg.Session.InitSQL) > 0 {
		fmt.Fprintf(w, "  Init SQL:       %d statement(s)\n", len(cfg.Session.InitSQL))
	}

	fmt.Fprintf(w, "Connect Timeout:  %s\n", cfg.ConnectTimeout)
}

func valueOrUnset(v string) string {
	if strings.TrimSpace(v) == "" {
		return "(not set)"
	}
	return v
}

// runConfigEdit launches the wizard chain and writes ifxbridge.yaml to the
// working directory.
func runConfigEdit() error {
	if !tui.IsInteractive() {
		return fmt.Errorf("config --edit requires an interactive terminal\n" +
			"For non-interactive use, create ifxbridge.yaml manually or use environment variables")
	}

	// Check if config already exists
	existingCfg, err := config.Load(".")
	if err == nil && existingCfg != nil {
		fmt.Printf("Found existing %s\n", config.ConfigFileName)
		if !tui.PromptContinue("Overwrite existing configuration?") {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	connResult, err := wizards.RunConnectionWizard()
	if err != nil {
		return fmt.Errorf("connection wizard failed: %w", err)
	}
	if connResult.Cancelled {
		fmt.Println("Cancelled.")
		return nil
	}

	cfgResult, err := wizards.RunConfigWizard(wizards.ProjectConfigFromResult(connResult))
	if err != nil {
		return fmt.Errorf("config wizard failed: %w", err)
	}
	if cfgResult.Cancelled {
		fmt.Println("Cancelled.")
		return nil
	}

	configPath := filepath.Join(".", config.ConfigFileName)
	data, err := yaml.Marshal(cfgResult.Config)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	fmt.Printf("\n%s Configuration saved to %s\n", tui.SymbolCheck, configPath)
	offerSaveEnv(".", connResult.Config.Credentials.Password)
	return nil
}
