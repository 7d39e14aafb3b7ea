package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/openifx/ifxbridge/internal/config"
	"github.com/openifx/ifxbridge/internal/logging"
	"github.com/openifx/ifxbridge/internal/scaffold"
	"github.com/openifx/ifxbridge/internal/tui"
	"github.com/openifx/ifxbridge/internal/tui/wizards"
	"github.com/openifx/ifxbridge/internal/ui"
	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

var initCmd = &cobra.Command{
	Use:   "init [target_path]",
	Short: "Initialize an ifxbridge project directory",
	Long: `Initialize sets up the directory that holds ifxbridge.yaml and .env.example.

In a terminal, a wizard walks through the connection setup:
1. Dialect and authentication method
2. Endpoint fields (host, port, server, database, user)
3. Live connection test
4. Optional tuning (driver parameters, validation interval)

Outside a terminal (CI), the connection flags fill ifxbridge.yaml directly:
  ifxbridge init ./svc --dialect informix -h db1 -p 9088 --server prod --force

Passwords never land in ifxbridge.yaml. The wizard offers to store the
password in .env (mode 0600); .env.example documents the variables.

Overwrite protection: when the target already has ifxbridge.yaml or other
files, init asks for approval. Interactively you confirm by typing the
target's name; --force replaces the prompt with a cancellable countdown.

Examples:
  ifxbridge init                  # Initialize in current directory
  ifxbridge init ./orders-svc     # Initialize in ./orders-svc
  ifxbridge init /srv/app --force # Overwrite after countdown`,
	Args:              cobra.MaximumNArgs(1),
	ValidArgsFunction: completeDirectories,
	RunE:              runInit,
}

var (
	initFlags connectionFlags
	initForce bool
)

func init() {
	rootCmd.AddCommand(initCmd)

	registerConnectionFlags(initCmd, &initFlags)

	initCmd.Flags().BoolVar(&initForce, "force", false,
		"Overwrite existing files after a countdown instead of interactive confirmation")
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) == 1 {
		targetDir = args[0]
	}
	verbose := getVerboseFlag(cmd)
	logger := logging.NewConsoleLogger(verbose)

	var projectCfg config.ProjectConfig
	var password string

	if tui.IsInteractive() {
		result, err := wizards.RunInitWizard(targetDir)
		if err != nil {
			return fmt.Errorf("init wizard failed: %w", err)
		}
		if result.Cancelled {
			fmt.Println("Cancelled.")
			return nil
		}
		targetDir = result.TargetDir
		projectCfg = result.ConfigResult.Config
		password = result.ConnResult.Config.Credentials.Password
	} else {
		pc, err := projectConfigFromFlags(&initFlags)
		if err != nil {
			return err
		}
		projectCfg = pc
	}

	var approver ifxbridge.Approver
	switch {
	case initForce:
		approver = ui.NewForcedApprover(verbose)
	case tui.IsInteractive():
		approver = ui.NewInteractiveApprover(verbose)
	}
	// A nil approver makes the scaffolder refuse non-empty targets with
	// guidance instead of prompting.

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ctrl-C cancels the --force countdown.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		cancel()
	}()

	scaffolder := scaffold.NewScaffolder(approver, logger)
	if err := scaffolder.CreateProject(ctx, targetDir, projectCfg); err != nil {
		return fmt.Errorf("failed to initialize project: %w", err)
	}

	tree, err := scaffold.BuildFileTree(targetDir)
	if err != nil {
		tree = ""
	}
	wizards.ShowInitComplete(targetDir, tree)

	offerSaveEnv(targetDir, password)

	return nil
}

// projectConfigFromFlags builds the ifxbridge.yaml content for a
// non-interactive init. It reuses the command resolution, so connection
// strings, IFX_* variables and granular flags all work; the password is
// dropped because the file never stores one.
func projectConfigFromFlags(f *connectionFlags) (config.ProjectConfig, error) {
	cfg, auth, err := resolveConnectionConfig(f, loadEnvVars(), nil)
	if err != nil {
		return config.ProjectConfig{}, err
	}

	pc := config.ProjectConfig{
		Connection: config.ConnectionConfig{
			Dialect:        cfg.Dialect,
			Host:           cfg.Endpoint.Host,
			Port:           cfg.Endpoint.Port,
			Server:         cfg.Endpoint.Server,
			Database:       cfg.Endpoint.Database,
			Username:       cfg.Credentials.Username,
			AuthMethod:     config.AuthMethodToken(auth.method),
			AWSRegion:      auth.awsRegion,
			AzureTenantID:  auth.azureTenantID,
			AzureClientID:  auth.azureClientID,
			GoogleInstance: auth.googleInstance,
			Params:         cfg.Endpoint.Params,
		},
	}

	return pc, nil
}
