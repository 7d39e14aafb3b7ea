package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openifx/ifxbridge/internal/logging"
	"github.com/openifx/ifxbridge/internal/tui"
	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check database connectivity",
	Long: `Ping establishes the managed connection and validates it against the
live server.

The ping command:
1. Resolves connection settings (flags > environment > ifxbridge.yaml)
2. Obtains a connection through the manager, retrying per the retry policy
3. Runs the dialect probe query to confirm the server answers
4. Reports the outcome and timing

Exit code 0 means the database answered the probe. Exit code 14 means the
server stayed unavailable through every retry attempt.

Password Authentication:
  For security, password is NOT accepted as a CLI flag. Use one of:
    1. $IFX_PASSWORD environment variable (a .env file is loaded if present)
    2. Connection string with embedded password

Examples:
  # Ping using granular flags
  ifxbridge ping -h db1.example.com -p 9088 --server prod -d stores

  # Ping using a connection string
  ifxbridge ping --connection "informix-sqli://db1:9088/stores:INFORMIXSERVER=prod"

  # Ping a PostgreSQL server, machine-readable result on stdout
  ifxbridge ping --dialect postgres -h pg1 -d appdb --json

  # Allow more time for a cold standby
  ifxbridge ping --timeout 2m`,
	Args: cobra.NoArgs,
	RunE: runPing,
}

var (
	pingFlags   connectionFlags
	pingTimeout time.Duration
	pingJSON    bool
)

func init() {
	rootCmd.AddCommand(pingCmd)

	registerConnectionFlags(pingCmd, &pingFlags)

	pingCmd.Flags().DurationVar(&pingTimeout, "timeout", 30*time.Second,
		"Overall time budget for the ping, including all retry attempts")
	pingCmd.Flags().BoolVar(&pingJSON, "json", false,
		"Emit the result as a single JSON object on stdout (logs go to stderr)")
}

// pingResult is the JSON shape emitted by ping --json.
type pingResult struct {
	OK        bool   `json:"ok"`
	Dialect   string `json:"dialect"`
	Host      string `json:"host"`
	Port      int    `json:"port"`
	Server    string `json:"server,omitempty"`
	Database  string `json:"database,omitempty"`
	User      string `json:"user,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
	HandleID  string `json:"handle_id,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
	Error     string `json:"error,omitempty"`
}

func runPing(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	cfg, auth, err := resolveManagerConfig(&pingFlags)
	if err != nil {
		return err
	}

	var logger ifxbridge.Logger
	if pingJSON {
		log := logrus.New()
		log.SetOutput(os.Stderr)
		log.SetFormatter(&logrus.JSONFormatter{})
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
		logger = logging.NewStructuredLogger(log)
	} else {
		logger = logging.NewConsoleLogger(verbose)
	}
	logConnectionVerbose(logger, cfg, auth)

	manager, cleanup, err := buildManager(cfg, auth, logger)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()
	defer func() { _ = manager.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	// Ctrl-C cancels the wait instead of killing the process mid-dial.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling...")
		cancel()
	}()

	// Config() reflects applied defaults (port, retry policy).
	resolved := manager.Config()

	start := time.Now()
	handle, err := manager.Obtain(ctx)
	elapsed := time.Since(start)

	if pingJSON {
		return writePingJSON(resolved, handle, err, elapsed)
	}

	display := tui.NewProgressDisplay()
	if err != nil {
		display.Error(fmt.Sprintf("%s at %s did not answer after %s",
			resolved.Dialect, resolved.Endpoint.Addr(), elapsed.Round(time.Millisecond)))
		return err
	}

	display.Success(fmt.Sprintf("%s at %s answered in %s",
		resolved.Dialect, resolved.Endpoint.Addr(), elapsed.Round(time.Millisecond)))
	if resolved.Endpoint.Server != "" {
		fmt.Printf("  Server:    %s\n", resolved.Endpoint.Server)
	}
	if resolved.Endpoint.Database != "" {
		fmt.Printf("  Database:  %s\n", resolved.Endpoint.Database)
	}
	fmt.Printf("  User:      %s\n", resolved.Credentials.Username)
	fmt.Printf("  Handle:    %s\n", handle.ID())

	return nil
}

// writePingJSON prints one JSON object on stdout. The process exit code
// still reflects the error, so scripts can check either.
func writePingJSON(cfg ifxbridge.Config, handle *ifxbridge.Handle, pingErr error, elapsed time.Duration) error {
	result := pingResult{
		OK:        pingErr == nil,
		Dialect:   cfg.Dialect,
		Host:      cfg.Endpoint.Host,
		Port:      cfg.Endpoint.Port,
		Server:    cfg.Endpoint.Server,
		Database:  cfg.Endpoint.Database,
		User:      cfg.Credentials.Username,
		ElapsedMS: elapsed.Milliseconds(),
	}

	if pingErr != nil {
		result.Error = pingErr.Error()
		var unavailable *ifxbridge.UnavailableError
		if errors.As(pingErr, &unavailable) {
			result.Attempts = unavailable.Attempts
		}
	} else if handle != nil {
		result.HandleID = handle.ID().String()
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ping result: %w", err)
	}
	fmt.Println(string(encoded))

	return pingErr
}
