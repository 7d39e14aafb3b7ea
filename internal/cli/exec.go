package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openifx/ifxbridge/internal/logging"
	"github.com/openifx/ifxbridge/internal/preprocessor"
	"github.com/openifx/ifxbridge/internal/tui"
	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

var execCmd = &cobra.Command{
	Use:   "exec [sql]",
	Short: "Execute SQL on the managed connection",
	Long: `Exec runs SQL statements through the connection manager: the connection
is established with retries, validated, and reused across statements.

SQL comes from the first argument, --file, or stdin when neither is given.
Scripts are split on top-level semicolons; string literals, quoted
identifiers, comments and PostgreSQL dollar-quoted bodies are respected.

With --ddl, statements run through the schema runner: a CREATE INDEX that
fails only because the index already exists is logged and skipped, so schema
scripts stay rerunnable. Any other failure stops the run.

With --txn, the whole script runs inside a single transaction using the
dialect's transaction statements (BEGIN WORK/COMMIT WORK on Informix) and
rolls back on the first failure. Not compatible with --ddl.

Password Authentication:
  For security, password is NOT accepted as a CLI flag. Use one of:
    1. $IFX_PASSWORD environment variable (a .env file is loaded if present)
    2. Connection string with embedded password

Examples:
  # Inline statement
  ifxbridge exec "UPDATE inventory SET qty = qty - 1 WHERE sku = 'A-100'" -d stores

  # Schema script from a file, rerunnable
  ifxbridge exec --file schema.sql --ddl -d stores

  # From stdin
  cat cleanup.sql | ifxbridge exec -d stores`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExec,
}

var (
	execFlags   connectionFlags
	execFile    string
	execDDL     bool
	execTxn     bool
	execTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(execCmd)

	registerConnectionFlags(execCmd, &execFlags)

	execCmd.Flags().StringVarP(&execFile, "file", "f", "",
		"Read the SQL script from a file instead of the argument or stdin")
	execCmd.Flags().BoolVar(&execDDL, "ddl", false,
		"Schema mode: suppress index-already-exists errors so scripts stay rerunnable")
	execCmd.Flags().BoolVar(&execTxn, "txn", false,
		"Run the whole script in a single transaction, rolling back on failure")
	execCmd.MarkFlagsMutuallyExclusive("ddl", "txn")
	execCmd.Flags().DurationVar(&execTimeout, "timeout", 3*time.Minute,
		"Overall time budget for the run, including connection retries\n"+
			"For query-level timeouts, use the dialect's session settings")
}

// readScript returns the SQL to execute: the argument, the --file content,
// or stdin when neither is given.
func readScript(args []string) (string, error) {
	if len(args) == 1 && execFile != "" {
		return "", fmt.Errorf("cannot specify both a SQL argument and --file")
	}

	if len(args) == 1 {
		return args[0], nil
	}

	if execFile != "" {
		content, err := os.ReadFile(execFile)
		if err != nil {
			return "", fmt.Errorf("failed to read SQL file '%s': %w", execFile, err)
		}
		return string(content), nil
	}

	if tui.IsInteractive() {
		return "", fmt.Errorf("no SQL provided\n\nPass a statement as an argument, use --file, or pipe a script:\n  ifxbridge exec \"SELECT COUNT(*) FROM orders\"\n  ifxbridge exec --file schema.sql\n  cat schema.sql | ifxbridge exec")
	}

	content, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read SQL from stdin: %w", err)
	}
	return string(content), nil
}

func runExec(cmd *cobra.Command, args []string) error {
	verbose := getVerboseFlag(cmd)

	script, err := readScript(args)
	if err != nil {
		return err
	}

	cfg, auth, err := resolveManagerConfig(&execFlags)
	if err != nil {
		return err
	}

	logger := logging.NewConsoleLogger(verbose)
	logConnectionVerbose(logger, cfg, auth)

	manager, cleanup, err := buildManager(cfg, auth, logger)
	if err != nil {
		return err
	}
	defer func() { _ = cleanup() }()
	defer func() { _ = manager.Close() }()

	quirks := preprocessor.QuirksForDialect(manager.Config().Dialect)
	stmts := preprocessor.NewSplitter(quirks).Split(script)
	if len(stmts) == 0 {
		return fmt.Errorf("no executable statements found")
	}

	ctx, cancel := context.WithTimeout(context.Background(), execTimeout)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, cancelling...")
		cancel()
	}()

	start := time.Now()
	switch {
	case execDDL:
		err = execSchema(ctx, manager, logger, stmts)
	case execTxn:
		err = execTransaction(ctx, manager, logger, stmts)
	default:
		err = execStatements(ctx, manager, logger, stmts)
	}
	if err != nil {
		return err
	}

	display := tui.NewProgressDisplay()
	plural := "s"
	if len(stmts) == 1 {
		plural = ""
	}
	display.Success(fmt.Sprintf("Executed %d statement%s in %s",
		len(stmts), plural, time.Since(start).Round(time.Millisecond)))

	return nil
}

// execStatements runs each statement on the managed connection and stops at
// the first failure, reporting the line it came from.
func execStatements(ctx context.Context, manager *ifxbridge.Manager, logger ifxbridge.Logger, stmts []preprocessor.Statement) error {
	handle, err := manager.Obtain(ctx)
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		logger.Verbose("line %d: %s", stmt.Line, statementPreview(stmt.SQL))

		res, err := handle.Conn().ExecContext(ctx, stmt.SQL)
		if err != nil {
			return fmt.Errorf("%w: line %d: %w", ifxbridge.ErrExecutionFailed, stmt.Line, err)
		}
		if rows, err := res.RowsAffected(); err == nil && rows > 0 {
			logger.Verbose("line %d: %d row(s) affected", stmt.Line, rows)
		}
	}

	return nil
}

// execTransaction runs the script inside one transaction on the pinned
// connection, using the dialect's transaction statements. The first failure
// rolls everything back and reports its line.
func execTransaction(ctx context.Context, manager *ifxbridge.Manager, logger ifxbridge.Logger, stmts []preprocessor.Statement) error {
	dialect, err := ifxbridge.LookupDialect(manager.Config().Dialect)
	if err != nil {
		return err
	}

	handle, err := manager.Obtain(ctx)
	if err != nil {
		return err
	}
	conn := handle.Conn()

	if _, err := conn.ExecContext(ctx, dialect.BeginSQL); err != nil {
		return fmt.Errorf("%w: %s: %w", ifxbridge.ErrExecutionFailed, dialect.BeginSQL, err)
	}

	for _, stmt := range stmts {
		logger.Verbose("line %d: %s", stmt.Line, statementPreview(stmt.SQL))

		if _, err := conn.ExecContext(ctx, stmt.SQL); err != nil {
			// Roll back on a fresh context: the statement may have
			// failed because ctx is already done.
			rbCtx, rbCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			if _, rbErr := conn.ExecContext(rbCtx, dialect.RollbackSQL); rbErr != nil {
				logger.Error("Rollback failed: %v", rbErr)
			}
			rbCancel()
			return fmt.Errorf("%w: line %d: %w", ifxbridge.ErrExecutionFailed, stmt.Line, err)
		}
	}

	if _, err := conn.ExecContext(ctx, dialect.CommitSQL); err != nil {
		return fmt.Errorf("%w: %s: %w", ifxbridge.ErrExecutionFailed, dialect.CommitSQL, err)
	}

	logger.Verbose("Transaction committed")
	return nil
}

// execSchema runs statements one at a time through the schema runner so a
// failure still reports its line.
func execSchema(ctx context.Context, manager *ifxbridge.Manager, logger ifxbridge.Logger, stmts []preprocessor.Statement) error {
	runner := ifxbridge.NewSchemaRunner(manager, nil, logger)

	for _, stmt := range stmts {
		logger.Verbose("line %d: %s", stmt.Line, statementPreview(stmt.SQL))

		if err := runner.Exec(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("line %d: %w", stmt.Line, err)
		}
	}

	return nil
}

// statementPreview renders a statement as a single short line for logs.
func statementPreview(sql string) string {
	collapsed := strings.Join(strings.Fields(sql), " ")
	if len(collapsed) > 80 {
		return collapsed[:80] + "..."
	}
	return collapsed
}
