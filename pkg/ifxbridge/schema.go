package ifxbridge

import (
	"context"
	"fmt"
	"strings"
)

// SchemaRunner executes DDL statements through a managed connection. It
// carries one piece of policy: a CREATE INDEX that fails only because the
// index is already present counts as success, so schema setup scripts stay
// rerunnable. Any other failure propagates, lookalike errors included.
type SchemaRunner struct {
	manager    *Manager
	classifier Classifier
	logger     Logger
}

// NewSchemaRunner creates a runner on top of a manager. A nil classifier
// uses the dialect defaults; a nil logger discards diagnostics.
func NewSchemaRunner(manager *Manager, classifier Classifier, logger Logger) *SchemaRunner {
	if classifier == nil {
		classifier = NewRuleClassifier(DefaultRules(manager.Config().Dialect))
	}
	if logger == nil {
		logger = nopLogger{}
	}
	return &SchemaRunner{
		manager:    manager,
		classifier: classifier,
		logger:     logger,
	}
}

// Exec runs each statement in order on the managed connection. A CREATE
// INDEX whose failure is classified as index-already-exists is logged and
// skipped; the first other failure stops execution. Suppression is gated on
// the statement form because some servers report duplicate indexes and
// duplicate tables with the same error code, and only the index case is
// safe to treat as a no-op.
func (r *SchemaRunner) Exec(ctx context.Context, stmts ...string) error {
	h, err := r.manager.Obtain(ctx)
	if err != nil {
		return err
	}

	for _, stmt := range stmts {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := h.Conn().ExecContext(ctx, trimmed); err != nil {
			if isCreateIndex(trimmed) && r.classifier.Classify(err) == ClassIndexExists {
				r.logger.Verbose("Index already exists, skipping: %s", previewSQL(trimmed))
				continue
			}
			return fmt.Errorf("%w: statement %q: %w", ErrExecutionFailed, previewSQL(trimmed), err)
		}
	}
	return nil
}

// isCreateIndex reports whether stmt is a CREATE INDEX form, including the
// UNIQUE, DISTINCT and CLUSTER modifiers Informix accepts.
func isCreateIndex(stmt string) bool {
	fields := strings.Fields(strings.ToUpper(stmt))
	if len(fields) < 2 || fields[0] != "CREATE" {
		return false
	}
	limit := len(fields)
	if limit > 4 {
		limit = 4
	}
	for _, f := range fields[1:limit] {
		if f == "INDEX" {
			return true
		}
	}
	return false
}

// EnsureIndex creates an index if it does not already exist, quoting every
// identifier for the manager's dialect.
func (r *SchemaRunner) EnsureIndex(ctx context.Context, indexName, tableName string, columns ...string) error {
	if len(columns) == 0 {
		return fmt.Errorf("index %q needs at least one column: %w", indexName, ErrInvalidConfig)
	}

	quote := r.quoteFunc()
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quote(col)
	}

	stmt := fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		quote(indexName), quote(tableName), strings.Join(quoted, ", "))
	return r.Exec(ctx, stmt)
}

// quoteFunc returns the identifier quoter of the manager's dialect.
func (r *SchemaRunner) quoteFunc() func(string) string {
	if d, err := LookupDialect(r.manager.Config().Dialect); err == nil && d.QuoteIdentifier != nil {
		return d.QuoteIdentifier
	}
	return quoteDoubleQuoted
}

// previewSQL collapses whitespace and truncates a statement for error
// messages and logs.
func previewSQL(stmt string) string {
	collapsed := strings.Join(strings.Fields(stmt), " ")
	if len(collapsed) > MaxErrorPreviewLength {
		return collapsed[:MaxErrorPreviewLength] + "..."
	}
	return collapsed
}
