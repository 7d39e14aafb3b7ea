//go:build conntest

package conntest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openifx/ifxbridge/pkg/ifxbridge"
)

func TestSchemaRunner_SuppressesDuplicateIndex(t *testing.T) {
	manager := newManager(t, managerConfig(t))
	runner := ifxbridge.NewSchemaRunner(manager, nil, nil)
	ctx := context.Background()

	require.NoError(t, runner.Exec(ctx,
		"CREATE TABLE conntest_orders (id INT PRIMARY KEY, sku TEXT)"))
	t.Cleanup(func() {
		_ = runner.Exec(context.Background(), "DROP TABLE conntest_orders")
	})

	require.NoError(t, runner.EnsureIndex(ctx, "conntest_orders_sku", "conntest_orders", "sku"))

	// Running the same script again must be a no-op, not an error.
	require.NoError(t, runner.EnsureIndex(ctx, "conntest_orders_sku", "conntest_orders", "sku"))
}

func TestSchemaRunner_UnrelatedErrorPropagates(t *testing.T) {
	manager := newManager(t, managerConfig(t))
	runner := ifxbridge.NewSchemaRunner(manager, nil, nil)
	ctx := context.Background()

	// A duplicate table is a different signature from a duplicate index and
	// must not be swallowed.
	require.NoError(t, runner.Exec(ctx,
		"CREATE TABLE conntest_dup (id INT PRIMARY KEY)"))
	t.Cleanup(func() {
		_ = runner.Exec(context.Background(), "DROP TABLE conntest_dup")
	})

	err := runner.Exec(ctx, "CREATE TABLE conntest_dup (id INT PRIMARY KEY)")
	require.Error(t, err)
	assert.ErrorIs(t, err, ifxbridge.ErrExecutionFailed)
}

func TestTransactionSQL_RollbackDiscardsWrites(t *testing.T) {
	manager := newManager(t, managerConfig(t))
	ctx := context.Background()

	dialect, err := ifxbridge.LookupDialect(manager.Config().Dialect)
	require.NoError(t, err)

	handle, err := manager.Obtain(ctx)
	require.NoError(t, err)
	conn := handle.Conn()

	_, err = conn.ExecContext(ctx, "CREATE TABLE conntest_txn (id INT PRIMARY KEY)")
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = conn.ExecContext(context.Background(), "DROP TABLE conntest_txn")
	})

	_, err = conn.ExecContext(ctx, dialect.BeginSQL)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "INSERT INTO conntest_txn VALUES (1)")
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, dialect.RollbackSQL)
	require.NoError(t, err)

	var count int
	require.NoError(t, conn.GetContext(ctx, &count, "SELECT COUNT(*) FROM conntest_txn"))
	assert.Equal(t, 0, count)

	// Commit makes the write durable.
	_, err = conn.ExecContext(ctx, dialect.BeginSQL)
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, "INSERT INTO conntest_txn VALUES (2)")
	require.NoError(t, err)
	_, err = conn.ExecContext(ctx, dialect.CommitSQL)
	require.NoError(t, err)

	require.NoError(t, conn.GetContext(ctx, &count, "SELECT COUNT(*) FROM conntest_txn"))
	assert.Equal(t, 1, count)
}
