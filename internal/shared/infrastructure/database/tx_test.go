package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/klarity/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/klarity/internal/shared/infrastructure/database/sqlite"
)

func openMemory(t *testing.T) database.Connection {
	t.Helper()
	conn, err := database.NewConnection(context.Background(), database.Config{
		Driver:     database.DriverSQLite,
		SQLitePath: ":memory:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	_, err = conn.Exec(context.Background(), `CREATE TABLE notes (id TEXT PRIMARY KEY)`)
	require.NoError(t, err)
	return conn
}

func count(t *testing.T, exec database.Executor) int {
	t.Helper()
	var n int
	require.NoError(t, exec.QueryRow(context.Background(), `SELECT COUNT(*) FROM notes`).Scan(&n))
	return n
}

func TestUnitOfWork_CommitAndRollback(t *testing.T) {
	conn := openMemory(t)
	uow := database.NewUnitOfWork(conn)

	txCtx, err := uow.Begin(context.Background())
	require.NoError(t, err)
	exec := database.ExecutorFromContext(txCtx, conn)
	assert.NotSame(t, conn, exec)
	_, err = exec.Exec(txCtx, `INSERT INTO notes (id) VALUES (?)`, "kept")
	require.NoError(t, err)
	require.NoError(t, uow.Commit(txCtx))

	txCtx, err = uow.Begin(context.Background())
	require.NoError(t, err)
	_, err = database.ExecutorFromContext(txCtx, conn).Exec(txCtx, `INSERT INTO notes (id) VALUES (?)`, "dropped")
	require.NoError(t, err)
	require.NoError(t, uow.Rollback(txCtx))

	assert.Equal(t, 1, count(t, conn))
}

func TestUnitOfWork_JoinsOuterTransaction(t *testing.T) {
	conn := openMemory(t)
	outer := database.NewUnitOfWork(conn)
	inner := database.NewUnitOfWork(conn)

	ctx, err := outer.Begin(context.Background())
	require.NoError(t, err)
	innerCtx, err := inner.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, ctx, innerCtx)

	_, err = database.ExecutorFromContext(innerCtx, conn).Exec(innerCtx, `INSERT INTO notes (id) VALUES (?)`, "a")
	require.NoError(t, err)
	require.NoError(t, inner.Commit(innerCtx), "inner commit is a no-op")
	require.NoError(t, outer.Rollback(ctx))

	assert.Zero(t, count(t, conn))
}

func TestUnitOfWork_NoTransaction(t *testing.T) {
	conn := openMemory(t)
	uow := database.NewUnitOfWork(conn)

	assert.ErrorIs(t, uow.Commit(context.Background()), database.ErrNoTransaction)
	assert.Equal(t, database.Executor(conn), database.ExecutorFromContext(context.Background(), conn))
}
