package migrations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/klarity/internal/shared/infrastructure/database"
	"github.com/felixgeelhaar/klarity/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/klarity/internal/shared/infrastructure/migrations"
)

func TestRun_SQLite(t *testing.T) {
	ctx := context.Background()
	conn, err := sqlite.NewConnection(ctx, database.Config{SQLitePath: ":memory:"})
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, migrations.Run(ctx, conn))
	require.NoError(t, migrations.Run(ctx, conn), "migrations must be re-runnable")

	for _, table := range []string{"inbox_items", "inbox_replies"} {
		var name string
		err := conn.QueryRow(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
}
