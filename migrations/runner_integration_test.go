package migrations

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestRunnerIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("seed_migrate"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(2*time.Minute),
		),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(container)
	})

	url, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	runner, err := NewRunner(&Config{DatabaseURL: url, MigrationTable: defaultMigrationTable}, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = runner.Close()
	})

	st, err := runner.Status()
	require.NoError(t, err)
	assert.Equal(t, 2, st.Pending())

	applied, err := runner.Up()
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = runner.Up()
	require.NoError(t, err)
	assert.False(t, applied, "second up is a no-op")

	st, err = runner.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(2), st.Version)
	assert.False(t, st.Dirty)

	rolledBack, err := runner.Down()
	require.NoError(t, err)
	assert.True(t, rolledBack)

	st, err = runner.Status()
	require.NoError(t, err)
	assert.Equal(t, uint(1), st.Version)

	require.NoError(t, runner.Drop())
}
