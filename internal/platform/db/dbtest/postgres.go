//go:build integration

// Package dbtest starts a disposable PostgreSQL for repository integration tests.
package dbtest

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/odyssey-erp/odyssey-rbac/internal/platform/db"
)

// NewPool starts a postgres container, applies the schema and returns a pool bound to it.
// The container is terminated when the test finishes. Tests are skipped when no container
// runtime is available.
func NewPool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctr, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("rbac_test"),
		postgres.WithUsername("rbac"),
		postgres.WithPassword("rbac_test_password"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Skipf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = ctr.Terminate(stopCtx)
	})

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := db.New(ctx, dsn, db.PoolOptions{MaxConns: 8})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, db.Migrate(ctx, pool, nil))
	return pool
}
