package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/guillermoBallester/partscope/internal/adapter/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testSchema = `
	CREATE TABLE pat_parts_all (
		"配件編號" TEXT PRIMARY KEY,
		"配件名稱" TEXT NOT NULL,
		"客戶名稱" TEXT,
		"配件狀態" TEXT NOT NULL,
		"維修天數" INTEGER
	);
	CREATE INDEX idx_pat_status ON pat_parts_all("配件狀態");
	COMMENT ON TABLE pat_parts_all IS 'PAT parts inventory';

	CREATE TABLE table_change_log (
		id          SERIAL PRIMARY KEY,
		"timestamp" TEXT NOT NULL,
		table_name  TEXT NOT NULL,
		operation   TEXT NOT NULL,
		row_key     TEXT
	);

	INSERT INTO pat_parts_all VALUES
		('P-001', 'Probe card', 'ACME', 'PRODUCTION', NULL),
		('P-002', 'Load board', 'ACME', 'REPAIR', 12),
		('P-003', 'Socket', 'Globex', 'OUT_REPAIR', 30),
		('P-004', 'Socket', NULL, 'BORROW', NULL),
		('P-005', 'Probe card', 'Initech', 'PRODUCTION', 0);
`

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := postgres.NewPool(ctx, connStr, postgres.PoolOptions{MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	_, err = pool.Exec(ctx, testSchema)
	require.NoError(t, err)

	return pool
}
