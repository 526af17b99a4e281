package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/guillermoBallester/partscope/internal/adapter/sqlite"
	"github.com/stretchr/testify/require"
	zsqlite "zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const testSchema = `
	CREATE TABLE pat_parts_all (
		配件編號 TEXT PRIMARY KEY,
		配件名稱 TEXT NOT NULL,
		客戶名稱 TEXT,
		配件狀態 TEXT NOT NULL,
		配件種類 TEXT,
		維修天數 INTEGER,
		開始時間 TEXT
	);
	CREATE INDEX idx_pat_status ON pat_parts_all(配件狀態);

	CREATE TABLE kyec_parts_all (
		配件編號 TEXT PRIMARY KEY,
		板全號 TEXT,
		客戶名稱 TEXT,
		配件狀態 TEXT NOT NULL,
		配件種類 TEXT,
		機台型號 TEXT,
		狀態開始時間 TEXT
	);

	CREATE TABLE pat_stats_weekly (每周狀態 TEXT, 正常生產 INTEGER, 廠內維修 INTEGER, 客戶維修 INTEGER);
	CREATE TABLE kyec_stats_weekly (每周狀態 TEXT, 正常生產 INTEGER, 廠內維修 INTEGER, 客戶維修 INTEGER);

	CREATE TABLE table_change_log (
		id          INTEGER PRIMARY KEY,
		"timestamp" TEXT NOT NULL,
		table_name  TEXT NOT NULL,
		operation   TEXT NOT NULL,
		row_key     TEXT,
		column_name TEXT,
		old_value   TEXT,
		new_value   TEXT,
		"user"      TEXT,
		note        TEXT
	);

	INSERT INTO pat_parts_all VALUES
		('P-001', 'Probe card', 'ACME', 'PRODUCTION', 'probe', NULL, '2025-01-02'),
		('P-002', 'Load board', 'ACME', 'REPAIR', 'board', 12, '2025-01-05'),
		('P-003', 'Socket', 'Globex', 'OUT_REPAIR', 'socket', 30, '2025-01-09'),
		('P-004', 'Socket', NULL, 'BORROW', 'socket', NULL, '2025-02-01'),
		('P-005', 'Probe card', 'Initech', 'PRODUCTION', 'probe', 0, '2025-02-11');

	INSERT INTO kyec_parts_all VALUES
		('K-001', 'B-1', 'ACME', '正常生產', 'probe', 'T2000', '2025-01-03'),
		('K-002', 'B-2', 'Globex', '廠內維修', 'board', 'T2000', '2025-01-04');

	INSERT INTO pat_stats_weekly VALUES ('2025-W01', 3, 1, 1), ('2025-W02', 2, 2, 1);

	INSERT INTO table_change_log ("timestamp", table_name, operation, row_key, column_name, old_value, new_value, "user", note) VALUES
		('2025-03-01T10:00:00', 'pat_parts_all', 'UPDATE', 'P-002', '配件狀態', 'PRODUCTION', 'REPAIR', 'amy', NULL),
		('2025-03-20T09:30:00', 'pat_parts_all', 'INSERT', 'P-005', NULL, NULL, NULL, 'bob', 'new part');
`

// setupTestDB writes a seeded database file and opens it through the
// read-only pool.
func setupTestDB(t *testing.T) *sqlitex.Pool {
	t.Helper()

	path := filepath.Join(t.TempDir(), "parts.db")
	conn, err := zsqlite.OpenConn(path, zsqlite.OpenCreate, zsqlite.OpenReadWrite)
	require.NoError(t, err)
	require.NoError(t, sqlitex.ExecuteScript(conn, testSchema, nil))
	require.NoError(t, conn.Close())

	pool, err := sqlite.NewPool(context.Background(), path, sqlite.PoolOptions{Size: 2, BusyTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Close() })
	return pool
}
