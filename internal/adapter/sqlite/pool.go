package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// PoolOptions configures the read-only connection pool.
type PoolOptions struct {
	Size        int           // default: 5
	BusyTimeout time.Duration // default: 5s
}

// NewPool opens path read-only. Every connection also runs with
// query_only set, so writes fail even if a statement slips past validation.
func NewPool(ctx context.Context, path string, opts PoolOptions) (*sqlitex.Pool, error) {
	if opts.Size <= 0 {
		opts.Size = 5
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	pool, err := sqlitex.NewPool(dbURI(path), sqlitex.PoolOptions{
		Flags:    sqlite.OpenReadOnly | sqlite.OpenURI,
		PoolSize: opts.Size,
		PrepareConn: func(conn *sqlite.Conn) error {
			conn.SetBusyTimeout(opts.BusyTimeout)
			return sqlitex.ExecuteTransient(conn, "PRAGMA query_only = ON", nil)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := ping(pingCtx, pool); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("pinging database (10s timeout): %w", err)
	}

	return pool, nil
}

// ping forces a connection open and a read of the schema, which is when
// SQLite notices a missing or corrupt file.
func ping(ctx context.Context, pool *sqlitex.Pool) error {
	conn, err := pool.Take(ctx)
	if err != nil {
		return err
	}
	defer pool.Put(conn)
	return sqlitex.ExecuteTransient(conn, "SELECT COUNT(*) FROM sqlite_master", nil)
}

// dbURI turns a filesystem path into a file: URI. URIs are passed through.
func dbURI(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path
}
