package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/guillermoBallester/partscope/internal/core/port"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

type Executor struct {
	pool         *sqlitex.Pool
	maxRows      int
	queryTimeout time.Duration
}

func NewExecutor(pool *sqlitex.Pool, maxRows int, queryTimeout time.Duration) *Executor {
	return &Executor{
		pool:         pool,
		maxRows:      maxRows,
		queryTimeout: queryTimeout,
	}
}

func (e *Executor) Execute(ctx context.Context, sql string, opts port.ExecOptions) (*port.QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	limit := e.maxRows
	if opts.MaxRows > 0 {
		limit = opts.MaxRows
	}
	wrappedSQL := fmt.Sprintf("SELECT * FROM (%s) AS _q LIMIT %d", trimTerminator(sql), limit)

	conn, err := e.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer e.pool.Put(conn)

	// Interrupts the statement when ctx expires.
	conn.SetInterrupt(ctx.Done())
	defer conn.SetInterrupt(nil)

	stmt, trailing, err := conn.PrepareTransient(wrappedSQL)
	if err != nil {
		return nil, e.wrapErr("preparing query", err)
	}
	defer func() { _ = stmt.Finalize() }()
	if trailing > 0 {
		return nil, errors.New("preparing query: trailing statement text")
	}

	if err := bindNamed(stmt, opts.Args); err != nil {
		return nil, err
	}

	result := &port.QueryResult{Columns: columnNames(stmt)}
	for {
		hasRow, err := stmt.Step()
		if err != nil {
			return nil, e.wrapErr("executing query", err)
		}
		if !hasRow {
			break
		}
		result.Rows = append(result.Rows, rowToMap(stmt, result.Columns))
	}
	return result, nil
}

func (e *Executor) wrapErr(op string, err error) error {
	if sqlite.ErrCode(err) == sqlite.ResultInterrupt {
		return fmt.Errorf("%s: exceeded %s timeout: %w", op, e.queryTimeout, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// trimTerminator drops one trailing semicolon so the statement can be nested.
func trimTerminator(sql string) string {
	return strings.TrimSuffix(strings.TrimSpace(sql), ";")
}

// bindNamed binds every @name, :name or $name parameter from args.
// Positional parameters are not supported.
func bindNamed(stmt *sqlite.Stmt, args map[string]any) error {
	for i := 1; i <= stmt.BindParamCount(); i++ {
		param := stmt.BindParamName(i)
		if param == "" {
			return fmt.Errorf("binding parameter %d: positional parameters are not supported", i)
		}
		v, ok := args[param[1:]]
		if !ok {
			return fmt.Errorf("binding %s: missing argument", param)
		}
		if err := bindValue(stmt, i, v); err != nil {
			return fmt.Errorf("binding %s: %w", param, err)
		}
	}
	return nil
}

func bindValue(stmt *sqlite.Stmt, i int, v any) error {
	switch x := v.(type) {
	case nil:
		stmt.BindNull(i)
	case string:
		stmt.BindText(i, x)
	case []byte:
		stmt.BindBytes(i, x)
	case bool:
		stmt.BindBool(i, x)
	case int:
		stmt.BindInt64(i, int64(x))
	case int32:
		stmt.BindInt64(i, int64(x))
	case int64:
		stmt.BindInt64(i, x)
	case float64:
		stmt.BindFloat(i, x)
	case time.Time:
		stmt.BindText(i, x.UTC().Format(time.RFC3339))
	default:
		return fmt.Errorf("unsupported argument type %T", v)
	}
	return nil
}
