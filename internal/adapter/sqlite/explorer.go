package sqlite

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/port"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Explorer reads schema metadata from sqlite_master and the pragma
// table-valued functions. Its statements are fixed; identifiers taken from
// callers are only used after they are found in the catalog.
type Explorer struct {
	pool *sqlitex.Pool
}

func NewExplorer(pool *sqlitex.Pool) *Explorer {
	return &Explorer{pool: pool}
}

func (e *Explorer) ListTables(ctx context.Context) ([]port.TableInfo, error) {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer e.pool.Put(conn)

	var tables []port.TableInfo
	err = sqlitex.Execute(conn, queryListTables, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			tables = append(tables, port.TableInfo{
				Name:        stmt.ColumnText(0),
				Type:        stmt.ColumnText(1),
				ColumnCount: stmt.ColumnInt(2),
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	for i := range tables {
		if tables[i].RowCount, err = rowCount(conn, tables[i].Name); err != nil {
			return nil, err
		}
	}
	return tables, nil
}

func (e *Explorer) DescribeTable(ctx context.Context, table string) (*port.TableDetail, error) {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer e.pool.Put(conn)

	return describe(conn, table)
}

func describe(conn *sqlite.Conn, table string) (*port.TableDetail, error) {
	var detail *port.TableDetail
	err := sqlitex.Execute(conn, queryTableMeta, &sqlitex.ExecOptions{
		Named: map[string]any{"@table": table},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			detail = &port.TableDetail{Name: stmt.ColumnText(0), Type: stmt.ColumnText(1)}
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("querying table metadata for %q: %w", table, err)
	}
	if detail == nil {
		return nil, fmt.Errorf("table %q %w", table, domain.ErrNotFound)
	}

	if detail.Columns, err = fetchColumns(conn, table); err != nil {
		return nil, err
	}
	if detail.Indexes, err = fetchIndexes(conn, table); err != nil {
		return nil, err
	}
	if detail.RowCount, err = rowCount(conn, table); err != nil {
		return nil, err
	}
	return detail, nil
}

func (e *Explorer) ProfileColumn(ctx context.Context, table, column string) (*domain.ColumnProfile, error) {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer e.pool.Put(conn)

	detail, err := describe(conn, table)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(detail.ColumnNames(), column) {
		return nil, fmt.Errorf("column %q of table %q %w", column, table, domain.ErrNotFound)
	}

	var rows, nonNull, distinct int64
	query := fmt.Sprintf(queryColumnCounts, quoteIdent(column), quoteIdent(table))
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			rows, nonNull, distinct = stmt.ColumnInt64(0), stmt.ColumnInt64(1), stmt.ColumnInt64(2)
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("profiling %s.%s: %w", table, column, err)
	}

	p := domain.NewColumnProfile(table, column, rows, nonNull, distinct)
	return &p, nil
}

func (e *Explorer) SchemaDDL(ctx context.Context) ([]string, error) {
	conn, err := e.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring connection: %w", err)
	}
	defer e.pool.Put(conn)

	var ddl []string
	err = sqlitex.Execute(conn, querySchemaDDL, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			ddl = append(ddl, stmt.ColumnText(0))
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	return ddl, nil
}

func fetchColumns(conn *sqlite.Conn, table string) ([]port.ColumnInfo, error) {
	var cols []port.ColumnInfo
	err := sqlitex.Execute(conn, queryColumns, &sqlitex.ExecOptions{
		Named: map[string]any{"@table": table},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			cols = append(cols, port.ColumnInfo{
				Name:         stmt.ColumnText(0),
				DataType:     stmt.ColumnText(1),
				IsNullable:   stmt.ColumnInt(2) == 0,
				DefaultValue: stmt.ColumnText(3),
				IsPrimaryKey: stmt.ColumnInt(4) > 0,
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("querying columns: %w", err)
	}
	return cols, nil
}

func fetchIndexes(conn *sqlite.Conn, table string) ([]port.IndexInfo, error) {
	var indexes []port.IndexInfo
	err := sqlitex.Execute(conn, queryIndexes, &sqlitex.ExecOptions{
		Named: map[string]any{"@table": table},
		ResultFunc: func(stmt *sqlite.Stmt) error {
			indexes = append(indexes, port.IndexInfo{
				Name:     stmt.ColumnText(0),
				IsUnique: stmt.ColumnInt(1) == 1,
			})
			return nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("querying indexes: %w", err)
	}

	for i := range indexes {
		err := sqlitex.Execute(conn, queryIndexColumns, &sqlitex.ExecOptions{
			Named: map[string]any{"@index": indexes[i].Name},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				indexes[i].Columns = append(indexes[i].Columns, stmt.ColumnText(0))
				return nil
			},
		})
		if err != nil {
			return nil, fmt.Errorf("querying index columns for %q: %w", indexes[i].Name, err)
		}
	}
	return indexes, nil
}

func rowCount(conn *sqlite.Conn, table string) (int64, error) {
	var n int64
	err := sqlitex.Execute(conn, fmt.Sprintf(queryRowCount, quoteIdent(table)), &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			n = stmt.ColumnInt64(0)
			return nil
		},
	})
	if err != nil {
		return 0, fmt.Errorf("counting rows of %q: %w", table, err)
	}
	return n, nil
}

// quoteIdent quotes a SQL identifier to prevent injection.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
