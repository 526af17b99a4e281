package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/port"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Explorer struct {
	pool    *pgxpool.Pool
	schemas []string // empty means all non-system schemas
}

func NewExplorer(pool *pgxpool.Pool, schemas []string) *Explorer {
	return &Explorer{pool: pool, schemas: schemas}
}

func (e *Explorer) ListTables(ctx context.Context) ([]port.TableInfo, error) {
	filter, args := schemaFilter(e.schemas, "t.table_schema", 1)
	query := fmt.Sprintf(queryListTables, filter)

	rows, err := e.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []port.TableInfo
	for rows.Next() {
		var t port.TableInfo
		if err := rows.Scan(&t.Name, &t.Type, &t.RowCount, &t.ColumnCount, &t.Comment); err != nil {
			return nil, fmt.Errorf("scanning table row: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (e *Explorer) DescribeTable(ctx context.Context, tableName string) (*port.TableDetail, error) {
	detail, _, err := e.describe(ctx, tableName)
	return detail, err
}

// describe also returns the schema the table was found in.
func (e *Explorer) describe(ctx context.Context, tableName string) (*port.TableDetail, string, error) {
	schema, typ, comment, err := e.fetchTableMeta(ctx, tableName)
	if err != nil {
		return nil, "", err
	}
	detail := &port.TableDetail{Name: tableName, Type: typ, Comment: comment}

	if detail.Columns, err = e.fetchColumns(ctx, schema, tableName); err != nil {
		return nil, "", err
	}
	if err := e.markPrimaryKeys(ctx, schema, detail); err != nil {
		return nil, "", err
	}
	if detail.Indexes, err = e.fetchIndexes(ctx, schema, tableName); err != nil {
		return nil, "", err
	}
	if detail.RowCount, err = e.fetchRowCount(ctx, schema, tableName); err != nil {
		return nil, "", err
	}
	return detail, schema, nil
}

func (e *Explorer) ProfileColumn(ctx context.Context, tableName, column string) (*domain.ColumnProfile, error) {
	detail, schema, err := e.describe(ctx, tableName)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(detail.ColumnNames(), column) {
		return nil, fmt.Errorf("column %q of table %q %w", column, tableName, domain.ErrNotFound)
	}

	var rows, nonNull, distinct int64
	query := fmt.Sprintf(queryColumnCounts, quoteIdent(column), qualified(schema, tableName))
	if err := e.pool.QueryRow(ctx, query).Scan(&rows, &nonNull, &distinct); err != nil {
		return nil, fmt.Errorf("profiling %s.%s: %w", tableName, column, err)
	}

	p := domain.NewColumnProfile(tableName, column, rows, nonNull, distinct)
	return &p, nil
}

func (e *Explorer) SchemaDDL(ctx context.Context) ([]string, error) {
	filter, args := schemaFilter(e.schemas, "t.table_schema", 1)

	rows, err := e.pool.Query(ctx, fmt.Sprintf(querySchemaDDL, filter), args...)
	if err != nil {
		return nil, fmt.Errorf("reading schema: %w", err)
	}
	defer rows.Close()

	var ddl []string
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return nil, fmt.Errorf("scanning ddl: %w", err)
		}
		ddl = append(ddl, stmt)
	}
	return ddl, rows.Err()
}
