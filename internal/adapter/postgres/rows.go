package postgres

import (
	"fmt"

	"github.com/guillermoBallester/partscope/internal/core/port"
	"github.com/jackc/pgx/v5"
)

// rowsToResult converts pgx.Rows into a QueryResult, keeping column order.
func rowsToResult(rows pgx.Rows) (*port.QueryResult, error) {
	fields := rows.FieldDescriptions()
	result := &port.QueryResult{Columns: make([]string, len(fields))}
	for i, fd := range fields {
		result.Columns[i] = fd.Name
	}

	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("reading row values: %w", err)
		}
		row := make(map[string]any, len(fields))
		for i, name := range result.Columns {
			row[name] = vals[i]
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rows: %w", err)
	}
	return result, nil
}
