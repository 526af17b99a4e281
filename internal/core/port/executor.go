package port

import "context"

// QueryResult is a tabular result. Columns keeps the select-list order that
// the row maps lose.
type QueryResult struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// Len returns the number of rows.
func (r *QueryResult) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// ExecOptions tunes a single execution.
type ExecOptions struct {
	// Args binds named parameters written as @name in the statement.
	Args map[string]any
	// MaxRows overrides the executor's row cap when positive.
	MaxRows int
}

// QueryExecutor runs a statement that has already been accepted by a QueryValidator.
type QueryExecutor interface {
	Execute(ctx context.Context, sql string, opts ExecOptions) (*QueryResult, error)
}
