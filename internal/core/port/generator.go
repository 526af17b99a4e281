package port

import "context"

// SQLGenerator translates a natural-language question into SQL. Its output is
// untrusted and must pass a QueryValidator before it runs.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, question string) (string, error)
}
