package port

// QueryValidator decides whether a SQL statement may run. A nil error accepts it.
type QueryValidator interface {
	Validate(sql string) error
}
