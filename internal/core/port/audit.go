package port

import "context"

// AuditEntry describes one statement that was executed or rejected.
type AuditEntry struct {
	Caller       string
	SQL          string
	RowsReturned int
	DurationMS   int64
	Rejected     bool
	// Reason names the gate step that rejected the statement.
	Reason string
	Err    error
}

// QueryAuditor records query audit events. Record must not block on the caller's request.
type QueryAuditor interface {
	Record(ctx context.Context, entry AuditEntry)
	Close() error
}

// NoopAuditor discards all audit entries.
type NoopAuditor struct{}

func (NoopAuditor) Record(context.Context, AuditEntry) {}
func (NoopAuditor) Close() error                       { return nil }
