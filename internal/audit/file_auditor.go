package audit

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/guillermoBallester/partscope/internal/core/port"
)

// StderrPath selects standard error as the audit destination.
const StderrPath = "-"

// record is one NDJSON line of the audit trail.
type record struct {
	ID           string  `json:"id"`
	Timestamp    string  `json:"ts"`
	Caller       string  `json:"caller,omitempty"`
	SQL          string  `json:"sql"`
	RowsReturned int     `json:"rows_returned"`
	DurationMS   int64   `json:"duration_ms"`
	Rejected     bool    `json:"rejected"`
	Reason       string  `json:"reason,omitempty"`
	Error        *string `json:"error"`
}

func newRecord(e port.AuditEntry, at time.Time) record {
	r := record{
		ID:           uuid.NewString(),
		Timestamp:    at.UTC().Format(time.RFC3339Nano),
		Caller:       e.Caller,
		SQL:          e.SQL,
		RowsReturned: e.RowsReturned,
		DurationMS:   e.DurationMS,
		Rejected:     e.Rejected,
		Reason:       e.Reason,
	}
	if e.Err != nil {
		msg := e.Err.Error()
		r.Error = &msg
	}
	return r
}

// FileAuditor appends one JSON object per query to a writer, usually a file.
// Write failures are logged and never fail the query.
type FileAuditor struct {
	mu     sync.Mutex
	enc    *json.Encoder
	closer io.Closer
	logger *slog.Logger
	now    func() time.Time
}

// NewFileAuditor opens path for appending, creating it if needed.
// StderrPath writes to standard error instead.
func NewFileAuditor(path string, logger *slog.Logger) (*FileAuditor, error) {
	if path == StderrPath {
		return NewWriterAuditor(os.Stderr, logger), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, err
	}
	a := NewWriterAuditor(f, logger)
	a.closer = f
	return a, nil
}

// NewWriterAuditor writes audit lines to w. Close does not close w.
func NewWriterAuditor(w io.Writer, logger *slog.Logger) *FileAuditor {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FileAuditor{
		enc:    json.NewEncoder(w),
		logger: logger,
		now:    time.Now,
	}
}

func (a *FileAuditor) Record(ctx context.Context, entry port.AuditEntry) {
	r := newRecord(entry, a.now())

	a.mu.Lock()
	err := a.enc.Encode(r)
	a.mu.Unlock()

	if err != nil {
		a.logger.WarnContext(ctx, "audit write failed",
			slog.String("audit.id", r.ID),
			slog.String("error.message", err.Error()),
		)
	}
}

func (a *FileAuditor) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closer == nil {
		return nil
	}
	return a.closer.Close()
}
