package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/port"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type callerKey struct{}

// WithCaller returns a context naming the tool or route that issued a query, for audit logging.
func WithCaller(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, callerKey{}, name)
}

func callerFromCtx(ctx context.Context) string {
	if v, ok := ctx.Value(callerKey{}).(string); ok {
		return v
	}
	return ""
}

// QueryService is the only path to the executor: every statement, fixed or
// user supplied, is validated first and never executed when rejected.
type QueryService struct {
	validator port.QueryValidator
	executor  port.QueryExecutor
	auditor   port.QueryAuditor
	logger    *slog.Logger
	masks     domain.ColumnMasks
	tracer    trace.Tracer
	inst      port.Instrumentation
	dbSystem  string
}

// QueryOption customises a QueryService.
type QueryOption func(*QueryService)

// WithMasks masks the given result columns (policy file).
func WithMasks(masks domain.ColumnMasks) QueryOption {
	return func(s *QueryService) { s.masks = masks }
}

// WithTracer records a span per query.
func WithTracer(tracer trace.Tracer) QueryOption {
	return func(s *QueryService) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithInstrumentation records query metrics.
func WithInstrumentation(inst port.Instrumentation) QueryOption {
	return func(s *QueryService) {
		if inst != nil {
			s.inst = inst
		}
	}
}

// WithDBSystem sets the db.system span attribute ("sqlite", "postgresql").
func WithDBSystem(name string) QueryOption {
	return func(s *QueryService) { s.dbSystem = name }
}

func NewQueryService(validator port.QueryValidator, executor port.QueryExecutor, auditor port.QueryAuditor, logger *slog.Logger, opts ...QueryOption) *QueryService {
	if auditor == nil {
		auditor = port.NoopAuditor{}
	}
	s := &QueryService{
		validator: validator,
		executor:  executor,
		auditor:   auditor,
		logger:    logger,
		tracer:    noop.NewTracerProvider().Tracer("noop"),
		inst:      port.NoopInstrumentation{},
		dbSystem:  "sqlite",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check validates sql without executing it, for callers that must check
// several statements before running any. A rejection is logged, audited and
// counted exactly as in Query.
func (s *QueryService) Check(ctx context.Context, sql string) error {
	ctx, span := s.tracer.Start(ctx, "QueryService.Check",
		trace.WithAttributes(
			attribute.String("db.system", s.dbSystem),
			attribute.String("db.statement", sql),
		),
	)
	defer span.End()
	return s.check(ctx, span, sql)
}

// check runs the validator and records a rejection.
func (s *QueryService) check(ctx context.Context, span trace.Span, sql string) error {
	err := s.validator.Validate(sql)
	if err == nil {
		return nil
	}
	reason := domain.RejectionReason(err)
	s.logger.WarnContext(ctx, "query validation rejected",
		slog.String("caller", callerFromCtx(ctx)),
		slog.String("db.statement", sql),
		slog.String("error.type", "validation_error"),
		slog.String("reason", reason),
	)
	span.RecordError(err)
	span.SetStatus(codes.Error, "rejected")
	s.inst.IncrementQueryRejections(ctx, reason)
	s.auditor.Record(ctx, port.AuditEntry{
		Caller:   callerFromCtx(ctx),
		SQL:      sql,
		Rejected: true,
		Reason:   reason,
		Err:      err,
	})
	return fmt.Errorf("validation: %w", err)
}

// Execute validates sql and, if allowed, runs it with the executor's defaults.
func (s *QueryService) Execute(ctx context.Context, sql string) (*port.QueryResult, error) {
	return s.Query(ctx, sql, port.ExecOptions{})
}

// Query validates sql and, if allowed, runs it with opts. A rejected
// statement returns an error wrapping domain.ErrRejected.
func (s *QueryService) Query(ctx context.Context, sql string, opts port.ExecOptions) (*port.QueryResult, error) {
	ctx, span := s.tracer.Start(ctx, "QueryService.Query",
		trace.WithAttributes(
			attribute.String("db.system", s.dbSystem),
			attribute.String("db.operation.name", "query"),
			attribute.String("db.statement", sql),
		),
	)
	defer span.End()

	if err := s.check(ctx, span, sql); err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.executor.Execute(ctx, sql, opts)
	durationMS := time.Since(start).Milliseconds()

	s.inst.RecordQueryDuration(ctx, float64(durationMS))
	s.auditor.Record(ctx, port.AuditEntry{
		Caller:       callerFromCtx(ctx),
		SQL:          sql,
		RowsReturned: result.Len(),
		DurationMS:   durationMS,
		Err:          err,
	})

	if err != nil {
		s.logger.ErrorContext(ctx, "query failed",
			slog.String("caller", callerFromCtx(ctx)),
			slog.String("error.message", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.inst.IncrementQueryErrors(ctx)
		return nil, err
	}

	if result == nil {
		result = &port.QueryResult{}
	}
	s.inst.IncrementQueryCount(ctx)
	span.SetAttributes(attribute.Int("db.response.rows", result.Len()))
	s.masks.ForQuery(sql).Rows(result.Rows)

	return result, nil
}
