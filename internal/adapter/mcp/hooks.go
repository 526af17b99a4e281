package mcp

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/guillermoBallester/partscope/internal/core/port"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type inflight struct {
	start time.Time
	span  trace.Span
}

// callTracker pairs the before and after hooks of one tool call. Entries are
// keyed by request id so concurrent calls on a session stay separate.
type callTracker struct {
	tracer trace.Tracer
	calls  sync.Map // id -> *inflight
}

func (t *callTracker) begin(ctx context.Context, id any, tool string) {
	c := &inflight{start: time.Now()}
	if t.tracer != nil {
		_, c.span = t.tracer.Start(ctx, "mcp.tool.call",
			trace.WithAttributes(attribute.String("mcp.tool", tool)),
		)
	}
	t.calls.Store(id, c)
}

// end removes the call and returns its duration and span, if it was tracked.
func (t *callTracker) end(id any) (time.Duration, trace.Span) {
	v, ok := t.calls.LoadAndDelete(id)
	if !ok {
		return 0, nil
	}
	c := v.(*inflight)
	return time.Since(c.start), c.span
}

// ToolCallHooks logs every tool call and records its span and duration.
// Gate rejections are logged at WARN; other tool errors at ERROR.
func ToolCallHooks(logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.Hooks {
	hooks := &server.Hooks{}
	tracker := &callTracker{tracer: tracer}

	hooks.AddBeforeCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest) {
		tracker.begin(ctx, id, req.Params.Name)
	})

	hooks.AddAfterCallTool(func(ctx context.Context, id any, req *mcp.CallToolRequest, result any) {
		duration, span := tracker.end(id)
		tool := req.Params.Name

		var failed, rejected bool
		if r, ok := result.(*mcp.CallToolResult); ok && r.IsError {
			failed = true
			rejected = isRejection(r)
		}

		level := slog.LevelInfo
		switch {
		case rejected:
			level = slog.LevelWarn
		case failed:
			level = slog.LevelError
		}
		logger.LogAttrs(ctx, level, "tool call",
			slog.String("rpc.method", "tools/call"),
			slog.String("mcp.tool", tool),
			slog.Duration("duration", duration),
			slog.Bool("error", failed),
			slog.Bool("rejected", rejected),
		)

		if inst != nil {
			inst.RecordCallDuration(ctx, "mcp", tool, float64(duration.Milliseconds()))
		}

		if span == nil {
			return
		}
		span.SetAttributes(attribute.Bool("partscope.rejected", rejected))
		if failed {
			span.SetStatus(codes.Error, "tool returned error")
			span.RecordError(errors.New("tool " + tool + " returned error"))
		}
		span.End()
	})

	hooks.AddOnError(func(ctx context.Context, id any, _ mcp.MCPMethod, message any, err error) {
		duration, span := tracker.end(id)

		if req, ok := message.(*mcp.CallToolRequest); ok && req.Params.Name != "" {
			logger.LogAttrs(ctx, slog.LevelError, "tool call",
				slog.String("rpc.method", "tools/call"),
				slog.String("mcp.tool", req.Params.Name),
				slog.Duration("duration", duration),
				slog.Bool("error", true),
				slog.String("error.message", err.Error()),
			)
		}

		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
		}
	})

	return hooks
}

// isRejection reports whether a tool error is the gate's refusal, which is
// expected traffic rather than a server fault.
func isRejection(r *mcp.CallToolResult) bool {
	for _, c := range r.Content {
		if tc, ok := c.(mcp.TextContent); ok && tc.Text == msgRejected {
			return true
		}
	}
	return false
}
