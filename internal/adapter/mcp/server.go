package mcp

import (
	"log/slog"

	"github.com/guillermoBallester/partscope/internal/core/port"
	"github.com/guillermoBallester/partscope/internal/core/service"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

// Services bundles the core services exposed as tools. Ask may be nil or
// disabled, in which case the ask tool is not registered.
type Services struct {
	Explorer  *service.ExplorerService
	Query     *service.QueryService
	Dashboard *service.DashboardService
	Reports   *service.ReportService
	Ask       *service.AskService
}

// NewServer creates an MCPServer with tools and logging hooks.
func NewServer(version string, svc Services, logger *slog.Logger, tracer trace.Tracer, inst port.Instrumentation) *server.MCPServer {
	s := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(false),
		server.WithHooks(ToolCallHooks(logger, tracer, inst)),
	)

	RegisterTools(s, svc)

	return s
}
