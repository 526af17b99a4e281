package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/port"
	"github.com/guillermoBallester/partscope/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock SchemaExplorer ---

type mockExplorer struct {
	tables  []port.TableInfo
	details map[string]*port.TableDetail
	profile *domain.ColumnProfile
	err     error
}

func (m *mockExplorer) ListTables(context.Context) ([]port.TableInfo, error) {
	return m.tables, m.err
}

func (m *mockExplorer) DescribeTable(_ context.Context, table string) (*port.TableDetail, error) {
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.details[table]
	if !ok {
		return nil, fmt.Errorf("table %q: %w", table, domain.ErrNotFound)
	}
	return d, nil
}

func (m *mockExplorer) ProfileColumn(context.Context, string, string) (*domain.ColumnProfile, error) {
	return m.profile, m.err
}

func (m *mockExplorer) SchemaDDL(context.Context) ([]string, error) {
	return nil, m.err
}

// --- mock QueryExecutor ---

type mockExecutor struct {
	mu     sync.Mutex
	result *port.QueryResult
	err    error
	sqls   []string
}

func (m *mockExecutor) Execute(_ context.Context, sql string, _ port.ExecOptions) (*port.QueryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sqls = append(m.sqls, sql)
	return m.result, m.err
}

func (m *mockExecutor) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sqls)
}

// --- stub SQLGenerator ---

type stubGenerator struct {
	sql string
	err error
}

func (g stubGenerator) GenerateSQL(context.Context, string) (string, error) {
	return g.sql, g.err
}

// --- recording auditor / instrumentation ---

type recordingAuditor struct {
	mu      sync.Mutex
	entries []port.AuditEntry
}

func (a *recordingAuditor) Record(_ context.Context, e port.AuditEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
}

func (a *recordingAuditor) Close() error { return nil }

type recordingInstrumentation struct {
	port.NoopInstrumentation
	mu    sync.Mutex
	calls []string
}

func (r *recordingInstrumentation) RecordCallDuration(_ context.Context, transport, name string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, transport+"/"+name)
}

// --- helpers ---

func newSession(t *testing.T, s *server.MCPServer) context.Context {
	t.Helper()
	ctx := context.Background()
	session := server.NewInProcessSession("test", nil)
	require.NoError(t, s.RegisterSession(ctx, session))
	sessionCtx := s.WithContext(ctx, session)

	initBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "init", "method": "initialize",
		"params": map[string]any{
			"protocolVersion": "2025-03-26",
			"capabilities":    map[string]any{},
			"clientInfo":      map[string]any{"name": "test", "version": "1.0"},
		},
	})
	s.HandleMessage(sessionCtx, initBytes)
	return sessionCtx
}

func callTool(t *testing.T, s *server.MCPServer, toolName string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	sessionCtx := newSession(t, s)

	reqBytes, _ := json.Marshal(map[string]any{
		"jsonrpc": "2.0", "id": "call-1", "method": "tools/call",
		"params": map[string]any{
			"name":      toolName,
			"arguments": args,
		},
	})
	resp := s.HandleMessage(sessionCtx, reqBytes)
	respBytes, _ := json.Marshal(resp)

	var rpc struct {
		Result *mcp.CallToolResult       `json:"result"`
		Error  *struct{ Message string } `json:"error,omitempty"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpc))
	require.Nil(t, rpc.Error, "unexpected RPC error: %v", rpc.Error)
	require.NotNil(t, rpc.Result)
	return rpc.Result
}

func listTools(t *testing.T, s *server.MCPServer) []string {
	t.Helper()
	sessionCtx := newSession(t, s)

	reqBytes, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": "list-1", "method": "tools/list"})
	respBytes, _ := json.Marshal(s.HandleMessage(sessionCtx, reqBytes))

	var rpc struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(respBytes, &rpc))
	names := make([]string, len(rpc.Result.Tools))
	for i, tool := range rpc.Result.Tools {
		names[i] = tool.Name
	}
	return names
}

func toolText(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return ""
	}
	return tc.Text
}

type fixture struct {
	explorer *mockExplorer
	executor *mockExecutor
	auditor  *recordingAuditor
	inst     *recordingInstrumentation
	gen      port.SQLGenerator
}

func (f *fixture) server() *server.MCPServer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if f.explorer == nil {
		f.explorer = &mockExplorer{}
	}
	if f.executor == nil {
		f.executor = &mockExecutor{result: &port.QueryResult{}}
	}
	f.auditor = &recordingAuditor{}
	f.inst = &recordingInstrumentation{}

	query := service.NewQueryService(domain.NewSelectGate(), f.executor, f.auditor, logger)
	svc := Services{
		Explorer:  service.NewExplorerService(f.explorer),
		Query:     query,
		Dashboard: service.NewDashboardService(query),
		Reports:   service.NewReportService(f.explorer, query, logger, 1000),
		Ask:       service.NewAskService(f.gen, query, logger),
	}
	return NewServer("0.1.0", svc, logger, nil, f.inst)
}

// --- tests ---

func TestRegisterTools_AskOnlyWhenConfigured(t *testing.T) {
	without := (&fixture{}).server()
	names := listTools(t, without)
	assert.NotContains(t, names, "ask")
	assert.Subset(t, names, []string{
		"list_tables", "describe_table", "profile_column", "query", "custom_report",
		"overview", "status_distribution", "type_statistics", "customer_statistics",
		"status_trend", "maintenance_cycle", "change_logs", "search_parts", "part_detail",
		"maintenance_analysis", "trend_analysis", "change_log_analysis",
	})

	with := (&fixture{gen: stubGenerator{sql: "SELECT 1"}}).server()
	assert.Contains(t, listTools(t, with), "ask")
}

func TestListTables(t *testing.T) {
	f := &fixture{explorer: &mockExplorer{tables: []port.TableInfo{
		{Name: "pat_parts_all", Type: "table", RowCount: 5, ColumnCount: 7},
	}}}
	result := callTool(t, f.server(), "list_tables", nil)
	require.False(t, result.IsError)

	var tables []port.TableInfo
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &tables))
	require.Len(t, tables, 1)
	assert.Equal(t, "pat_parts_all", tables[0].Name)
}

func TestDescribeTable(t *testing.T) {
	f := &fixture{explorer: &mockExplorer{details: map[string]*port.TableDetail{
		"kyec_parts_all": {Name: "kyec_parts_all", Columns: []port.ColumnInfo{{Name: "板全號", DataType: "TEXT"}}},
	}}}
	s := f.server()

	t.Run("found", func(t *testing.T) {
		result := callTool(t, s, "describe_table", map[string]any{"table_name": "kyec_parts_all"})
		require.False(t, result.IsError)
		assert.Contains(t, toolText(result), "板全號")
	})

	t.Run("missing argument", func(t *testing.T) {
		result := callTool(t, s, "describe_table", map[string]any{})
		assert.True(t, result.IsError)
		assert.Equal(t, "table_name is required", toolText(result))
	})

	t.Run("unknown table", func(t *testing.T) {
		result := callTool(t, s, "describe_table", map[string]any{"table_name": "nope"})
		assert.True(t, result.IsError)
		assert.Contains(t, toolText(result), "not found")
	})
}

func TestProfileColumn(t *testing.T) {
	profile := domain.NewColumnProfile("pat_parts_all", "配件狀態", 10, 10, 4)
	f := &fixture{explorer: &mockExplorer{profile: &profile}}
	result := callTool(t, f.server(), "profile_column", map[string]any{"table_name": "pat_parts_all", "column": "配件狀態"})
	require.False(t, result.IsError, toolText(result))

	var got domain.ColumnProfile
	require.NoError(t, json.Unmarshal([]byte(toolText(result)), &got))
	assert.Equal(t, int64(4), got.DistinctCount)
}

func TestQuery(t *testing.T) {
	f := &fixture{executor: &mockExecutor{result: &port.QueryResult{
		Columns: []string{"配件編號"},
		Rows:    []map[string]any{{"配件編號": "P-001"}},
	}}}
	s := f.server()

	result := callTool(t, s, "query", map[string]any{"sql": "SELECT 配件編號 FROM pat_parts_all"})
	require.False(t, result.IsError, toolText(result))
	assert.Contains(t, toolText(result), "P-001")

	require.Len(t, f.auditor.entries, 1)
	assert.Equal(t, "query", f.auditor.entries[0].Caller)
	assert.Equal(t, []string{"mcp/query"}, f.inst.calls)
}

func TestQuery_RejectedIsGeneric(t *testing.T) {
	tests := []struct {
		name string
		sql  string
	}{
		{"delete", "DELETE FROM pat_parts_all"},
		{"stacked", "SELECT * FROM pat_parts_all; DROP TABLE pat_parts_all"},
		{"comment", "SELECT * FROM pat_parts_all -- hidden"},
		{"not select", "PRAGMA table_info(pat_parts_all)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fixture{}
			result := callTool(t, f.server(), "query", map[string]any{"sql": tt.sql})

			assert.True(t, result.IsError)
			assert.Equal(t, "query is not permitted", toolText(result))
			assert.Zero(t, f.executor.calls(), "rejected SQL must not reach the executor")
			require.Len(t, f.auditor.entries, 1)
			assert.True(t, f.auditor.entries[0].Rejected)
		})
	}
}

func TestQuery_ExecutorError(t *testing.T) {
	f := &fixture{executor: &mockExecutor{err: errors.New("no such table: parts")}}
	result := callTool(t, f.server(), "query", map[string]any{"sql": "SELECT * FROM parts"})
	assert.True(t, result.IsError)
	assert.Contains(t, toolText(result), "query failed")
}

func TestAsk(t *testing.T) {
	t.Run("runs validated SQL", func(t *testing.T) {
		f := &fixture{
			gen:      stubGenerator{sql: "SELECT COUNT(*) AS n FROM pat_parts_all"},
			executor: &mockExecutor{result: &port.QueryResult{Columns: []string{"n"}, Rows: []map[string]any{{"n": 5}}}},
		}
		result := callTool(t, f.server(), "ask", map[string]any{"question": "how many PAT parts?"})
		require.False(t, result.IsError, toolText(result))

		var answer service.AskResult
		require.NoError(t, json.Unmarshal([]byte(toolText(result)), &answer))
		assert.Equal(t, "SELECT COUNT(*) AS n FROM pat_parts_all", answer.SQL)
		assert.Equal(t, "ask", f.auditor.entries[0].Caller)
	})

	t.Run("generated write is refused", func(t *testing.T) {
		f := &fixture{gen: stubGenerator{sql: "DELETE FROM pat_parts_all"}}
		result := callTool(t, f.server(), "ask", map[string]any{"question": "remove everything"})
		assert.True(t, result.IsError)
		assert.Equal(t, "could not run query", toolText(result))
		assert.Zero(t, f.executor.calls())
	})
}

func TestCustomReport(t *testing.T) {
	explorer := &mockExplorer{details: map[string]*port.TableDetail{
		"pat_parts_all": {Name: "pat_parts_all", Columns: []port.ColumnInfo{{Name: "配件編號"}, {Name: "配件狀態"}}},
	}}

	t.Run("builds sections", func(t *testing.T) {
		f := &fixture{explorer: explorer}
		result := callTool(t, f.server(), "custom_report", map[string]any{
			"name":    "weekly",
			"tables":  []any{"pat_parts_all"},
			"columns": []any{"配件編號", "配件狀態"},
			"filter":  "配件狀態 = 'REPAIR'",
		})
		require.False(t, result.IsError, toolText(result))
		require.Equal(t, 1, f.executor.calls())
		assert.Contains(t, f.executor.sqls[0], `WHERE 配件狀態 = 'REPAIR'`)
	})

	t.Run("rejected filter aborts", func(t *testing.T) {
		f := &fixture{explorer: explorer}
		result := callTool(t, f.server(), "custom_report", map[string]any{
			"name":    "sneaky",
			"tables":  []any{"pat_parts_all"},
			"columns": []any{"配件編號"},
			"filter":  "1=1; DROP TABLE pat_parts_all",
		})
		assert.True(t, result.IsError)
		assert.Equal(t, "query is not permitted", toolText(result))
		assert.Zero(t, f.executor.calls())
	})

	t.Run("missing arguments", func(t *testing.T) {
		f := &fixture{explorer: explorer}
		result := callTool(t, f.server(), "custom_report", map[string]any{"name": "empty"})
		assert.True(t, result.IsError)
	})
}

func TestDashboardTools(t *testing.T) {
	t.Run("status distribution needs a known source", func(t *testing.T) {
		f := &fixture{}
		result := callTool(t, f.server(), "status_distribution", map[string]any{"source": "acme"})
		assert.True(t, result.IsError)
		assert.Contains(t, toolText(result), "unknown part source")
		assert.Zero(t, f.executor.calls())
	})

	t.Run("type statistics", func(t *testing.T) {
		f := &fixture{}
		result := callTool(t, f.server(), "type_statistics", map[string]any{"source": "KYEC"})
		require.False(t, result.IsError, toolText(result))
		assert.Contains(t, f.executor.sqls[0], "FROM kyec_parts_all")
		assert.Equal(t, "type_statistics", f.auditor.entries[0].Caller)
	})

	t.Run("change logs reject unknown window", func(t *testing.T) {
		f := &fixture{}
		result := callTool(t, f.server(), "change_logs", map[string]any{"window": "14"})
		assert.True(t, result.IsError)
	})

	t.Run("maintenance analysis runs cycle and summary", func(t *testing.T) {
		f := &fixture{}
		result := callTool(t, f.server(), "maintenance_analysis", nil)
		require.False(t, result.IsError, toolText(result))
		require.Len(t, f.executor.sqls, 2)
		assert.Contains(t, f.executor.sqls[0], "AS 維修類型")
		assert.Contains(t, f.executor.sqls[1], "AS 長期維修數")
	})

	t.Run("trend analysis reads both weekly tables", func(t *testing.T) {
		f := &fixture{}
		result := callTool(t, f.server(), "trend_analysis", nil)
		require.False(t, result.IsError, toolText(result))
		require.Len(t, f.executor.sqls, 1)
		assert.Contains(t, f.executor.sqls[0], "FROM kyec_stats_weekly")
	})

	t.Run("change log analysis", func(t *testing.T) {
		f := &fixture{}
		result := callTool(t, f.server(), "change_log_analysis", map[string]any{"window": "7"})
		require.False(t, result.IsError, toolText(result))
		require.Len(t, f.executor.sqls, 3)
		for _, sql := range f.executor.sqls {
			assert.Contains(t, sql, `"timestamp" >= @cutoff`)
		}
	})

	t.Run("change log analysis rejects unknown window", func(t *testing.T) {
		f := &fixture{}
		result := callTool(t, f.server(), "change_log_analysis", map[string]any{"window": "14"})
		assert.True(t, result.IsError)
		assert.Empty(t, f.executor.sqls)
	})

	t.Run("search parts", func(t *testing.T) {
		f := &fixture{}
		result := callTool(t, f.server(), "search_parts", map[string]any{"term": "ACME", "scope": "pat"})
		require.False(t, result.IsError, toolText(result))
		assert.Contains(t, f.executor.sqls[0], "FROM pat_parts_all")
		assert.NotContains(t, f.executor.sqls[0], "ACME", "search terms are bound, not inlined")
	})

	t.Run("unknown part", func(t *testing.T) {
		f := &fixture{}
		result := callTool(t, f.server(), "part_detail", map[string]any{"part_id": "P-404"})
		assert.True(t, result.IsError)
		assert.Equal(t, `part "P-404" not found`, toolText(result))
	})
}

func TestIsRejection(t *testing.T) {
	t.Parallel()
	assert.True(t, isRejection(mcp.NewToolResultError(msgRejected)))
	assert.False(t, isRejection(mcp.NewToolResultError("query failed: database is locked")))
}
