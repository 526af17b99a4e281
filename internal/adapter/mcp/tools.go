package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server metadata
const serverName = "partscope"

// msgRejected is the only thing a caller learns about a refused statement.
var msgRejected = domain.ErrRejected.Error()

// Tool descriptions
const (
	descListTables = "List the tables and views in the parts database with row counts, column counts " +
		"and descriptions. The dashboard relies on pat_parts_all, kyec_parts_all, pat_stats_weekly, " +
		"kyec_stats_weekly and table_change_log."

	descDescribeTable = "Describe a table: columns with types, nullability, defaults, primary keys, " +
		"descriptions and indexes. Use this before writing a query or a custom report."

	descProfileColumn = "Profile one column: row count, null fraction, distinct values and a cardinality " +
		"class (unique, high, medium, low). Useful to decide what to GROUP BY."

	descQuery = "Run a single read-only SELECT against the parts database and return columns and rows. " +
		"Statements containing DROP, DELETE, INSERT, UPDATE, ALTER, CREATE, TRUNCATE or EXEC, " +
		"inline -- comments, or more than one statement are refused. A row limit and timeout are enforced."

	descAsk = "Answer a question in natural language. The question is translated to SQL, the SQL is " +
		"checked by the same read-only validator as the query tool, and the rows are returned with the SQL used."

	descCustomReport = "Build a report over several tables: for each table, the requested columns it has " +
		"are selected with an optional WHERE filter. If any assembled statement is refused, no section runs."

	descOverview = "Headline counts across PAT and KYEC: total parts, parts in repair, in production and borrowed."

	descStatusDistribution = "Number of parts per status for one source, largest first."

	descTypeStatistics = "Per part type totals for one source, split into production, repair and borrowed."

	descCustomerStatistics = "Per customer totals across both sources with repair and borrowed counts."

	descStatusTrend = "Weekly series of production, in-house repair and customer repair counts for one source."

	descMaintenanceCycle = "PAT parts that have spent time in repair, longest repair first."

	descMaintenanceAnalysis = "Repair cycle of every PAT part that has been in repair, classed as short (up to 7 days), " +
		"medium (up to 30) or long, plus a summary with the count, average, shortest and longest repair."

	descTrendAnalysis = "Weekly totals of both sources combined with customer and in-house repair rates " +
		"as percentages of all parts."

	descChangeLogs = "Recent change-log entries, newest first, at most 1000. Filters are optional."

	descChangeLogAnalysis = "Change-log activity over a window: changes per day and operation, per-user activity " +
		"and per-table change frequency. The window defaults to 30 days."

	descSearchParts = "Search parts whose id, type or customer contains the term."

	descPartDetail = "Everything known about one part id: its PAT row, its KYEC row and its change history."

	descSourceParam = "Part source: \"pat\" or \"kyec\""
)

func RegisterTools(s *server.MCPServer, svc Services) {
	s.AddTool(
		mcp.NewTool("list_tables",
			mcp.WithDescription(descListTables),
			mcp.WithReadOnlyHintAnnotation(true),
		),
		listTablesHandler(svc.Explorer),
	)

	s.AddTool(
		mcp.NewTool("describe_table",
			mcp.WithDescription(descDescribeTable),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("table_name",
				mcp.Required(),
				mcp.Description("Name of the table to describe"),
			),
		),
		describeTableHandler(svc.Explorer),
	)

	s.AddTool(
		mcp.NewTool("profile_column",
			mcp.WithDescription(descProfileColumn),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("table_name", mcp.Required(), mcp.Description("Table holding the column")),
			mcp.WithString("column", mcp.Required(), mcp.Description("Column to profile")),
		),
		profileColumnHandler(svc.Explorer),
	)

	s.AddTool(
		mcp.NewTool("query",
			mcp.WithDescription(descQuery),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("sql",
				mcp.Required(),
				mcp.Description("SQL query to execute (a single SELECT)"),
			),
		),
		queryHandler(svc.Query),
	)

	if svc.Ask.Enabled() {
		s.AddTool(
			mcp.NewTool("ask",
				mcp.WithDescription(descAsk),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("question", mcp.Required(), mcp.Description("Question about the parts data")),
			),
			askHandler(svc.Ask),
		)
	}

	if svc.Reports != nil {
		s.AddTool(
			mcp.NewTool("custom_report",
				mcp.WithDescription(descCustomReport),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("name", mcp.Required(), mcp.Description("Report title")),
				mcp.WithArray("tables", mcp.Required(), mcp.Description("Tables to report on"), mcp.WithStringItems()),
				mcp.WithArray("columns", mcp.Required(), mcp.Description("Columns to include where present"), mcp.WithStringItems()),
				mcp.WithString("filter", mcp.Description("Optional WHERE condition applied to every table")),
			),
			customReportHandler(svc.Reports),
		)
	}

	if svc.Dashboard != nil {
		registerDashboardTools(s, svc.Dashboard)
	}
}

func registerDashboardTools(s *server.MCPServer, dash *service.DashboardService) {
	s.AddTool(
		mcp.NewTool("overview", mcp.WithDescription(descOverview), mcp.WithReadOnlyHintAnnotation(true)),
		overviewHandler(dash),
	)

	for _, t := range []struct {
		name string
		desc string
		run  func(context.Context, domain.PartSource) (any, error)
	}{
		{"status_distribution", descStatusDistribution, func(ctx context.Context, src domain.PartSource) (any, error) {
			return dash.StatusDistribution(ctx, src)
		}},
		{"type_statistics", descTypeStatistics, func(ctx context.Context, src domain.PartSource) (any, error) {
			return dash.TypeStatistics(ctx, src)
		}},
		{"status_trend", descStatusTrend, func(ctx context.Context, src domain.PartSource) (any, error) {
			return dash.StatusTrend(ctx, src)
		}},
	} {
		s.AddTool(
			mcp.NewTool(t.name,
				mcp.WithDescription(t.desc),
				mcp.WithReadOnlyHintAnnotation(true),
				mcp.WithString("source", mcp.Required(), mcp.Description(descSourceParam), mcp.Enum("pat", "kyec")),
			),
			sourceHandler(t.name, t.run),
		)
	}

	s.AddTool(
		mcp.NewTool("customer_statistics", mcp.WithDescription(descCustomerStatistics), mcp.WithReadOnlyHintAnnotation(true)),
		plainHandler("customer_statistics", func(ctx context.Context) (any, error) { return dash.CustomerStatistics(ctx) }),
	)

	s.AddTool(
		mcp.NewTool("maintenance_cycle", mcp.WithDescription(descMaintenanceCycle), mcp.WithReadOnlyHintAnnotation(true)),
		plainHandler("maintenance_cycle", func(ctx context.Context) (any, error) { return dash.MaintenanceCycle(ctx) }),
	)

	s.AddTool(
		mcp.NewTool("maintenance_analysis", mcp.WithDescription(descMaintenanceAnalysis), mcp.WithReadOnlyHintAnnotation(true)),
		plainHandler("maintenance_analysis", func(ctx context.Context) (any, error) { return dash.MaintenanceAnalysis(ctx) }),
	)

	s.AddTool(
		mcp.NewTool("trend_analysis", mcp.WithDescription(descTrendAnalysis), mcp.WithReadOnlyHintAnnotation(true)),
		plainHandler("trend_analysis", func(ctx context.Context) (any, error) { return dash.TrendAnalysis(ctx) }),
	)

	s.AddTool(
		mcp.NewTool("change_logs",
			mcp.WithDescription(descChangeLogs),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("table_name", mcp.Description("Only changes to this table")),
			mcp.WithString("operation", mcp.Description("Only this operation, e.g. INSERT, UPDATE or DELETE")),
			mcp.WithString("window", mcp.Description("Days to look back"), mcp.Enum("all", "7", "30", "90")),
			mcp.WithString("search", mcp.Description("Substring of the row key, old value or new value")),
		),
		changeLogsHandler(dash),
	)

	s.AddTool(
		mcp.NewTool("change_log_analysis",
			mcp.WithDescription(descChangeLogAnalysis),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("window", mcp.Description("Days to look back"), mcp.Enum("all", "7", "30", "90")),
		),
		changeLogAnalysisHandler(dash),
	)

	s.AddTool(
		mcp.NewTool("search_parts",
			mcp.WithDescription(descSearchParts),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("term", mcp.Required(), mcp.Description("Search term")),
			mcp.WithString("scope", mcp.Description("Where to search"), mcp.Enum("all", "pat", "kyec")),
		),
		searchPartsHandler(dash),
	)

	s.AddTool(
		mcp.NewTool("part_detail",
			mcp.WithDescription(descPartDetail),
			mcp.WithReadOnlyHintAnnotation(true),
			mcp.WithString("part_id", mcp.Required(), mcp.Description("Part id (配件編號)")),
		),
		partDetailHandler(dash),
	)
}

func listTablesHandler(explorer *service.ExplorerService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tables, err := explorer.ListTables(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list tables: %v", err)), nil
		}
		return jsonResult(tables)
	}
}

func describeTableHandler(explorer *service.ExplorerService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName := stringArg(request, "table_name")
		if tableName == "" {
			return mcp.NewToolResultError("table_name is required"), nil
		}

		detail, err := explorer.DescribeTable(ctx, tableName)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to describe table: %v", err)), nil
		}
		return jsonResult(detail)
	}
}

func profileColumnHandler(explorer *service.ExplorerService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tableName := stringArg(request, "table_name")
		column := stringArg(request, "column")
		if tableName == "" || column == "" {
			return mcp.NewToolResultError("table_name and column are required"), nil
		}

		profile, err := explorer.ProfileColumn(ctx, tableName, column)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to profile column: %v", err)), nil
		}
		return jsonResult(profile)
	}
}

func queryHandler(query *service.QueryService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql := stringArg(request, "sql")
		if sql == "" {
			return mcp.NewToolResultError("sql is required"), nil
		}

		ctx = service.WithCaller(ctx, "query")
		results, err := query.Execute(ctx, sql)
		if err != nil {
			return errorResult("query failed", err), nil
		}
		return jsonResult(results)
	}
}

func askHandler(ask *service.AskService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question := stringArg(request, "question")
		if question == "" {
			return mcp.NewToolResultError("question is required"), nil
		}

		ctx = service.WithCaller(ctx, "ask")
		answer, err := ask.Ask(ctx, question)
		if err != nil {
			if errors.Is(err, service.ErrCouldNotRunQuery) {
				return mcp.NewToolResultError(service.ErrCouldNotRunQuery.Error()), nil
			}
			return errorResult("ask failed", err), nil
		}
		return jsonResult(answer)
	}
}

func customReportHandler(reports *service.ReportService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		req := service.CustomReportRequest{
			Name:    stringArg(request, "name"),
			Tables:  stringsArg(request, "tables"),
			Columns: stringsArg(request, "columns"),
			Filter:  stringArg(request, "filter"),
		}
		if req.Name == "" || len(req.Tables) == 0 || len(req.Columns) == 0 {
			return mcp.NewToolResultError("name, tables and columns are required"), nil
		}

		ctx = service.WithCaller(ctx, "custom_report")
		report, err := reports.BuildCustomReport(ctx, req)
		if err != nil {
			return errorResult("report failed", err), nil
		}
		return jsonResult(report)
	}
}

func overviewHandler(dash *service.DashboardService) server.ToolHandlerFunc {
	return plainHandler("overview", func(ctx context.Context) (any, error) { return dash.Overview(ctx) })
}

func plainHandler(name string, run func(context.Context) (any, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		res, err := run(service.WithCaller(ctx, name))
		if err != nil {
			return errorResult(name+" failed", err), nil
		}
		return jsonResult(res)
	}
}

func sourceHandler(name string, run func(context.Context, domain.PartSource) (any, error)) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		src, err := domain.ParsePartSource(stringArg(request, "source"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := run(service.WithCaller(ctx, name), src)
		if err != nil {
			return errorResult(name+" failed", err), nil
		}
		return jsonResult(res)
	}
}

func changeLogsHandler(dash *service.DashboardService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		window, err := domain.ParseChangeWindow(stringArg(request, "window"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		filter := domain.ChangeLogFilter{
			Table:     stringArg(request, "table_name"),
			Operation: stringArg(request, "operation"),
			Window:    window,
			Search:    stringArg(request, "search"),
		}
		res, err := dash.ChangeLogs(service.WithCaller(ctx, "change_logs"), filter)
		if err != nil {
			return errorResult("change_logs failed", err), nil
		}
		return jsonResult(res)
	}
}

func changeLogAnalysisHandler(dash *service.DashboardService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		window, err := domain.ParseAnalysisWindow(stringArg(request, "window"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := dash.ChangeLogAnalysis(service.WithCaller(ctx, "change_log_analysis"), window)
		if err != nil {
			return errorResult("change_log_analysis failed", err), nil
		}
		return jsonResult(res)
	}
}

func searchPartsHandler(dash *service.DashboardService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		term := stringArg(request, "term")
		if term == "" {
			return mcp.NewToolResultError("term is required"), nil
		}
		scope, err := domain.ParseSearchScope(stringArg(request, "scope"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		res, err := dash.SearchParts(service.WithCaller(ctx, "search_parts"), term, scope)
		if err != nil {
			return errorResult("search failed", err), nil
		}
		return jsonResult(res)
	}
}

func partDetailHandler(dash *service.DashboardService) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		partID := stringArg(request, "part_id")
		if partID == "" {
			return mcp.NewToolResultError("part_id is required"), nil
		}

		detail, err := dash.PartDetail(service.WithCaller(ctx, "part_detail"), partID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return mcp.NewToolResultError(fmt.Sprintf("part %q not found", partID)), nil
			}
			return errorResult("part_detail failed", err), nil
		}
		return jsonResult(detail)
	}
}

// errorResult turns a service error into a tool error. Rejections get the
// generic message so neither the statement nor the rule that caught it leaks.
func errorResult(prefix string, err error) *mcp.CallToolResult {
	if domain.IsRejected(err) {
		return mcp.NewToolResultError(msgRejected)
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s: %v", prefix, err))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(request mcp.CallToolRequest, key string) string {
	s, _ := request.GetArguments()[key].(string)
	return s
}

func stringsArg(request mcp.CallToolRequest, key string) []string {
	raw, _ := request.GetArguments()[key].([]any)
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}
