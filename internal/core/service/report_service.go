package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/port"
)

// DefaultReportRowLimit caps each section of a custom report.
const DefaultReportRowLimit = 1000

// ErrReportAborted wraps the rejection that stopped a custom report.
var ErrReportAborted = errors.New("report aborted")

// CustomReportRequest describes a report assembled from user choices.
// Filter is a free-form WHERE clause, typed by the user.
type CustomReportRequest struct {
	Name    string   `json:"name" validate:"required,max=100"`
	Tables  []string `json:"tables" validate:"required,min=1,max=10,dive,required"`
	Columns []string `json:"columns" validate:"required,min=1,dive,required"`
	Filter  string   `json:"filter,omitempty" validate:"max=2000"`
}

// ReportSection holds one table's part of a custom report.
type ReportSection struct {
	Table  string            `json:"table"`
	SQL    string            `json:"sql"`
	Result *port.QueryResult `json:"result"`
}

// CustomReport is the data of a custom report. Rendering it (spreadsheet,
// table) is left to the client.
type CustomReport struct {
	Name        string          `json:"name"`
	GeneratedAt time.Time       `json:"generated_at"`
	Sections    []ReportSection `json:"sections"`
}

// ReportService builds custom reports from user-selected tables, columns and filter.
type ReportService struct {
	explorer port.SchemaExplorer
	query    *QueryService
	logger   *slog.Logger
	rowLimit int
	now      func() time.Time
}

func NewReportService(explorer port.SchemaExplorer, query *QueryService, logger *slog.Logger, rowLimit int) *ReportService {
	if rowLimit <= 0 {
		rowLimit = DefaultReportRowLimit
	}
	return &ReportService{
		explorer: explorer,
		query:    query,
		logger:   logger,
		rowLimit: rowLimit,
		now:      time.Now,
	}
}

// BuildCustomReport assembles one SELECT per requested table, keeping the
// requested columns that table actually has. Every statement is validated
// before any of them runs; one rejection aborts the whole report.
func (s *ReportService) BuildCustomReport(ctx context.Context, req CustomReportRequest) (*CustomReport, error) {
	type planned struct {
		table string
		sql   string
	}
	var plan []planned

	for _, table := range req.Tables {
		detail, err := s.explorer.DescribeTable(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", table, err)
		}

		available := detail.ColumnNames()
		var selected []string
		for _, col := range req.Columns {
			if slices.Contains(available, col) && !slices.Contains(selected, col) {
				selected = append(selected, col)
			}
		}
		if len(selected) == 0 {
			s.logger.DebugContext(ctx, "custom report skips table without requested columns",
				slog.String("table", table))
			continue
		}

		sql := assembleReportSQL(detail.Name, selected, req.Filter, s.rowLimit)
		if err := s.query.Check(ctx, sql); err != nil {
			s.logger.WarnContext(ctx, "custom report rejected",
				slog.String("report", req.Name),
				slog.String("table", table),
				slog.String("reason", domain.RejectionReason(err)),
			)
			return nil, fmt.Errorf("%w: %w", ErrReportAborted, err)
		}
		plan = append(plan, planned{table: detail.Name, sql: sql})
	}

	report := &CustomReport{Name: req.Name, GeneratedAt: s.now().UTC()}
	for _, p := range plan {
		res, err := s.query.Query(ctx, p.sql, port.ExecOptions{MaxRows: s.rowLimit})
		if err != nil {
			return nil, fmt.Errorf("running report section %q: %w", p.table, err)
		}
		report.Sections = append(report.Sections, ReportSection{Table: p.table, SQL: p.sql, Result: res})
	}
	return report, nil
}

func assembleReportSQL(table string, columns []string, filter string, limit int) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quoteIdent(c)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(quoted, ", "))
	b.WriteString(" FROM ")
	b.WriteString(quoteIdent(table))
	if f := strings.TrimSpace(filter); f != "" {
		b.WriteString(" WHERE ")
		b.WriteString(f)
	}
	b.WriteString(" LIMIT ")
	b.WriteString(strconv.Itoa(limit))
	return b.String()
}

// quoteIdent double-quotes an identifier, which both SQLite and PostgreSQL accept.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
