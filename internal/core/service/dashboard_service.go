package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/port"
)

// statementRunner is the slice of QueryService the read services need.
type statementRunner interface {
	Query(ctx context.Context, sql string, opts port.ExecOptions) (*port.QueryResult, error)
}

// DashboardService answers the fixed dashboard views.
type DashboardService struct {
	query statementRunner
	now   func() time.Time
}

func NewDashboardService(query *QueryService) *DashboardService {
	return &DashboardService{query: query, now: time.Now}
}

// PartDetail gathers everything known about one part id.
type PartDetail struct {
	PartID  string            `json:"part_id"`
	PAT     map[string]any    `json:"pat,omitempty"`
	KYEC    map[string]any    `json:"kyec,omitempty"`
	History *port.QueryResult `json:"history"`
}

// Overview returns the headline counts across both sources.
func (s *DashboardService) Overview(ctx context.Context) (*domain.OverviewStats, error) {
	total, err := s.count(ctx, queryCountAllParts, nil)
	if err != nil {
		return nil, fmt.Errorf("counting parts: %w", err)
	}

	pat, kyec := domain.SourcePAT.Statuses(), domain.SourceKYEC.Statuses()
	repair, err := s.count(ctx, queryCountPartsByStatus, statusPair(
		pat.CustomerRepair, pat.InHouseRepair, kyec.CustomerRepair, kyec.InHouseRepair))
	if err != nil {
		return nil, fmt.Errorf("counting parts in repair: %w", err)
	}
	production, err := s.count(ctx, queryCountPartsByStatus, statusPair(
		pat.Production, pat.Production, kyec.Production, kyec.Production))
	if err != nil {
		return nil, fmt.Errorf("counting parts in production: %w", err)
	}
	borrowed, err := s.count(ctx, queryCountPartsByStatus, statusPair(
		pat.Borrowed, pat.Borrowed, kyec.Borrowed, kyec.Borrowed))
	if err != nil {
		return nil, fmt.Errorf("counting borrowed parts: %w", err)
	}

	return &domain.OverviewStats{
		TotalParts:      total,
		RepairParts:     repair,
		ProductionParts: production,
		BorrowedParts:   borrowed,
	}, nil
}

func statusPair(pat1, pat2, kyec1, kyec2 string) map[string]any {
	return map[string]any{"pat_1": pat1, "pat_2": pat2, "kyec_1": kyec1, "kyec_2": kyec2}
}

// StatusDistribution counts parts per status for one source.
func (s *DashboardService) StatusDistribution(ctx context.Context, source domain.PartSource) (*port.QueryResult, error) {
	return s.query.Query(ctx, fmt.Sprintf(queryStatusDistribution, source.Table()), port.ExecOptions{})
}

// TypeStatistics breaks each part type down by status bucket for one source.
func (s *DashboardService) TypeStatistics(ctx context.Context, source domain.PartSource) (*port.QueryResult, error) {
	v := source.Statuses()
	return s.query.Query(ctx, fmt.Sprintf(queryTypeStatistics, source.Table()), port.ExecOptions{
		Args: map[string]any{
			"production":      v.Production,
			"in_house_repair": v.InHouseRepair,
			"customer_repair": v.CustomerRepair,
			"borrowed":        v.Borrowed,
		},
	})
}

// CustomerStatistics counts parts, parts in repair and borrowed parts per customer.
func (s *DashboardService) CustomerStatistics(ctx context.Context) (*port.QueryResult, error) {
	pat, kyec := domain.SourcePAT.Statuses(), domain.SourceKYEC.Statuses()
	return s.query.Query(ctx, queryCustomerStatistics, port.ExecOptions{
		Args: map[string]any{
			"pat_repair":      pat.InHouseRepair,
			"pat_out_repair":  pat.CustomerRepair,
			"kyec_repair":     kyec.InHouseRepair,
			"kyec_out_repair": kyec.CustomerRepair,
			"pat_borrow":      pat.Borrowed,
			"kyec_borrow":     kyec.Borrowed,
		},
	})
}

// StatusTrend returns weekly production and repair totals for one source.
func (s *DashboardService) StatusTrend(ctx context.Context, source domain.PartSource) (*port.QueryResult, error) {
	return s.query.Query(ctx, fmt.Sprintf(queryStatusTrend, source.WeeklyTable()), port.ExecOptions{})
}

// MaintenanceCycle lists PAT parts that spent time in repair, longest first,
// each classed as a short, medium or long repair.
func (s *DashboardService) MaintenanceCycle(ctx context.Context) (*port.QueryResult, error) {
	return s.query.Query(ctx, queryMaintenanceCycle, port.ExecOptions{Args: repairClassArgs()})
}

func repairClassArgs() map[string]any {
	return map[string]any{
		"short_max":  domain.RepairShortMaxDays,
		"medium_max": domain.RepairMediumMaxDays,
		"short":      domain.RepairShort,
		"medium":     domain.RepairMedium,
		"long":       domain.RepairLong,
	}
}

// MaintenanceAnalysis is the per-part repair cycle and its summary row.
type MaintenanceAnalysis struct {
	Cycle   *port.QueryResult `json:"maintenance_cycle"`
	Summary *port.QueryResult `json:"maintenance_summary"`
}

// MaintenanceAnalysis returns the repair cycle list together with the count,
// average, extremes and class counts of repair durations.
func (s *DashboardService) MaintenanceAnalysis(ctx context.Context) (*MaintenanceAnalysis, error) {
	cycle, err := s.MaintenanceCycle(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading maintenance cycle: %w", err)
	}
	summary, err := s.query.Query(ctx, queryMaintenanceSummary, port.ExecOptions{Args: repairClassArgs()})
	if err != nil {
		return nil, fmt.Errorf("summarising maintenance: %w", err)
	}
	return &MaintenanceAnalysis{Cycle: cycle, Summary: summary}, nil
}

// TrendAnalysis holds the weekly series of both sources combined.
type TrendAnalysis struct {
	WeeklyTrend *port.QueryResult `json:"weekly_trend"`
}

// TrendAnalysis sums the weekly statistics of both sources per week and adds
// the customer and in-house repair rates as percentages of all parts.
func (s *DashboardService) TrendAnalysis(ctx context.Context) (*TrendAnalysis, error) {
	weekly, err := s.query.Query(ctx, queryWeeklyTrend, port.ExecOptions{})
	if err != nil {
		return nil, fmt.Errorf("loading weekly trend: %w", err)
	}
	return &TrendAnalysis{WeeklyTrend: weekly}, nil
}

// ChangeLogAnalysis summarises change-log activity within a window.
type ChangeLogAnalysis struct {
	Window          domain.ChangeWindow `json:"window_days"`
	RecentChanges   *port.QueryResult   `json:"recent_changes"`
	UserActivity    *port.QueryResult   `json:"user_activity"`
	ChangeFrequency *port.QueryResult   `json:"change_frequency"`
}

// ChangeLogAnalysis returns daily change counts per operation, per-user
// activity and per-table change frequency for entries inside window.
func (s *DashboardService) ChangeLogAnalysis(ctx context.Context, window domain.ChangeWindow) (*ChangeLogAnalysis, error) {
	cond, args := windowCondition(window, s.now())
	out := &ChangeLogAnalysis{Window: window}

	views := []struct {
		name string
		sql  string
		dst  **port.QueryResult
	}{
		{"recent changes", queryRecentChanges, &out.RecentChanges},
		{"user activity", queryUserActivity, &out.UserActivity},
		{"change frequency", queryChangeFrequency, &out.ChangeFrequency},
	}
	for _, v := range views {
		res, err := s.query.Query(ctx, fmt.Sprintf(v.sql, cond), port.ExecOptions{Args: args})
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", v.name, err)
		}
		*v.dst = res
	}
	return out, nil
}

// windowCondition returns the WHERE condition selecting change-log entries
// inside window, with its arguments.
func windowCondition(window domain.ChangeWindow, now time.Time) (string, map[string]any) {
	cutoff, ok := window.Cutoff(now)
	if !ok {
		return "1=1", nil
	}
	return `"timestamp" >= @cutoff`, map[string]any{"cutoff": cutoff}
}

// ChangeLogs returns change-log entries matching f, newest first.
func (s *DashboardService) ChangeLogs(ctx context.Context, f domain.ChangeLogFilter) (*port.QueryResult, error) {
	sql, args := changeLogStatement(f, s.now())
	return s.query.Query(ctx, sql, port.ExecOptions{Args: args, MaxRows: domain.ChangeLogMaxRows})
}

func changeLogStatement(f domain.ChangeLogFilter, now time.Time) (string, map[string]any) {
	var b strings.Builder
	b.WriteString(queryChangeLogBase)
	args := make(map[string]any)

	if f.Table != "" {
		b.WriteString(" AND table_name = @table")
		args["table"] = f.Table
	}
	if f.Operation != "" {
		b.WriteString(" AND operation = @operation")
		args["operation"] = f.Operation
	}
	if cutoff, ok := f.Window.Cutoff(now); ok {
		// Timestamps are stored as ISO-8601 text, so a string compare against a date prefix works.
		b.WriteString(` AND "timestamp" >= @cutoff`)
		args["cutoff"] = cutoff
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		b.WriteString(" AND (row_key LIKE @search OR old_value LIKE @search OR new_value LIKE @search)")
		args["search"] = "%" + term + "%"
	}
	b.WriteString(` ORDER BY "timestamp" DESC LIMIT ` + strconv.Itoa(domain.ChangeLogMaxRows))
	return b.String(), args
}

// SearchParts finds parts whose id, name or customer contains term.
func (s *DashboardService) SearchParts(ctx context.Context, term string, scope domain.SearchScope) (*port.QueryResult, error) {
	var sql string
	switch scope {
	case domain.ScopePAT:
		sql = querySearchPAT
	case domain.ScopeKYEC:
		sql = querySearchKYEC
	default:
		sql = querySearchAll
	}
	return s.query.Query(ctx, sql, port.ExecOptions{
		Args: map[string]any{"pattern": "%" + strings.TrimSpace(term) + "%"},
	})
}

// PartDetail returns the part's row in each source and its change history.
// It fails with domain.ErrNotFound when neither source knows the id.
func (s *DashboardService) PartDetail(ctx context.Context, partID string) (*PartDetail, error) {
	args := map[string]any{"id": partID}
	detail := &PartDetail{PartID: partID}

	for _, src := range []domain.PartSource{domain.SourcePAT, domain.SourceKYEC} {
		res, err := s.query.Query(ctx, fmt.Sprintf(queryPartByID, src.Table()), port.ExecOptions{Args: args, MaxRows: 1})
		if err != nil {
			return nil, fmt.Errorf("looking up %s part: %w", src, err)
		}
		if res.Len() == 0 {
			continue
		}
		if src == domain.SourcePAT {
			detail.PAT = res.Rows[0]
		} else {
			detail.KYEC = res.Rows[0]
		}
	}
	if detail.PAT == nil && detail.KYEC == nil {
		return nil, fmt.Errorf("part %q: %w", partID, domain.ErrNotFound)
	}

	history, err := s.query.Query(ctx, queryPartHistory, port.ExecOptions{Args: args, MaxRows: domain.ChangeLogMaxRows})
	if err != nil {
		return nil, fmt.Errorf("loading part history: %w", err)
	}
	detail.History = history
	return detail, nil
}

func (s *DashboardService) count(ctx context.Context, sql string, args map[string]any) (int64, error) {
	res, err := s.query.Query(ctx, sql, port.ExecOptions{Args: args})
	if err != nil {
		return 0, err
	}
	if res.Len() == 0 {
		return 0, nil
	}
	return toInt64(res.Rows[0]["count"])
}

// toInt64 normalises the integer types drivers return for COUNT(*).
func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int32:
		return int64(n), nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	}
	return 0, fmt.Errorf("unexpected count type %T", v)
}
