package rest

import (
	"context"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/service"
)

type queryRequest struct {
	SQL string `json:"sql" validate:"required,max=20000"`
}

type askRequest struct {
	Question string `json:"question" validate:"required,max=2000"`
}

func (h *handler) listTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.svc.Explorer.ListTables(r.Context())
	h.respond(w, r, tables, err)
}

func (h *handler) describeTable(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Explorer.DescribeTable(r.Context(), pathParam(r, "table"))
	h.respond(w, r, detail, err)
}

func (h *handler) profileColumn(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.Explorer.ProfileColumn(r.Context(), pathParam(r, "table"), pathParam(r, "column"))
	h.respond(w, r, profile, err)
}

func (h *handler) query(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[queryRequest](r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.Query.Execute(service.WithCaller(r.Context(), "query"), req.SQL)
	h.respond(w, r, res, err)
}

func (h *handler) ask(w http.ResponseWriter, r *http.Request) {
	if !h.svc.Ask.Enabled() {
		h.writeError(w, r, service.ErrGeneratorUnavailable)
		return
	}
	req, err := decodeJSON[askRequest](r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	answer, err := h.svc.Ask.Ask(service.WithCaller(r.Context(), "ask"), req.Question)
	h.respond(w, r, answer, err)
}

func (h *handler) customReport(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[service.CustomReportRequest](r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	report, err := h.svc.Reports.BuildCustomReport(service.WithCaller(r.Context(), "custom_report"), req)
	h.respond(w, r, report, err)
}

func (h *handler) overview(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard.Overview(service.WithCaller(r.Context(), "overview"))
	h.respond(w, r, stats, err)
}

func (h *handler) statusDistribution(w http.ResponseWriter, r *http.Request) {
	h.bySource(w, r, "status_distribution", func(ctx context.Context, src domain.PartSource) (any, error) {
		return h.svc.Dashboard.StatusDistribution(ctx, src)
	})
}

func (h *handler) typeStatistics(w http.ResponseWriter, r *http.Request) {
	h.bySource(w, r, "type_statistics", func(ctx context.Context, src domain.PartSource) (any, error) {
		return h.svc.Dashboard.TypeStatistics(ctx, src)
	})
}

func (h *handler) statusTrend(w http.ResponseWriter, r *http.Request) {
	h.bySource(w, r, "status_trend", func(ctx context.Context, src domain.PartSource) (any, error) {
		return h.svc.Dashboard.StatusTrend(ctx, src)
	})
}

func (h *handler) bySource(w http.ResponseWriter, r *http.Request, caller string, run func(context.Context, domain.PartSource) (any, error)) {
	src, err := domain.ParsePartSource(pathParam(r, "source"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := run(service.WithCaller(r.Context(), caller), src)
	h.respond(w, r, res, err)
}

func (h *handler) customerStatistics(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Dashboard.CustomerStatistics(service.WithCaller(r.Context(), "customer_statistics"))
	h.respond(w, r, res, err)
}

func (h *handler) maintenanceCycle(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Dashboard.MaintenanceCycle(service.WithCaller(r.Context(), "maintenance_cycle"))
	h.respond(w, r, res, err)
}

func (h *handler) changeLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	window, err := domain.ParseChangeWindow(q.Get("window"))
	if err != nil {
		h.writeError(w, r, &badRequest{msg: err.Error()})
		return
	}
	filter := domain.ChangeLogFilter{
		Table:     q.Get("table"),
		Operation: q.Get("operation"),
		Window:    window,
		Search:    q.Get("search"),
	}
	res, err := h.svc.Dashboard.ChangeLogs(service.WithCaller(r.Context(), "change_logs"), filter)
	h.respond(w, r, res, err)
}

func (h *handler) maintenanceAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Dashboard.MaintenanceAnalysis(service.WithCaller(r.Context(), "maintenance_analysis"))
	h.respond(w, r, res, err)
}

func (h *handler) trendAnalysis(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Dashboard.TrendAnalysis(service.WithCaller(r.Context(), "trend_analysis"))
	h.respond(w, r, res, err)
}

func (h *handler) changeLogAnalysis(w http.ResponseWriter, r *http.Request) {
	window, err := domain.ParseAnalysisWindow(r.URL.Query().Get("window"))
	if err != nil {
		h.writeError(w, r, &badRequest{msg: err.Error()})
		return
	}
	res, err := h.svc.Dashboard.ChangeLogAnalysis(service.WithCaller(r.Context(), "change_log_analysis"), window)
	h.respond(w, r, res, err)
}

func (h *handler) searchParts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	term := q.Get("term")
	if term == "" {
		h.writeError(w, r, badRequestf("term is required"))
		return
	}
	scope, err := domain.ParseSearchScope(q.Get("scope"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.svc.Dashboard.SearchParts(service.WithCaller(r.Context(), "search_parts"), term, scope)
	h.respond(w, r, res, err)
}

func (h *handler) partDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Dashboard.PartDetail(service.WithCaller(r.Context(), "part_detail"), pathParam(r, "id"))
	h.respond(w, r, detail, err)
}

func (h *handler) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// pathParam returns a decoded URL parameter. chi matches on the decoded path
// unless the request carries a raw path (escaped slashes and the like), in
// which case the parameter is still escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if unescaped, err := url.PathUnescape(v); err == nil {
		return unescaped
	}
	return v
}
