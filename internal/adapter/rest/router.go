// Package rest serves the dashboard API over HTTP.
package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/guillermoBallester/partscope/internal/core/port"
	"github.com/guillermoBallester/partscope/internal/core/service"
)

// Services bundles the core services behind the API. Ask may be nil.
type Services struct {
	Explorer  *service.ExplorerService
	Query     *service.QueryService
	Dashboard *service.DashboardService
	Reports   *service.ReportService
	Ask       *service.AskService
}

// Options configures cross-cutting behaviour of the router.
type Options struct {
	// CORSOrigins lists allowed browser origins. Empty disables CORS headers.
	CORSOrigins     []string
	Logger          *slog.Logger
	Instrumentation port.Instrumentation
	// APIMiddleware wraps every /api/v1 route, e.g. authentication.
	APIMiddleware []func(http.Handler) http.Handler
}

type handler struct {
	svc    Services
	logger *slog.Logger
}

// NewRouter returns a router with every dashboard route mounted under /api/v1.
func NewRouter(svc Services, opts Options) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	inst := opts.Instrumentation
	if inst == nil {
		inst = port.NoopInstrumentation{}
	}
	h := &handler{svc: svc, logger: logger}

	r := chi.NewRouter()
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(requestLogger(logger, inst))
		r.Use(opts.APIMiddleware...)

		r.Get("/tables", h.listTables)
		r.Get("/tables/{table}", h.describeTable)
		r.Get("/tables/{table}/columns/{column}/profile", h.profileColumn)

		r.Post("/query", h.query)
		r.Post("/ask", h.ask)
		r.Post("/reports/custom", h.customReport)

		r.Get("/overview", h.overview)
		r.Get("/sources/{source}/status-distribution", h.statusDistribution)
		r.Get("/sources/{source}/type-statistics", h.typeStatistics)
		r.Get("/sources/{source}/status-trend", h.statusTrend)
		r.Get("/customer-statistics", h.customerStatistics)
		r.Get("/maintenance-cycle", h.maintenanceCycle)
		r.Get("/change-logs", h.changeLogs)
		r.Get("/analysis/maintenance", h.maintenanceAnalysis)
		r.Get("/analysis/trend", h.trendAnalysis)
		r.Get("/analysis/change-log", h.changeLogAnalysis)
		r.Get("/parts/search", h.searchParts)
		r.Get("/parts/{id}", h.partDetail)
	})

	return r
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// requestLogger logs each API request with its route pattern and records
// its duration.
func requestLogger(logger *slog.Logger, inst port.Instrumentation) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			duration := time.Since(start)
			route := routePattern(r)
			level := slog.LevelInfo
			if rec.status >= http.StatusInternalServerError {
				level = slog.LevelError
			}
			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("http.request.method", r.Method),
				slog.String("http.route", route),
				slog.Int("http.response.status_code", rec.status),
				slog.Duration("duration", duration),
			)
			inst.RecordCallDuration(r.Context(), "http", r.Method+" "+route, float64(duration.Milliseconds()))
		})
	}
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return r.URL.Path
}
