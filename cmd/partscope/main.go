package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/guillermoBallester/partscope/internal/adapter/mcp"
	"github.com/guillermoBallester/partscope/internal/adapter/nl2sql"
	"github.com/guillermoBallester/partscope/internal/adapter/policy"
	"github.com/guillermoBallester/partscope/internal/adapter/postgres"
	"github.com/guillermoBallester/partscope/internal/adapter/rest"
	"github.com/guillermoBallester/partscope/internal/adapter/sqlite"
	"github.com/guillermoBallester/partscope/internal/audit"
	"github.com/guillermoBallester/partscope/internal/config"
	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/port"
	"github.com/guillermoBallester/partscope/internal/core/service"
	"github.com/guillermoBallester/partscope/internal/telemetry"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/trace"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	overrides, err := parseFlags(os.Args[1:])
	if err != nil {
		return err
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr, stdout is reserved for the MCP stdio transport.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	logger.Info("starting partscope",
		slog.String("version", version),
		slog.String("database", redactDSN(cfg.DatabaseURL)),
		slog.String("backend", string(cfg.Backend())),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.Int("max_rows", cfg.MaxRows),
		slog.String("query_timeout", cfg.QueryTimeout.String()),
		slog.String("transport", cfg.Transport),
		slog.Bool("nl2sql", cfg.NL2SQLEnabled()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Telemetry
	tracer, inst := trace.Tracer(telemetry.NoopTracer()), port.Instrumentation(telemetry.NoopInstruments())
	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, telemetry.Resource{
			Service:   "partscope",
			Version:   version,
			DBSystem:  dbSystemName(cfg.Backend()),
			Transport: cfg.Transport,
		})
		if err != nil {
			return fmt.Errorf("initializing telemetry: %w", err)
		}
		defer func() {
			if err := provider.Shutdown(context.Background()); err != nil {
				logger.Error("telemetry shutdown", slog.String("error.message", err.Error()))
			}
		}()
		tracer, inst = telemetry.Tracer(), telemetry.NewInstruments()
		logger.Info("opentelemetry enabled")
	}

	// Adapters
	db, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.close()
	logger.Info("database pool connected", slog.String("db.system", db.system))

	var pol *policy.Policy
	explorer := db.explorer
	if cfg.PolicyFile != "" {
		pol, err = policy.LoadFromFile(cfg.PolicyFile)
		if err != nil {
			return fmt.Errorf("loading policy: %w", err)
		}
		explorer = policy.NewPolicyExplorer(explorer, pol)
		logger.Info("policy loaded", slog.String("file", cfg.PolicyFile))
	}

	var auditor port.QueryAuditor = port.NoopAuditor{}
	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditLog, logger)
		if err != nil {
			return fmt.Errorf("opening audit log: %w", err)
		}
		auditor = fa
		logger.Info("audit log enabled", slog.String("file", cfg.AuditLog))
	}
	defer func() { _ = auditor.Close() }()

	// Services
	querySvc := service.NewQueryService(domain.NewSelectGate(), db.executor, auditor, logger,
		service.WithMasks(pol.Masks()),
		service.WithTracer(tracer),
		service.WithInstrumentation(inst),
		service.WithDBSystem(db.system),
	)
	explorerSvc := service.NewExplorerService(explorer, pol.Required()...)

	var generator port.SQLGenerator
	if cfg.NL2SQLEnabled() {
		var notes []string
		if pol != nil {
			notes = pol.TranslatorNotes
		}
		generator = nl2sql.NewClient(nl2sql.Config{
			Endpoint: cfg.NL2SQLEndpoint,
			APIKey:   cfg.NL2SQLAPIKey,
			Model:    cfg.NL2SQLModel,
			Timeout:  cfg.NL2SQLTimeout,
			Notes:    notes,
		}, explorer, logger)
	}

	dashboardSvc := service.NewDashboardService(querySvc)
	reportSvc := service.NewReportService(explorer, querySvc, logger, cfg.ReportRowLimit)
	askSvc := service.NewAskService(generator, querySvc, logger)

	if missing, err := explorerSvc.MissingTables(ctx); err != nil {
		logger.Warn("checking required tables", slog.String("error.message", err.Error()))
	} else if len(missing) > 0 {
		logger.Warn("database is missing dashboard tables", slog.Any("tables", missing))
	}

	mcpServer := mcp.NewServer(version, mcp.Services{
		Explorer:  explorerSvc,
		Query:     querySvc,
		Dashboard: dashboardSvc,
		Reports:   reportSvc,
		Ask:       askSvc,
	}, logger, tracer, inst)

	switch cfg.Transport {
	case "http":
		api := rest.NewRouter(rest.Services{
			Explorer:  explorerSvc,
			Query:     querySvc,
			Dashboard: dashboardSvc,
			Reports:   reportSvc,
			Ask:       askSvc,
		}, rest.Options{
			CORSOrigins:     cfg.CORSOrigins,
			Logger:          logger,
			Instrumentation: inst,
			APIMiddleware: []func(next http.Handler) http.Handler{
				func(next http.Handler) http.Handler { return bearerAuthMiddleware(next, cfg.HTTPBearerToken) },
			},
		})
		if err := serveHTTP(ctx, cfg, api, mcpServer, logger); err != nil {
			return err
		}
	default:
		stdioServer := mcpserver.NewStdioServer(mcpServer)
		logger.Info("serving MCP over stdio")
		if err := stdioServer.Listen(ctx, os.Stdin, os.Stdout); err != nil {
			return fmt.Errorf("stdio server: %w", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// backend is the database engine chosen from the connection string.
type backend struct {
	explorer port.SchemaExplorer
	executor port.QueryExecutor
	system   string
	close    func()
}

// dbSystemName is the OpenTelemetry db.system value for b.
func dbSystemName(b config.Backend) string {
	if b == config.BackendPostgres {
		return "postgresql"
	}
	return "sqlite"
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Backend() {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{
			MaxConns:        cfg.PoolMaxConns,
			MinConns:        cfg.PoolMinConns,
			MaxConnLifetime: cfg.PoolMaxConnLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		return &backend{
			explorer: postgres.NewExplorer(pool, cfg.Schemas),
			executor: postgres.NewExecutor(pool, cfg.MaxRows, cfg.QueryTimeout),
			system:   dbSystemName(config.BackendPostgres),
			close:    pool.Close,
		}, nil
	default:
		pool, err := sqlite.NewPool(ctx, cfg.DatabaseURL, sqlite.PoolOptions{
			Size:        int(cfg.PoolMaxConns),
			BusyTimeout: cfg.QueryTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		return &backend{
			explorer: sqlite.NewExplorer(pool),
			executor: sqlite.NewExecutor(pool, cfg.MaxRows, cfg.QueryTimeout),
			system:   dbSystemName(config.BackendSQLite),
			close:    func() { _ = pool.Close() },
		}, nil
	}
}
