package main

import (
	"flag"
	"io"

	"github.com/guillermoBallester/partscope/internal/config"
)

// parseFlags maps command-line flags onto config overrides. Only flags that
// were given explicitly are set, so environment values survive.
func parseFlags(args []string) (config.Overrides, error) {
	fs := flag.NewFlagSet("partscope", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		databaseURL     = fs.String("database-url", "", "SQLite file path, file: URI or postgres:// URL")
		logLevel        = fs.String("log-level", "", "debug, info, warn or error")
		maxRows         = fs.Int("max-rows", 0, "row cap for ad-hoc queries")
		reportRowLimit  = fs.Int("report-row-limit", 0, "row cap per custom report section")
		queryTimeout    = fs.Duration("query-timeout", 0, "per-statement timeout")
		policyFile      = fs.String("policy-file", "", "path to policy YAML")
		transport       = fs.String("transport", "", "stdio or http")
		httpAddr        = fs.String("http-addr", "", "listen address for the http transport")
		httpBearerToken = fs.String("http-bearer-token", "", "token required on /mcp and /api/v1")
		nl2sqlEndpoint  = fs.String("nl2sql-endpoint", "", "chat-completions URL of the SQL translator")
		nl2sqlModel     = fs.String("nl2sql-model", "", "model name sent to the translator")
		poolMaxConns    = fs.Int("pool-max-conns", 0, "maximum pool connections")
		poolMinConns    = fs.Int("pool-min-conns", 0, "minimum pool connections (postgres)")
		poolLifetime    = fs.Duration("pool-max-conn-lifetime", 0, "maximum connection lifetime (postgres)")
		otelEnabled     = fs.Bool("otel", false, "enable OpenTelemetry tracing and metrics")
		auditLog        = fs.String("audit-log", "", "path to NDJSON audit log")
	)

	if err := fs.Parse(args); err != nil {
		return config.Overrides{}, err
	}

	o := config.Overrides{
		OTelEnabled: *otelEnabled,
		AuditLog:    *auditLog,
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "database-url":
			o.DatabaseURL = databaseURL
		case "log-level":
			o.LogLevel = logLevel
		case "max-rows":
			o.MaxRows = maxRows
		case "report-row-limit":
			o.ReportRowLimit = reportRowLimit
		case "query-timeout":
			o.QueryTimeout = queryTimeout
		case "policy-file":
			o.PolicyFile = policyFile
		case "transport":
			o.Transport = transport
		case "http-addr":
			o.HTTPAddr = httpAddr
		case "http-bearer-token":
			o.HTTPBearerToken = httpBearerToken
		case "nl2sql-endpoint":
			o.NL2SQLEndpoint = nl2sqlEndpoint
		case "nl2sql-model":
			o.NL2SQLModel = nl2sqlModel
		case "pool-max-conns":
			o.PoolMaxConns = int32Ptr(*poolMaxConns)
		case "pool-min-conns":
			o.PoolMinConns = int32Ptr(*poolMinConns)
		case "pool-max-conn-lifetime":
			o.PoolMaxConnLifetime = poolLifetime
		}
	})
	return o, nil
}

func int32Ptr(n int) *int32 {
	v := int32(n)
	return &v
}
