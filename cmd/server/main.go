package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rpsinghcodes/pg-db-crud/internal/database/credentials"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/handler"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/migrate"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/service"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/store"
	"github.com/rpsinghcodes/pg-db-crud/internal/platform/config"
	"github.com/rpsinghcodes/pg-db-crud/internal/platform/httpserver"
	"github.com/rpsinghcodes/pg-db-crud/internal/platform/logger"
	"github.com/rpsinghcodes/pg-db-crud/internal/platform/metrics"
	"github.com/rpsinghcodes/pg-db-crud/internal/platform/postgres"
	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit/publisher"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/httputil"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/middleware/activity"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/middleware/auth"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/middleware/headers"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/middleware/metadata"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/middleware/request"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/middleware/requesttime"
)

const healthTimeout = 2 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/database.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Server.IsProduction())

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	desc, err := credentials.Resolve(credentials.OSEnvironment{})
	if err != nil {
		return err
	}
	log.Info("resolved database credentials", "database", desc)

	pg, err := postgres.Open(ctx, desc, postgres.DefaultPoolConfig())
	if err != nil {
		return err
	}
	defer pg.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	sink, closeSink, err := buildAuditSink(ctx, cfg.Audit, log)
	if err != nil {
		return err
	}
	defer closeSink()
	auditPublisher := publisher.NewPublisher(sink,
		publisher.WithAsyncBuffer(cfg.Audit.AsyncBuffer),
		publisher.WithLogger(log),
	)
	defer auditPublisher.Close()

	catalog := store.NewPostgres(pg.DB)
	orchestrator := migrate.New(catalog,
		migrate.PostgresCommands{PgDumpPath: cfg.Migration.PgDumpPath, PsqlPath: cfg.Migration.PsqlPath},
		migrate.WithTimeout(cfg.Migration.Timeout),
		migrate.WithStderrLimit(cfg.Migration.StderrLimit),
		migrate.WithLogger(log),
		migrate.WithMetrics(m),
	)
	databaseService := service.New(catalog, orchestrator,
		service.WithLogger(log),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(m),
	)
	databaseHandler := handler.New(databaseService, log,
		handler.WithErrorDetail(!cfg.Server.IsProduction()),
	)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log))
	r.Use(request.Recovery(log))
	r.Use(headers.Security)
	r.Use(headers.CORS(cfg.Server.CORSOrigins))
	r.Use(request.Latency(m))
	r.Use(activity.Log(auditPublisher, log))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeNotFound, "Route not found."))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{
			Message: "Method not allowed.",
			Error:   "method_not_allowed",
		})
	})
	r.Get("/", healthHandler(pg, log))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAPIKey(cfg.Server.APIKey, log, auth.WithAuditEmitter(auditPublisher)))
		databaseHandler.Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, r)
	log.Info("starting server", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
	return httpserver.ListenAndServe(ctx, srv, cfg.Server.ShutdownTimeout)
}

type healthResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func healthHandler(pg *postgres.Client, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := pg.Health(ctx); err != nil {
			log.WarnContext(ctx, "health check failed",
				"request_id", request.GetRequestID(ctx),
				"error", err,
			)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{
				Success: false,
				Message: "PostgreSQL Management API cannot reach the database",
			})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, healthResponse{
			Success: true,
			Message: "PostgreSQL Management API is healthy",
		})
	}
}
