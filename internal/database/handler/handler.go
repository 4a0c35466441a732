package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rpsinghcodes/pg-db-crud/internal/database/models"
	"github.com/rpsinghcodes/pg-db-crud/pkg/domain"
	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/httputil"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/middleware/request"
)

// Service defines the database operations exposed over HTTP.
type Service interface {
	ListDatabases(ctx context.Context) ([]domain.DatabaseName, error)
	CreateDatabase(ctx context.Context, rawName string) (domain.DatabaseName, error)
	VerifyDatabase(ctx context.Context, rawName string) (domain.DatabaseName, bool, error)
	MigrateDatabase(ctx context.Context, rawSource, rawTarget string) (models.MigrationOutcome, error)
}

// Handler serves /api/databases.
type Handler struct {
	service     Service
	logger      *slog.Logger
	errorDetail bool
}

type Option func(*Handler)

// WithErrorDetail includes the full error chain in failure responses.
// Never enable it in production.
func WithErrorDetail(enabled bool) Option {
	return func(h *Handler) {
		h.errorDetail = enabled
	}
}

// New creates a database Handler.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the database routes. Authentication is applied by the
// caller's router group.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/databases", h.HandleListDatabases)
	r.Post("/api/databases", h.HandleCreateDatabase)
	r.Post("/api/databases/verify", h.HandleVerifyDatabase)
	r.Post("/api/databases/migrate", h.HandleMigrateDatabase)
}

func (h *Handler) HandleListDatabases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	names, err := h.service.ListDatabases(ctx)
	if err != nil {
		h.writeError(ctx, w, requestID, "failed to list databases", err)
		return
	}

	databases := make([]string, 0, len(names))
	for _, name := range names {
		databases = append(databases, name.String())
	}
	httputil.WriteJSON(w, http.StatusOK, &ListDatabasesResponse{
		Success:   true,
		Count:     len(databases),
		Databases: databases,
	})
}

func (h *Handler) HandleCreateDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateDatabaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	name, err := h.service.CreateDatabase(ctx, req.DBName)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeConflict) {
			err = dErrors.Wrap(err, dErrors.CodeConflict, "Database already exists.")
		}
		h.writeError(ctx, w, requestID, "failed to create database", err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, &MessageResponse{
		Success: true,
		Message: fmt.Sprintf("Database %q created successfully.", name),
	})
}

func (h *Handler) HandleVerifyDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateDatabaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	name, exists, err := h.service.VerifyDatabase(ctx, req.DBName)
	if err != nil {
		h.writeError(ctx, w, requestID, "failed to verify database", err)
		return
	}
	if !exists {
		httputil.WriteJSON(w, http.StatusNotFound, &VerifyDatabaseResponse{
			Success: false,
			Exists:  false,
			Message: "Database not found.",
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &VerifyDatabaseResponse{
		Success: true,
		Exists:  true,
		Message: fmt.Sprintf("Database %q found.", name),
	})
}

func (h *Handler) HandleMigrateDatabase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[MigrateDatabaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outcome, err := h.service.MigrateDatabase(ctx, req.SourceDBName, req.TargetDBName)
	if err != nil {
		if dErrors.Is(err, dErrors.CodeNotFound) {
			err = dErrors.Wrap(err, dErrors.CodeNotFound, "One or both databases do not exist.")
		}
		h.writeError(ctx, w, requestID, "migration failed", err)
		return
	}

	h.logger.InfoContext(ctx, "migration completed",
		"request_id", requestID,
		"source", req.SourceDBName,
		"target", req.TargetDBName,
		"duration", outcome.Duration,
	)
	httputil.WriteJSON(w, http.StatusOK, &MessageResponse{
		Success: true,
		Message: fmt.Sprintf("Migration from %q to %q completed successfully.", req.SourceDBName, req.TargetDBName),
	})
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, requestID, msg string, err error) {
	if httputil.StatusFor(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
	}
	if h.errorDetail {
		httputil.WriteErrorDetail(w, err)
		return
	}
	httputil.WriteError(w, err)
}
