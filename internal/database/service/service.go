// Package service exposes the four database operations: list, create,
// verify and migrate. It validates raw names at the boundary, so nothing
// below it ever sees an unvalidated identifier.
package service

import (
	"context"
	"log/slog"

	"github.com/rpsinghcodes/pg-db-crud/internal/database/classify"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/models"
	"github.com/rpsinghcodes/pg-db-crud/internal/platform/metrics"
	"github.com/rpsinghcodes/pg-db-crud/pkg/domain"
	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
	audit "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit"
	"github.com/rpsinghcodes/pg-db-crud/pkg/requestcontext"
)

// Catalog is the inspector and provisioner of databases on the server.
type Catalog interface {
	List(ctx context.Context) ([]domain.DatabaseName, error)
	Exists(ctx context.Context, name domain.DatabaseName) (bool, error)
	Create(ctx context.Context, name domain.DatabaseName) error
}

// Migrator copies one database into another.
type Migrator interface {
	Migrate(ctx context.Context, req models.MigrationRequest) (models.MigrationOutcome, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service orchestrates database lifecycle operations.
type Service struct {
	catalog        Catalog
	migrator       Migrator
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New constructs a Service.
func New(catalog Catalog, migrator Migrator, opts ...Option) *Service {
	s := &Service{catalog: catalog, migrator: migrator}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}
	return s
}

// ListDatabases returns every non-template database on the server.
func (s *Service) ListDatabases(ctx context.Context) ([]domain.DatabaseName, error) {
	names, err := s.catalog.List(ctx)
	if err != nil {
		return nil, classify.Error(err, "failed to list databases")
	}
	return names, nil
}

// CreateDatabase validates rawName and creates the database.
func (s *Service) CreateDatabase(ctx context.Context, rawName string) (domain.DatabaseName, error) {
	name, err := domain.ParseDatabaseName(rawName)
	if err != nil {
		return "", err
	}

	if err := s.catalog.Create(ctx, name); err != nil {
		err = classify.Error(err, "failed to create database")
		if dErrors.Is(err, dErrors.CodeConflict) {
			s.incrementCreateConflicts()
		}
		s.logger.WarnContext(ctx, "database creation failed",
			"request_id", requestcontext.RequestID(ctx),
			"db_name", name,
			"error", err,
		)
		s.emitAudit(ctx, audit.Event{
			Action:   string(audit.EventDatabaseCreated),
			Subject:  name.String(),
			Decision: audit.DecisionFailure,
			Reason:   string(dErrors.CodeOf(err)),
			Detail:   err.Error(),
		})
		return "", err
	}

	s.logger.InfoContext(ctx, "database created",
		"request_id", requestcontext.RequestID(ctx),
		"db_name", name,
	)
	s.emitAudit(ctx, audit.Event{
		Action:   string(audit.EventDatabaseCreated),
		Subject:  name.String(),
		Decision: audit.DecisionSuccess,
	})
	s.incrementDatabasesCreated()
	return name, nil
}

// VerifyDatabase reports whether the database named rawName exists.
func (s *Service) VerifyDatabase(ctx context.Context, rawName string) (domain.DatabaseName, bool, error) {
	name, err := domain.ParseDatabaseName(rawName)
	if err != nil {
		return "", false, err
	}
	exists, err := s.catalog.Exists(ctx, name)
	if err != nil {
		return name, false, classify.Error(err, "failed to check database existence")
	}
	return name, exists, nil
}

// MigrateDatabase copies the full content of rawSource into rawTarget.
//
// A non-nil error is either a rejected request (validation, not found,
// configuration) or, when the pipeline ran and failed, outcome.Err(). The
// outcome is returned in both pipeline cases.
func (s *Service) MigrateDatabase(ctx context.Context, rawSource, rawTarget string) (models.MigrationOutcome, error) {
	if rawSource == "" || rawTarget == "" {
		return models.MigrationOutcome{}, dErrors.New(dErrors.CodeValidation, "both source and target database names are required")
	}
	source, err := domain.ParseDatabaseName(rawSource)
	if err != nil {
		return models.MigrationOutcome{}, err
	}
	target, err := domain.ParseDatabaseName(rawTarget)
	if err != nil {
		return models.MigrationOutcome{}, err
	}
	req, err := models.NewMigrationRequest(source, target)
	if err != nil {
		return models.MigrationOutcome{}, err
	}

	outcome, err := s.migrator.Migrate(ctx, req)
	if err != nil {
		err = classify.Error(err, "migration could not start")
		s.logger.WarnContext(ctx, "migration rejected",
			"request_id", requestcontext.RequestID(ctx),
			"source", source,
			"target", target,
			"error", err,
		)
		s.emitAudit(ctx, audit.Event{
			Action:   string(audit.EventDatabaseMigrated),
			Subject:  source.String(),
			Target:   target.String(),
			Decision: audit.DecisionFailure,
			Reason:   string(dErrors.CodeOf(err)),
			Detail:   err.Error(),
		})
		return models.MigrationOutcome{}, err
	}

	event := audit.Event{
		Action:     string(audit.EventDatabaseMigrated),
		Subject:    source.String(),
		Target:     target.String(),
		Decision:   audit.DecisionSuccess,
		Reason:     outcome.Summary(),
		DurationMS: outcome.Duration.Milliseconds(),
	}
	if !outcome.Success {
		event.Decision = audit.DecisionFailure
		event.Detail = outcome.Diagnostics
	}
	s.emitAudit(ctx, event)
	return outcome, outcome.Err()
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	event.RequestID = requestcontext.RequestID(ctx)
	event.ClientIP = requestcontext.ClientIP(ctx)
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to emit audit event",
			"request_id", event.RequestID,
			"action", event.Action,
			"error", err,
		)
	}
}

func (s *Service) incrementDatabasesCreated() {
	if s.metrics != nil {
		s.metrics.IncrementDatabasesCreated()
	}
}

func (s *Service) incrementCreateConflicts() {
	if s.metrics != nil {
		s.metrics.IncrementCreateConflicts()
	}
}
