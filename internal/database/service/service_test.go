package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Catalog,Migrator,AuditPublisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/rpsinghcodes/pg-db-crud/internal/database/models"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/service/mocks"
	"github.com/rpsinghcodes/pg-db-crud/internal/platform/metrics"
	"github.com/rpsinghcodes/pg-db-crud/pkg/domain"
	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
	audit "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit"
	"github.com/rpsinghcodes/pg-db-crud/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	catalog  *mocks.MockCatalog
	migrator *mocks.MockMigrator
	auditor  *mocks.MockAuditPublisher
	metrics  *metrics.Metrics
	service  *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.catalog = mocks.NewMockCatalog(ctrl)
	s.migrator = mocks.NewMockMigrator(ctrl)
	s.auditor = mocks.NewMockAuditPublisher(ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.catalog, s.migrator,
		WithAuditPublisher(s.auditor),
		WithMetrics(s.metrics),
	)

	ctx := requestcontext.WithRequestID(context.Background(), "req-1")
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "curl/8.0")
	s.ctx = requestcontext.WithTime(ctx, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
}

func (s *ServiceSuite) TestListDatabases() {
	s.Run("returns the catalog names", func() {
		s.catalog.EXPECT().List(gomock.Any()).Return([]domain.DatabaseName{"postgres", "app"}, nil)

		names, err := s.service.ListDatabases(s.ctx)
		s.Require().NoError(err)
		s.Equal([]domain.DatabaseName{"postgres", "app"}, names)
	})

	s.Run("classifies store failures", func() {
		s.catalog.EXPECT().List(gomock.Any()).Return(nil, context.DeadlineExceeded)

		_, err := s.service.ListDatabases(s.ctx)
		s.True(dErrors.Is(err, dErrors.CodeTimeout))
	})
}

func (s *ServiceSuite) TestCreateDatabase() {
	s.Run("creates and audits", func() {
		s.catalog.EXPECT().Create(gomock.Any(), domain.DatabaseName("orders")).Return(nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(string(audit.EventDatabaseCreated), e.Action)
			s.Equal("orders", e.Subject)
			s.Equal(audit.DecisionSuccess, e.Decision)
			s.Equal("req-1", e.RequestID)
			s.Equal("10.0.0.1", e.ClientIP)
			s.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), e.Timestamp)
			return nil
		})

		name, err := s.service.CreateDatabase(s.ctx, "orders")
		s.Require().NoError(err)
		s.Equal(domain.DatabaseName("orders"), name)
		s.Equal(1.0, promtest.ToFloat64(s.metrics.DatabasesCreated))
	})

	s.Run("rejects invalid names before touching the catalog", func() {
		for _, raw := range []string{"", "1abc", "a;DROP DATABASE x", "name with space", "\"quoted\""} {
			_, err := s.service.CreateDatabase(s.ctx, raw)
			s.True(dErrors.Is(err, dErrors.CodeValidation), raw)
		}
	})

	s.Run("duplicate is a conflict", func() {
		s.catalog.EXPECT().Create(gomock.Any(), domain.DatabaseName("orders")).
			Return(&pq.Error{Code: "42P04", Message: "database \"orders\" already exists"})
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(audit.DecisionFailure, e.Decision)
			s.Equal(string(dErrors.CodeConflict), e.Reason)
			s.Contains(e.Detail, `database "orders" already exists`)
			return nil
		})

		_, err := s.service.CreateDatabase(s.ctx, "orders")
		s.True(dErrors.Is(err, dErrors.CodeConflict))
		s.Equal(1.0, promtest.ToFloat64(s.metrics.CreateConflicts))
	})

	s.Run("audit failures do not fail the operation", func() {
		s.catalog.EXPECT().Create(gomock.Any(), domain.DatabaseName("ledger")).Return(nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).Return(errors.New("sink down"))

		_, err := s.service.CreateDatabase(s.ctx, "ledger")
		s.NoError(err)
	})
}

func (s *ServiceSuite) TestVerifyDatabase() {
	s.Run("found", func() {
		s.catalog.EXPECT().Exists(gomock.Any(), domain.DatabaseName("orders")).Return(true, nil)

		name, exists, err := s.service.VerifyDatabase(s.ctx, "orders")
		s.Require().NoError(err)
		s.True(exists)
		s.Equal(domain.DatabaseName("orders"), name)
	})

	s.Run("absent", func() {
		s.catalog.EXPECT().Exists(gomock.Any(), domain.DatabaseName("ghost")).Return(false, nil)

		_, exists, err := s.service.VerifyDatabase(s.ctx, "ghost")
		s.Require().NoError(err)
		s.False(exists)
	})

	s.Run("invalid name", func() {
		_, _, err := s.service.VerifyDatabase(s.ctx, "x'; --")
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})
}

func (s *ServiceSuite) TestMigrateDatabase() {
	s.Run("both names are required", func() {
		_, err := s.service.MigrateDatabase(s.ctx, "orders", "")
		s.True(dErrors.Is(err, dErrors.CodeValidation))
		s.Equal("both source and target database names are required", dErrors.Message(err))
	})

	s.Run("source and target must differ", func() {
		_, err := s.service.MigrateDatabase(s.ctx, "orders", "orders")
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("success", func() {
		want := models.MigrationRequest{Source: "orders", Target: "orders_copy"}
		s.migrator.EXPECT().Migrate(gomock.Any(), want).
			Return(models.Succeeded(2*time.Second, models.ExitInfo{Started: true}, models.ExitInfo{Started: true}), nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(string(audit.EventDatabaseMigrated), e.Action)
			s.Equal("orders", e.Subject)
			s.Equal("orders_copy", e.Target)
			s.Equal(audit.DecisionSuccess, e.Decision)
			s.Equal(int64(2000), e.DurationMS)
			return nil
		})

		outcome, err := s.service.MigrateDatabase(s.ctx, "orders", "orders_copy")
		s.Require().NoError(err)
		s.True(outcome.Success)
	})

	s.Run("precondition failure is returned as is", func() {
		s.migrator.EXPECT().Migrate(gomock.Any(), gomock.Any()).
			Return(models.MigrationOutcome{}, dErrors.New(dErrors.CodeNotFound, "one or both databases do not exist"))
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(audit.DecisionFailure, e.Decision)
			s.Equal(string(dErrors.CodeNotFound), e.Reason)
			s.Contains(e.Detail, "do not exist")
			return nil
		})

		_, err := s.service.MigrateDatabase(s.ctx, "orders", "missing")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("pipeline failure returns the outcome and its error", func() {
		failed := models.Failed(models.StageTarget, dErrors.CodeProcess,
			models.ExitInfo{Started: true, Status: "exit status 0"},
			models.ExitInfo{Started: true, Code: 1, Status: "exit status 1"},
			"target: psql: error: permission denied")
		s.migrator.EXPECT().Migrate(gomock.Any(), gomock.Any()).Return(failed, nil)
		s.auditor.EXPECT().Emit(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, e audit.Event) error {
			s.Equal(audit.DecisionFailure, e.Decision)
			s.Contains(e.Reason, "target stage")
			s.Equal("target: psql: error: permission denied", e.Detail)
			return nil
		})

		outcome, err := s.service.MigrateDatabase(s.ctx, "orders", "orders_copy")
		s.True(dErrors.Is(err, dErrors.CodeProcess))
		s.Equal(models.StageTarget, outcome.Stage)
		var pe *models.ProcessError
		s.Require().ErrorAs(err, &pe)
		s.Contains(pe.Diagnostics, "permission denied")
	})
}
