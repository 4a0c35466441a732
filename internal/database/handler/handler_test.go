package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/rpsinghcodes/pg-db-crud/internal/database/handler/mocks"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/models"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/service"
	"github.com/rpsinghcodes/pg-db-crud/internal/database/store"
	"github.com/rpsinghcodes/pg-db-crud/pkg/domain"
	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
	"github.com/rpsinghcodes/pg-db-crud/pkg/testutil"
)

type DatabaseHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestDatabaseHandlerSuite(t *testing.T) {
	suite.Run(t, new(DatabaseHandlerSuite))
}

func (s *DatabaseHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = newRouter(s.service)
}

func newRouter(svc Service, opts ...Option) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	New(svc, logger, opts...).Register(r)
	return r
}

func (s *DatabaseHandlerSuite) TestListDatabases() {
	s.Run("returns names with count", func() {
		s.service.EXPECT().ListDatabases(gomock.Any()).Return([]domain.DatabaseName{"postgres", "orders"}, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/databases"))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[ListDatabasesResponse](s.T(), rr)
		s.True(resp.Success)
		s.Equal(2, resp.Count)
		s.Equal([]string{"postgres", "orders"}, resp.Databases)
	})

	s.Run("empty catalog encodes an empty array", func() {
		s.service.EXPECT().ListDatabases(gomock.Any()).Return(nil, nil)

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/databases"))
		testutil.AssertStatusOK(s.T(), rr)
		s.JSONEq(`{"success":true,"count":0,"databases":[]}`, rr.Body.String())
	})

	s.Run("store failure hides the cause", func() {
		s.service.EXPECT().ListDatabases(gomock.Any()).
			Return(nil, dErrors.Wrap(errors.New("password authentication failed for user \"admin\""), dErrors.CodeInternal, "failed to list databases"))

		rr := testutil.DoRequest(s.router, testutil.NewRequest(s.T(), http.MethodGet, "/api/databases"))
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		s.NotContains(rr.Body.String(), "password")
		s.NotContains(rr.Body.String(), "detail")
	})
}

func (s *DatabaseHandlerSuite) TestCreateDatabase() {
	s.Run("created", func() {
		s.service.EXPECT().CreateDatabase(gomock.Any(), "orders").Return(domain.DatabaseName("orders"), nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/databases", map[string]string{"dbName": "orders"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusCreated)
		resp := testutil.UnmarshalResponse[MessageResponse](s.T(), rr)
		s.True(resp.Success)
		s.Equal(`Database "orders" created successfully.`, resp.Message)
	})

	s.Run("missing name", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/databases", map[string]string{})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		s.Equal("Database name is required.", testutil.UnmarshalErrorResponse(s.T(), rr)["message"])
	})

	s.Run("malformed body", func() {
		req := testutil.NewRequestWithBody(s.T(), http.MethodPost, "/api/databases", "{not json")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})

	s.Run("duplicate", func() {
		s.service.EXPECT().CreateDatabase(gomock.Any(), "orders").
			Return(domain.DatabaseName(""), dErrors.New(dErrors.CodeConflict, "database already exists"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/databases", map[string]string{"dbName": "orders"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusConflict)
		resp := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal("Database already exists.", resp["message"])
		s.Equal(string(dErrors.CodeConflict), resp["error"])
	})
}

func (s *DatabaseHandlerSuite) TestVerifyDatabase() {
	s.Run("found", func() {
		s.service.EXPECT().VerifyDatabase(gomock.Any(), "orders").Return(domain.DatabaseName("orders"), true, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/databases/verify", map[string]string{"dbName": "orders"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[VerifyDatabaseResponse](s.T(), rr)
		s.True(resp.Exists)
		s.Equal(`Database "orders" found.`, resp.Message)
	})

	s.Run("not found", func() {
		s.service.EXPECT().VerifyDatabase(gomock.Any(), "ghost").Return(domain.DatabaseName("ghost"), false, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/databases/verify", map[string]string{"dbName": "ghost"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		s.JSONEq(`{"success":false,"exists":false,"message":"Database not found."}`, rr.Body.String())
	})

	s.Run("invalid name is a validation error", func() {
		s.service.EXPECT().VerifyDatabase(gomock.Any(), "a-b").
			Return(domain.DatabaseName(""), false, dErrors.New(dErrors.CodeValidation, "invalid database name"))

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/databases/verify", map[string]string{"dbName": "a-b"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})
}

func (s *DatabaseHandlerSuite) TestMigrateDatabase() {
	body := map[string]string{"sourceDbName": "orders", "targetDbName": "orders_copy"}

	s.Run("completed", func() {
		s.service.EXPECT().MigrateDatabase(gomock.Any(), "orders", "orders_copy").
			Return(models.Succeeded(time.Second, models.ExitInfo{Started: true}, models.ExitInfo{Started: true}), nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/databases/migrate", body))
		testutil.AssertStatusOK(s.T(), rr)
		resp := testutil.UnmarshalResponse[MessageResponse](s.T(), rr)
		s.Equal(`Migration from "orders" to "orders_copy" completed successfully.`, resp.Message)
	})

	s.Run("both names required", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/databases/migrate", map[string]string{"sourceDbName": "orders"})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
		s.Equal("Both source and target database names are required.", testutil.UnmarshalErrorResponse(s.T(), rr)["message"])
	})

	s.Run("missing database", func() {
		s.service.EXPECT().MigrateDatabase(gomock.Any(), "orders", "orders_copy").
			Return(models.MigrationOutcome{}, dErrors.New(dErrors.CodeNotFound, "one or both databases do not exist"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/databases/migrate", body))
		testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
		s.Equal("One or both databases do not exist.", testutil.UnmarshalErrorResponse(s.T(), rr)["message"])
	})

	s.Run("pipeline failure", func() {
		failed := models.Failed(models.StageSource, dErrors.CodeProcess,
			models.ExitInfo{Started: true, Code: 1, Status: "exit status 1"},
			models.ExitInfo{Started: true, Status: "exit status 0"},
			"source: pg_dump: error: connection refused")
		s.service.EXPECT().MigrateDatabase(gomock.Any(), "orders", "orders_copy").Return(failed, failed.Err())

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/databases/migrate", body))
		testutil.AssertStatus(s.T(), rr, http.StatusInternalServerError)
		resp := testutil.UnmarshalErrorResponse(s.T(), rr)
		s.Equal(string(dErrors.CodeProcess), resp["error"])
		s.Equal("migration failed while reading the source database", resp["message"])
		s.NotContains(resp, "detail")
	})

	s.Run("timeout maps to gateway timeout", func() {
		failed := models.Failed(models.StagePipe, dErrors.CodeTimeout,
			models.ExitInfo{Started: true, Code: -1, Abnormal: true, Status: "signal: killed"},
			models.ExitInfo{Started: true, Code: -1, Abnormal: true, Status: "signal: killed"}, "")
		s.service.EXPECT().MigrateDatabase(gomock.Any(), "orders", "orders_copy").Return(failed, failed.Err())

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodPost, "/api/databases/migrate", body))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusGatewayTimeout, string(dErrors.CodeTimeout))
	})
}

func TestErrorDetailOutsideProduction(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	router := newRouter(svc, WithErrorDetail(true))

	failed := models.Failed(models.StageTarget, dErrors.CodeProcess,
		models.ExitInfo{Started: true, Status: "exit status 0"},
		models.ExitInfo{Started: true, Code: 3, Status: "exit status 3"},
		"target: psql: ERROR: relation already exists")
	svc.EXPECT().MigrateDatabase(gomock.Any(), "a", "b").Return(failed, failed.Err())

	req := testutil.NewJSONRequest(t, http.MethodPost, "/api/databases/migrate", map[string]string{"sourceDbName": "a", "targetDbName": "b"})
	rr := testutil.DoRequest(router, req)
	testutil.AssertStatus(t, rr, http.StatusInternalServerError)
	resp := testutil.UnmarshalErrorResponse(t, rr)
	assert.Contains(t, resp["detail"], "relation already exists")

	svc.EXPECT().ListDatabases(gomock.Any()).
		Return(nil, dErrors.Wrap(errors.New("connection reset"), dErrors.CodeInternal, "failed to list databases"))
	rr = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/databases"))
	testutil.AssertStatus(t, rr, http.StatusInternalServerError)
	testutil.AssertJSONHasKey(t, rr, "detail")
}

// TestWithInMemoryCatalog runs the handler over the real service.
func TestWithInMemoryCatalog(t *testing.T) {
	svc := service.New(store.NewInMemory("postgres"), migratorFunc(func(context.Context, models.MigrationRequest) (models.MigrationOutcome, error) {
		return models.MigrationOutcome{}, dErrors.New(dErrors.CodeNotFound, "one or both databases do not exist")
	}))
	router := newRouter(svc)

	testutil.Given(t, "a fresh catalog", func(t *testing.T) {
		testutil.When(t, "a database is created twice", func(t *testing.T) {
			first := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/databases", map[string]string{"dbName": "orders"}))
			second := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/databases", map[string]string{"dbName": "orders"}))

			testutil.Then(t, "the first wins and the second conflicts", func(t *testing.T) {
				testutil.AssertStatus(t, first, http.StatusCreated)
				testutil.AssertStatusAndError(t, second, http.StatusConflict, string(dErrors.CodeConflict))
			})
		})

		testutil.When(t, "an injection attempt is submitted", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/api/databases", map[string]string{"dbName": "x; DROP DATABASE postgres"}))

			testutil.Then(t, "it is rejected and nothing is created", func(t *testing.T) {
				testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
				list := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/api/databases"))
				resp := testutil.UnmarshalResponse[ListDatabasesResponse](t, list)
				require.Equal(t, 2, resp.Count)
				assert.ElementsMatch(t, []string{"postgres", "orders"}, resp.Databases)
			})
		})
	})
}

type migratorFunc func(context.Context, models.MigrationRequest) (models.MigrationOutcome, error)

func (f migratorFunc) Migrate(ctx context.Context, req models.MigrationRequest) (models.MigrationOutcome, error) {
	return f(ctx, req)
}
