package request

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type RequestMiddlewareSuite struct {
	suite.Suite
	logs   *bytes.Buffer
	logger *slog.Logger
}

func TestRequestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(RequestMiddlewareSuite))
}

func (s *RequestMiddlewareSuite) SetupTest() {
	s.logs = &bytes.Buffer{}
	s.logger = slog.New(slog.NewJSONHandler(s.logs, nil))
}

func (s *RequestMiddlewareSuite) TestRequestID() {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	s.Run("generated when absent", func() {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
		_, err := uuid.Parse(seen)
		s.NoError(err)
		s.Equal(seen, rr.Header().Get(HeaderRequestID))
	})

	s.Run("inbound id reused", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "trace-abc-123")
		h.ServeHTTP(httptest.NewRecorder(), req)
		s.Equal("trace-abc-123", seen)
	})

	s.Run("unprintable or oversized inbound id replaced", func() {
		for _, bad := range []string{"has space", "line\nbreak", strings.Repeat("x", maxInboundRequestIDLength+1)} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(HeaderRequestID, bad)
			h.ServeHTTP(httptest.NewRecorder(), req)
			s.NotEqual(bad, seen)
			_, err := uuid.Parse(seen)
			s.NoError(err)
		}
	})
}

func (s *RequestMiddlewareSuite) TestLogger() {
	h := RequestID(Logger(s.logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))
	req := httptest.NewRequest(http.MethodPost, "/api/databases", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	h.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	s.Require().NoError(json.Unmarshal(s.logs.Bytes(), &entry))
	s.Equal("http request", entry["msg"])
	s.Equal("req-42", entry["request_id"])
	s.Equal("/api/databases", entry["path"])
	s.EqualValues(http.StatusTeapot, entry["status"])
}

func (s *RequestMiddlewareSuite) TestRecovery() {
	s.Run("panic becomes an internal error envelope", func() {
		h := Recovery(s.logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		s.Equal(http.StatusInternalServerError, rr.Code)
		s.Contains(rr.Body.String(), `"success":false`)
		s.NotContains(rr.Body.String(), "boom")
		s.Contains(s.logs.String(), "panic recovered")
	})

	s.Run("aborted handlers keep aborting", func() {
		h := Recovery(s.logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic(http.ErrAbortHandler)
		}))
		s.PanicsWithValue(http.ErrAbortHandler, func() {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
		})
	})
}

type observation struct {
	method, route string
	status        int
}

type recordingObserver struct {
	mu  sync.Mutex
	got []observation
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Time) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.got = append(o.got, observation{method, route, status})
}

func TestLatencyUsesRoutePattern(t *testing.T) {
	observer := &recordingObserver{}
	r := chi.NewRouter()
	r.Use(Latency(observer))
	r.Get("/api/databases", func(http.ResponseWriter, *http.Request) {})
	r.Post("/api/databases/verify", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/databases", nil),
		httptest.NewRequest(http.MethodPost, "/api/databases/verify", nil),
		httptest.NewRequest(http.MethodGet, "/nope/123", nil),
	} {
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	require.Len(t, observer.got, 3)
	assert.Equal(t, observation{http.MethodGet, "/api/databases", http.StatusOK}, observer.got[0])
	assert.Equal(t, observation{http.MethodPost, "/api/databases/verify", http.StatusNotFound}, observer.got[1])
	assert.Equal(t, "unmatched", observer.got[2].route)
}
