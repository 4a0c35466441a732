package auth

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit/store/memory"
	"github.com/rpsinghcodes/pg-db-crud/pkg/testutil"
)

func protected(t *testing.T, key string, opts ...Option) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return RequireAPIKey(key, logger, opts...)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestRequireAPIKey(t *testing.T) {
	t.Run("matching key passes", func(t *testing.T) {
		req := testutil.WithAPIKey(testutil.NewRequest(t, http.MethodGet, "/api/databases"), "s3cret")
		rr := testutil.DoRequest(protected(t, "s3cret"), req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})

	t.Run("missing key rejected", func(t *testing.T) {
		rr := testutil.DoRequest(protected(t, "s3cret"), testutil.NewRequest(t, http.MethodGet, "/api/databases"))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		req := testutil.WithAPIKey(testutil.NewRequest(t, http.MethodGet, "/api/databases"), "s3cret-but-longer")
		rr := testutil.DoRequest(protected(t, "s3cret"), req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		testutil.AssertJSONContains(t, rr, "message", unauthorizedMessage)
	})

	t.Run("empty configured key rejects everything", func(t *testing.T) {
		req := testutil.WithAPIKey(testutil.NewRequest(t, http.MethodGet, "/api/databases"), "")
		rr := testutil.DoRequest(protected(t, ""), req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})
}

func TestRequireAPIKey_AuditsRejections(t *testing.T) {
	store := memory.NewInMemoryStore()
	emitter := emitterFunc(func(ctx context.Context, e audit.Event) error { return store.Append(ctx, e) })

	req := testutil.WithAPIKey(testutil.NewRequest(t, http.MethodPost, "/api/databases"), "guess")
	rr := testutil.DoRequest(protected(t, "s3cret", WithAuditEmitter(emitter)), req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	events, err := store.ListByAction(context.Background(), audit.EventAuthFailed)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "invalid_api_key", events[0].Reason)
	assert.Equal(t, "/api/databases", events[0].Endpoint)
	assert.NotContains(t, events[0].Reason, "guess")
}

type emitterFunc func(context.Context, audit.Event) error

func (f emitterFunc) Emit(ctx context.Context, e audit.Event) error { return f(ctx, e) }
