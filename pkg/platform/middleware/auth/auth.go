// Package auth guards routes with a shared API key.
package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"log/slog"
	"net/http"

	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
	audit "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/httputil"
	"github.com/rpsinghcodes/pg-db-crud/pkg/requestcontext"
)

// HeaderAPIKey is the request header carrying the key.
const HeaderAPIKey = "X-API-Key"

const unauthorizedMessage = "Unauthorized: Invalid or missing API Key."

// AuditEmitter records rejected requests.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Option func(*guard)

// WithAuditEmitter records every rejection as an auth_failed event.
func WithAuditEmitter(emitter AuditEmitter) Option {
	return func(g *guard) {
		g.auditor = emitter
	}
}

type guard struct {
	digest  [sha256.Size]byte
	logger  *slog.Logger
	auditor AuditEmitter
}

// RequireAPIKey rejects requests whose X-API-Key header does not match
// apiKey with 401. Keys are compared as SHA-256 digests in constant time so
// neither content nor length leaks through timing. An empty apiKey rejects
// everything.
func RequireAPIKey(apiKey string, logger *slog.Logger, opts ...Option) func(http.Handler) http.Handler {
	g := &guard{digest: sha256.Sum256([]byte(apiKey)), logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	configured := apiKey != ""

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(HeaderAPIKey)
			if configured && presented != "" && g.matches(presented) {
				next.ServeHTTP(w, r)
				return
			}

			reason := "invalid_api_key"
			if presented == "" {
				reason = "missing_api_key"
			}
			g.reject(w, r, reason)
		})
	}
}

func (g *guard) matches(presented string) bool {
	sum := sha256.Sum256([]byte(presented))
	return subtle.ConstantTimeCompare(sum[:], g.digest[:]) == 1
}

func (g *guard) reject(w http.ResponseWriter, r *http.Request, reason string) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	g.logger.WarnContext(ctx, "unauthorized access",
		"request_id", requestID,
		"reason", reason,
		"path", r.URL.Path,
		"ip", requestcontext.ClientIP(ctx),
	)
	if g.auditor != nil {
		err := g.auditor.Emit(ctx, audit.Event{
			Action:    string(audit.EventAuthFailed),
			Decision:  audit.DecisionFailure,
			Reason:    reason,
			RequestID: requestID,
			Method:    r.Method,
			Endpoint:  r.URL.Path,
			Status:    http.StatusUnauthorized,
			ClientIP:  requestcontext.ClientIP(ctx),
			Timestamp: requestcontext.Now(ctx),
		})
		if err != nil {
			g.logger.ErrorContext(ctx, "failed to emit audit event", "request_id", requestID, "error", err)
		}
	}
	httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, unauthorizedMessage))
}
