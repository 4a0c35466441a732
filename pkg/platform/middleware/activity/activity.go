// Package activity writes the request activity log: every POST with its
// redacted JSON body, and every request that ended in a server error.
package activity

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	audit "github.com/rpsinghcodes/pg-db-crud/pkg/platform/audit"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/httputil"
	"github.com/rpsinghcodes/pg-db-crud/pkg/platform/middleware/metadata"
	"github.com/rpsinghcodes/pg-db-crud/pkg/requestcontext"
)

// AuditEmitter receives activity events.
type AuditEmitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// sensitiveKeys are dropped from logged payloads wherever they appear.
// Compared after lower-casing and removing '-' and '_'.
var sensitiveKeys = map[string]struct{}{
	"password":         {},
	"pass":             {},
	"pwd":              {},
	"secret":           {},
	"token":            {},
	"apikey":           {},
	"xapikey":          {},
	"databaseurl":      {},
	"connectionstring": {},
	"dsn":              {},
}

// Log emits one audit event per POST request and per 5xx response.
func Log(emitter AuditEmitter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var payload map[string]any
			if r.Method == http.MethodPost && r.Body != nil {
				payload = capturePayload(r)
			}

			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			action := audit.EventActivity
			switch {
			case status >= http.StatusInternalServerError:
				action = audit.EventRequestFailed
			case r.Method != http.MethodPost:
				return
			}

			ctx := r.Context()
			event := audit.Event{
				Action:     string(action),
				Timestamp:  requestcontext.Now(ctx),
				RequestID:  requestcontext.RequestID(ctx),
				Method:     r.Method,
				Endpoint:   r.URL.RequestURI(),
				Status:     status,
				ClientIP:   requestcontext.ClientIP(ctx),
				Client:     metadata.DescribeClient(requestcontext.UserAgent(ctx)),
				Payload:    payload,
				DurationMS: time.Since(start).Milliseconds(),
			}
			if err := emitter.Emit(ctx, event); err != nil {
				logger.ErrorContext(ctx, "failed to record activity",
					"request_id", event.RequestID,
					"error", err,
				)
			}
		})
	}
}

// capturePayload reads the body for logging and puts it back so the handler
// sees the same bytes, including anything past the logging limit.
func capturePayload(r *http.Request) map[string]any {
	head, err := io.ReadAll(io.LimitReader(r.Body, httputil.MaxBodyBytes))
	r.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
	if err != nil || len(head) == 0 {
		return nil
	}

	var body map[string]any
	if json.Unmarshal(head, &body) != nil {
		return map[string]any{"unparsed_bytes": len(head)}
	}
	return Redact(body)
}

// Redact returns a copy of body without sensitive keys, at any depth.
func Redact(body map[string]any) map[string]any {
	out := make(map[string]any, len(body))
	for k, v := range body {
		if isSensitive(k) {
			continue
		}
		out[k] = redactValue(v)
	}
	return out
}

func redactValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return Redact(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = redactValue(e)
		}
		return out
	default:
		return v
	}
}

func isSensitive(key string) bool {
	k := strings.NewReplacer("-", "", "_", "").Replace(strings.ToLower(key))
	_, ok := sensitiveKeys[k]
	return ok
}
