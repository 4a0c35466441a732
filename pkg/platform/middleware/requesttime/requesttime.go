// Package requesttime captures one timestamp per request so every audit event
// emitted while serving it agrees on "now".
package requesttime

import (
	"net/http"
	"time"

	"github.com/rpsinghcodes/pg-db-crud/pkg/requestcontext"
)

// Middleware captures the current time at the start of the request
// and stores it in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
