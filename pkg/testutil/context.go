package testutil

import (
	"context"
	"net/http"
)

// WithAPIKey sets the API key header on req.
func WithAPIKey(req *http.Request, key string) *http.Request {
	req.Header.Set(APIKeyHeader, key)
	return req
}

// WithRequestID sets an inbound request id header, as a proxy would.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	req.Header.Set("X-Request-ID", requestID)
	return req
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
