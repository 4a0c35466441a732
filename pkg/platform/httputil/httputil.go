// Package httputil holds the JSON response and request helpers shared by
// every handler.
package httputil

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	dErrors "github.com/rpsinghcodes/pg-db-crud/pkg/domain-errors"
)

// MaxBodyBytes bounds request bodies; every request here is a few names.
const MaxBodyBytes = 64 * 1024

const genericMessage = "internal server error"

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  string `json:"detail,omitempty"`
}

// Validatable is implemented by request types decoded with DecodeAndPrepare.
// Validate may normalise fields in place.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into a status and the failure envelope.
func WriteError(w http.ResponseWriter, err error) {
	writeError(w, err, false)
}

// WriteErrorDetail is WriteError plus the full error chain in "detail".
// Only for non-production environments: the chain can name internals.
func WriteErrorDetail(w http.ResponseWriter, err error) {
	writeError(w, err, true)
}

func writeError(w http.ResponseWriter, err error, detail bool) {
	code := dErrors.CodeOf(err)
	status := StatusFor(code)
	resp := ErrorResponse{
		Success: false,
		Message: clientMessage(code, err),
		Error:   string(code),
	}
	if detail && err != nil {
		resp.Detail = err.Error()
	}
	WriteJSON(w, status, resp)
}

// StatusFor maps a domain code to its HTTP status.
func StatusFor(code dErrors.Code) int {
	switch code {
	case dErrors.CodeValidation, dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict, dErrors.CodeReference:
		return http.StatusConflict
	case dErrors.CodeConnectivity, dErrors.CodeCanceled:
		return http.StatusServiceUnavailable
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage hides messages of unclassified and configuration failures;
// every other domain message is written for clients.
func clientMessage(code dErrors.Code, err error) string {
	switch code {
	case dErrors.CodeInternal, dErrors.CodeConfig:
		return genericMessage
	}
	return dErrors.Message(err)
}

// DecodeAndPrepare decodes the JSON body into T and validates it. On failure
// it writes the error response, logs, and returns false.
func DecodeAndPrepare[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	var req T
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		msg := "invalid request body"
		if errors.Is(err, io.EOF) {
			msg = "request body is required"
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg = "request body too large"
		}
		logger.WarnContext(ctx, "failed to decode request",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, msg))
		return nil, false
	}

	if v, ok := any(&req).(Validatable); ok {
		if err := v.Validate(); err != nil {
			logger.WarnContext(ctx, "invalid request",
				"request_id", requestID,
				"error", err,
			)
			WriteError(w, err)
			return nil, false
		}
	}
	return &req, true
}
