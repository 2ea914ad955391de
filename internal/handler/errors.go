package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/garagekeeper/backend/internal/domain"
)

// statusClientClosedRequest is the nginx-convention status for a request
// abandoned by the client. net/http has no constant for it.
const statusClientClosedRequest = 499

// ErrorDetail is the machine-readable part of an error payload.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse is the envelope every non-2xx JSON body uses.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// respondJSON writes v as the JSON response body with the given status.
// Encoding failures are logged, not surfaced: the status line is already gone.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response body", "error", err)
	}
}

// respondError maps a service-layer error onto an HTTP status and envelope.
// The mapping is by sentinel, so wrapped errors from any depth resolve the
// same way: not found → 404, validation/format → 422, capacity → 409,
// cancellation → 499, everything else → 500.
func respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		respondJSON(w, http.StatusNotFound, errorBody("not_found", unwrapMessage(err)))
	case errors.Is(err, domain.ErrValidation):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody("validation_error", unwrapMessage(err)))
	case errors.Is(err, domain.ErrFormat):
		respondJSON(w, http.StatusUnprocessableEntity, errorBody("format_error", unwrapMessage(err)))
	case errors.Is(err, domain.ErrCapacity):
		respondJSON(w, http.StatusConflict, errorBody("plan_limit", unwrapMessage(err)))
	case domain.Cancelled(err):
		respondJSON(w, statusClientClosedRequest, errorBody("cancelled", "request cancelled"))
	default:
		slog.Error("internal error", "error", err)
		respondJSON(w, http.StatusInternalServerError, errorBody("internal_error", "internal server error"))
	}
}

// errorBody builds the standard error envelope.
func errorBody(code, message string) ErrorResponse {
	return ErrorResponse{Error: ErrorDetail{Code: code, Message: message}}
}

// requestBody returns an ErrorResponse for a bad request rejected before
// reaching the service layer (e.g. missing or malformed body).
func requestBody(message string) ErrorResponse {
	return errorBody("validation_error", message)
}

// unwrapMessage extracts the human-readable tail from a wrapped sentinel
// error. Service errors look like
// "service.ImportService.Analyze: unrecognized format: no usable header",
// and the method prefix is noise to an API consumer.
func unwrapMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	for _, sentinel := range []string{
		"not found",
		"validation error",
		"unrecognized format",
		"vehicle limit exceeded",
	} {
		if j := strings.Index(msg, sentinel); j >= 0 {
			return msg[j:]
		}
	}
	return msg
}
