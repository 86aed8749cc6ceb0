package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pkordes/tripchat/backend/internal/domain"
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps ErrorDetail as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// writeError writes an ErrorResponse with the given status and code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// requestError rejects a request before it reaches the service layer
// (e.g. missing or malformed body).
func requestError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnprocessableEntity, "validation_error", message)
}

// serviceError maps a service or session error onto a status code.
// notFound is the message used for domain.ErrNotFound, e.g. "trip not found".
func serviceError(w http.ResponseWriter, r *http.Request, err error, notFound string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", notFound)
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrInvalidRange):
		writeError(w, http.StatusUnprocessableEntity, "invalid_range", unwrapMessage(err, domain.ErrInvalidRange))
	case errors.Is(err, domain.ErrMandatoryActivityProtected):
		writeError(w, http.StatusUnprocessableEntity, "mandatory_activity_protected",
			"flights, check-in/check-out and transfers cannot be replaced from the conversation")
	case errors.Is(err, domain.ErrMutationInProgress):
		writeError(w, http.StatusConflict, "mutation_in_progress", domain.ErrMutationInProgress.Error())
	case errors.Is(err, domain.ErrNoPendingAction):
		writeError(w, http.StatusConflict, "no_pending_action", domain.ErrNoPendingAction.Error())
	case errors.Is(err, domain.ErrGenerationFailure):
		writeError(w, http.StatusBadGateway, "generation_failure", domain.ErrGenerationFailure.Error())
	case errors.Is(err, domain.ErrPersistenceFailure):
		writeError(w, http.StatusServiceUnavailable, "persistence_failure", domain.ErrPersistenceFailure.Error())
	default:
		slog.ErrorContext(r.Context(), "unhandled error", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// unwrapMessage extracts the human-readable part after a wrapped sentinel.
// e.g. "service.TripService.Create: validation error: destination is required" → "destination is required"
func unwrapMessage(err, sentinel error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}
