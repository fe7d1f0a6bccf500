// Package response renders JSON responses and maps domain errors onto the
// HTTP error taxonomy.
package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shapr-cms/shapr/internal/access"
	"github.com/shapr-cms/shapr/internal/hooks"
	"github.com/shapr-cms/shapr/internal/query"
	"github.com/shapr-cms/shapr/internal/runtime"
	"github.com/shapr-cms/shapr/internal/store"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// RenderJSON writes a JSON body with the given status.
func RenderJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// RenderData wraps a single document in the data envelope.
func RenderData(w http.ResponseWriter, statusCode int, doc any) {
	RenderJSON(w, statusCode, map[string]any{"data": doc})
}

// RenderError writes an error body, deriving the code from the status.
func RenderError(w http.ResponseWriter, statusCode int, err error) {
	RenderErrorWithCode(w, statusCode, err, errorCodeFromStatus(statusCode))
}

// RenderErrorWithCode writes an error body with an explicit error code.
func RenderErrorWithCode(w http.ResponseWriter, statusCode int, err error, code string) {
	RenderJSON(w, statusCode, &ErrorResponse{
		Error:   "error",
		Message: err.Error(),
		Code:    code,
	})
}

// RenderDomainError maps a runtime error onto the taxonomy: invalid queries,
// cancelled operations and validation failures are client errors; denied
// access is 401 for anonymous callers and 403 otherwise; unknown collections
// and missing documents are 404; anything else, hook failures included, is a
// server error.
func RenderDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, query.ErrInvalidQuery):
		RenderErrorWithCode(w, http.StatusBadRequest, err, "invalid_query")
	case errors.Is(err, hooks.ErrOperationCancelled):
		RenderErrorWithCode(w, http.StatusBadRequest, err, "operation_cancelled")
	case errors.Is(err, runtime.ErrValidation):
		RenderErrorWithCode(w, http.StatusBadRequest, err, "validation_error")
	case errors.Is(err, runtime.ErrAccessDenied):
		if access.FromContext(r.Context()).Authenticated() {
			RenderError(w, http.StatusForbidden, err)
		} else {
			RenderError(w, http.StatusUnauthorized, err)
		}
	case errors.Is(err, runtime.ErrUnknownCollection), store.IsNotFound(err):
		RenderError(w, http.StatusNotFound, err)
	default:
		RenderErrorWithCode(w, http.StatusInternalServerError, err, "hook_failure")
	}
}

func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		return "error"
	}
}
