// Package response provides the HTTP response helpers shared by every
// handler: JSON encoding and the error-kind-to-status-code mapping defined
// in the error handling design.
package response

import (
	"encoding/json"
	"net/http"

	"tivoli/internal/apperrors"
	"tivoli/internal/logging"
)

// errorBody is the wire shape for every error response: a single message
// string, never a nested object, so storage-error causes cannot leak
// through an extra field.
type errorBody struct {
	Error string `json:"error"`
}

// WriteJSON encodes data as the response body with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logging.ServerLogger.WithError(err).Error("failed to encode response body")
	}
}

// WriteNoContent writes a bare 204, used by successful tag replacements.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError maps err to the transport status and body the error handling
// design defines: NotFound/BadRequest are surfaced verbatim, anything else
// (including a raw, un-kinded error) is treated as a storage error and
// replaced with a generic message — its cause is logged, never returned.
func WriteError(w http.ResponseWriter, err error) {
	switch {
	case apperrors.Is(err, apperrors.KindNotFound):
		WriteJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case apperrors.Is(err, apperrors.KindBadRequest):
		WriteJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		logging.ServerLogger.WithError(err).Error("unhandled storage error")
		WriteJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}
