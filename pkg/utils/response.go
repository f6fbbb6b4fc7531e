// Package utils holds the JSON response helpers shared by every handler.
package utils

import (
	"encoding/json"
	"errors"
	"net/http"

	"igdm/internal/errs"
	"igdm/internal/model/api"
)

// RespondJSON writes payload with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// RespondError maps err onto the transport contract: a structured error
// object with a stable kind, never a success-shaped body with null fields.
func RespondError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)

	body := api.ErrorBody{Kind: string(kind)}
	var e *errs.Error
	if errors.As(err, &e) {
		body.Message = e.Message
		body.RetryAfterSeconds = int(e.RetryAfter.Seconds())
	} else {
		// Unclassified errors never leak internals.
		body.Message = "internal error"
	}

	RespondJSON(w, errs.HTTPStatus(kind), api.ErrorResponse{Error: body})
}

// RespondErrorKind is RespondError for ad hoc failures.
func RespondErrorKind(w http.ResponseWriter, kind errs.Kind, message string) {
	RespondError(w, errs.New(kind, message))
}
