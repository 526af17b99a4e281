package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/guillermoBallester/partscope/internal/core/domain"
	"github.com/guillermoBallester/partscope/internal/core/service"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps service errors to status codes. Rejections carry only the
// generic message; unexpected errors are logged and hidden.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var br *badRequest
	status, msg := http.StatusInternalServerError, "internal error"

	switch {
	case errors.As(err, &br):
		status, msg = http.StatusBadRequest, br.msg
	case errors.Is(err, service.ErrCouldNotRunQuery):
		status, msg = http.StatusUnprocessableEntity, service.ErrCouldNotRunQuery.Error()
	case domain.IsRejected(err):
		status, msg = http.StatusForbidden, domain.ErrRejected.Error()
	case errors.Is(err, service.ErrGeneratorUnavailable):
		status, msg = http.StatusServiceUnavailable, err.Error()
	case errors.Is(err, service.ErrEmptyQuestion),
		errors.Is(err, domain.ErrUnknownSource),
		errors.Is(err, domain.ErrInvalidIdentifier):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()
	}

	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			slog.String("http.route", routePattern(r)),
			slog.String("error.message", err.Error()),
		)
	}
	writeJSON(w, status, errorBody{Error: msg})
}
