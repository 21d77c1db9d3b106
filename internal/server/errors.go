package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"auditview/internal/prefs"
)

var errBadRequest = errors.New("bad request")

// apiError is the JSON body of every non-2xx response.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code. Unrecognised errors are internal.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := http.StatusInternalServerError, "internal"
	switch {
	case errors.Is(err, errBadRequest), errors.Is(err, prefs.ErrInvalidPageSize):
		status, code = http.StatusBadRequest, "invalid_argument"
	case errors.Is(err, prefs.ErrNotJSON):
		status, code = http.StatusBadRequest, "invalid_argument"
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "error", err, "request_id", RequestID(r.Context()))
	}
	writeJSON(w, status, apiError{Code: code, Message: err.Error()})
}
