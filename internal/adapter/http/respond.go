package http

import (
	"encoding/json"
	"net/http"

	"github.com/alemudanse/dispatch/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps an error kind to its HTTP status. Unclassified errors
// are internal failures and hide their message.
func writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case domain.KindInvalidParams, domain.KindBadStatus:
		status = http.StatusBadRequest
	case domain.KindUnauthenticated:
		status = http.StatusUnauthorized
	case domain.KindForbidden:
		status = http.StatusForbidden
	case domain.KindNotFound:
		status = http.StatusNotFound
	case domain.KindExpired:
		status = http.StatusGone
	case domain.KindRateLimited:
		status = http.StatusTooManyRequests
	}

	msg := err.Error()
	if kind == "" {
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Kind: string(kind)})
}
