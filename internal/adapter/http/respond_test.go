package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alemudanse/dispatch/internal/domain"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	t.Parallel()

	cases := []struct {
		kind domain.Kind
		want int
	}{
		{domain.KindInvalidParams, http.StatusBadRequest},
		{domain.KindBadStatus, http.StatusBadRequest},
		{domain.KindUnauthenticated, http.StatusUnauthorized},
		{domain.KindForbidden, http.StatusForbidden},
		{domain.KindNotFound, http.StatusNotFound},
		{domain.KindExpired, http.StatusGone},
		{domain.KindRateLimited, http.StatusTooManyRequests},
	}

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, domain.E(tc.kind, "boom"))
		if rec.Code != tc.want {
			t.Errorf("kind %s: status = %d, want %d", tc.kind, rec.Code, tc.want)
		}

		var body errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("kind %s: unmarshal: %v", tc.kind, err)
		}
		if body.Kind != string(tc.kind) {
			t.Errorf("kind %s: body kind = %q", tc.kind, body.Kind)
		}
		if body.Error != "boom" {
			t.Errorf("kind %s: body error = %q", tc.kind, body.Error)
		}
	}
}

func TestWriteErrorHidesInternalMessage(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeError(rec, errors.New("pq: connection refused"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	var body errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Error != "internal server error" {
		t.Errorf("error = %q, want generic message", body.Error)
	}
}
