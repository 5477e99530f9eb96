package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/visaflow/internal/repository"
	"github.com/visaflow/internal/service"
)

func TestWriteServiceError(t *testing.T) {
	cases := []struct {
		err        error
		wantStatus int
	}{
		{fmt.Errorf("%w: passport number is required", service.ErrValidation), http.StatusBadRequest},
		{fmt.Errorf("%w: request is already completed", service.ErrInvalidState), http.StatusBadRequest},
		{service.ErrForbidden, http.StatusForbidden},
		{fmt.Errorf("%w: email already registered", service.ErrConflict), http.StatusConflict},
		{service.ErrUnauthenticated, http.StatusUnauthorized},
		{service.ErrRateLimited, http.StatusTooManyRequests},
		{repository.ErrNotFound, http.StatusNotFound},
		{errors.New("pgx: broken pipe"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeServiceError(rec, tc.err)
		if rec.Code != tc.wantStatus {
			t.Errorf("%v: status = %d, want %d", tc.err, rec.Code, tc.wantStatus)
		}
		var env envelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%v: invalid envelope: %v", tc.err, err)
		}
		if env.Status != "error" {
			t.Errorf("%v: envelope status = %q, want error", tc.err, env.Status)
		}
	}

	// внутренние ошибки не утекают наружу
	rec := httptest.NewRecorder()
	writeServiceError(rec, errors.New("pgx: connect failed for user visaflow"))
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope: %v", err)
	}
	if env.Message != "internal server error" {
		t.Errorf("internal error message = %q leaked details", env.Message)
	}
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/notifications?limit=25&bad=x", nil)
	if got := queryInt(req, "limit", 50); got != 25 {
		t.Errorf("limit = %d, want 25", got)
	}
	if got := queryInt(req, "bad", 50); got != 50 {
		t.Errorf("bad = %d, want fallback 50", got)
	}
	if got := queryInt(req, "missing", 50); got != 50 {
		t.Errorf("missing = %d, want fallback 50", got)
	}
}
