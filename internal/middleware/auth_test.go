package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/visaflow/internal/model"
	"github.com/visaflow/internal/repository"
)

type fakeIdentifier struct {
	tokens map[string]model.Identity
	err    error
}

func (f *fakeIdentifier) Identify(ctx context.Context, token string) (model.Identity, error) {
	if f.err != nil {
		return model.Identity{}, f.err
	}
	id, ok := f.tokens[token]
	if !ok {
		return model.Identity{}, errors.New("unauthenticated")
	}
	return id, nil
}

func TestAuthMissingToken(t *testing.T) {
	h := Auth(&fakeIdentifier{})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run without a token")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/visa/requests", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthInvalidToken(t *testing.T) {
	h := Auth(&fakeIdentifier{tokens: map[string]model.Identity{}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run on an invalid token")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/visa/requests", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestAuthDeletedUser(t *testing.T) {
	// валидный токен, но запись пользователя исчезла — различимый 404
	h := Auth(&fakeIdentifier{err: repository.ErrNotFound})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not run for a deleted user")
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/visa/requests", nil)
	req.Header.Set("Authorization", "Bearer orphaned")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAuthPutsIdentityInContext(t *testing.T) {
	want := model.Identity{ID: "u1", Role: model.RoleApplicant}
	var got model.Identity
	var ok bool
	h := Auth(&fakeIdentifier{tokens: map[string]model.Identity{"good": want}})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = GetIdentity(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/api/visa/requests", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !ok || got != want {
		t.Errorf("identity = %+v (ok=%v), want %+v", got, ok, want)
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if tok := BearerToken(req); tok != "" {
		t.Errorf("no header: token = %q, want empty", tok)
	}
	req.Header.Set("Authorization", "Bearer abc123")
	if tok := BearerToken(req); tok != "abc123" {
		t.Errorf("token = %q, want abc123", tok)
	}
	req.Header.Set("Authorization", "Basic abc123")
	if tok := BearerToken(req); tok != "" {
		t.Errorf("basic auth: token = %q, want empty", tok)
	}
}
