package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/visaflow/internal/logger"
	"github.com/visaflow/internal/model"
	"github.com/visaflow/internal/repository"
)

// Identifier разрешает bearer-токен в Identity (реализуется service.AuthService).
type Identifier interface {
	Identify(ctx context.Context, token string) (model.Identity, error)
}

// BearerToken извлекает токен из Authorization: Bearer <token>.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeAuthError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"status": "error", "message": msg})
}

// Auth проверяет bearer-токен и кладёт Identity в контекст.
// Токен без живого пользователя — 404 (аккаунт удалён), всё остальное — 401.
func Auth(ident Identifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			id, err := ident.Identify(r.Context(), token)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					writeAuthError(w, http.StatusNotFound, "user not found")
					return
				}
				logger.Infof("auth: reject token %s: %v", MaskToken(token), err)
				writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), identityKey, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
