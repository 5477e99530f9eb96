package middleware

import (
	"context"

	"github.com/visaflow/internal/model"
)

type contextKey string

const identityKey contextKey = "identity"

// GetIdentity возвращает Identity из контекста (устанавливается Auth).
// Второе значение false, если запрос прошёл без аутентификации.
func GetIdentity(ctx context.Context) (model.Identity, bool) {
	v, ok := ctx.Value(identityKey).(model.Identity)
	return v, ok
}

// WithIdentity кладёт Identity в контекст. Используется в тестах handlers.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}
