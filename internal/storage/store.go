package storage

import (
	"context"
)

// TokenStore — хранилище bearer-токенов и rate limit на логин.
// Реализации: redis.Client, memory.Client (для -dev без Redis).
type TokenStore interface {
	SetToken(ctx context.Context, token, userID string) error
	// GetToken возвращает userID владельца токена, "" если токен не найден или истёк.
	GetToken(ctx context.Context, token string) (string, error)
	DeleteToken(ctx context.Context, token string) error
	CheckLoginRateLimit(ctx context.Context, email string) (allowed bool, err error)
	Close() error
}
