package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Токен живёт 30 дней с момента логина; rate limit 10 попыток входа / 10 минут на email.
const (
	TokenTTL             = 30 * 24 * 3600
	LoginRateLimitWindow = 600 // 10 минут
	LoginRateLimitMax    = 10  // попыток за окно
)

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// SetToken сохраняет токен по ключу token:{token}, TTL 30 дней.
func (c *Client) SetToken(ctx context.Context, token, userID string) error {
	return c.cli.Set(ctx, "token:"+token, userID, TokenTTL*time.Second).Err()
}

// GetToken возвращает userID владельца токена. Если ключа нет, возвращает "".
func (c *Client) GetToken(ctx context.Context, token string) (string, error) {
	val, err := c.cli.Get(ctx, "token:"+token).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}

// DeleteToken удаляет токен при логауте.
func (c *Client) DeleteToken(ctx context.Context, token string) error {
	return c.cli.Del(ctx, "token:"+token).Err()
}

// CheckLoginRateLimit проверяет login_limit:{email}: макс. LoginRateLimitMax попыток за окно. При превышении — HTTP 429.
func (c *Client) CheckLoginRateLimit(ctx context.Context, email string) (allowed bool, err error) {
	key := "login_limit:" + email
	n, err := c.cli.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		c.cli.Expire(ctx, key, LoginRateLimitWindow*time.Second)
	}
	return n <= int64(LoginRateLimitMax), nil
}

// FlushDB очищает текущую БД Redis (сброс токенов и rate limit при тестах/перезапуске).
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}
