package memory

import (
	"context"
	"sync"
	"time"
)

const (
	tokenTTL             = 30 * 24 * time.Hour
	loginRateLimitWindow = 600 * time.Second
	loginRateLimitMax    = 10
)

type item struct {
	val string
	exp time.Time
}

type Client struct {
	mu     sync.RWMutex
	tokens map[string]item
	limit  map[string][]time.Time
}

func New() *Client {
	return &Client{
		tokens: make(map[string]item),
		limit:  make(map[string][]time.Time),
	}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetToken(ctx context.Context, token, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[token] = item{val: userID, exp: time.Now().Add(tokenTTL)}
	return nil
}

func (c *Client) GetToken(ctx context.Context, token string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.tokens[token]
	if !ok || time.Now().After(v.exp) {
		return "", nil
	}
	return v.val, nil
}

func (c *Client) DeleteToken(ctx context.Context, token string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, token)
	return nil
}

func (c *Client) CheckLoginRateLimit(ctx context.Context, email string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now()
	cut := now.Add(-loginRateLimitWindow)
	slice := c.limit[email]
	var kept []time.Time
	for _, t := range slice {
		if t.After(cut) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= loginRateLimitMax {
		return false, nil
	}
	kept = append(kept, now)
	c.limit[email] = kept
	return true, nil
}
