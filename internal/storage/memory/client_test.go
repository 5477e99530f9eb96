package memory

import (
	"context"
	"testing"
)

func TestTokenRoundTrip(t *testing.T) {
	c := New()
	ctx := context.Background()

	if err := c.SetToken(ctx, "tok-1", "user-1"); err != nil {
		t.Fatalf("SetToken: %v", err)
	}
	got, err := c.GetToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if got != "user-1" {
		t.Errorf("GetToken = %q, want user-1", got)
	}

	if err := c.DeleteToken(ctx, "tok-1"); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	got, err = c.GetToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetToken after delete: %v", err)
	}
	if got != "" {
		t.Errorf("GetToken after delete = %q, want empty", got)
	}
}

func TestGetTokenUnknown(t *testing.T) {
	c := New()
	got, err := c.GetToken(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if got != "" {
		t.Errorf("GetToken = %q, want empty", got)
	}
}

func TestLoginRateLimit(t *testing.T) {
	c := New()
	ctx := context.Background()

	for i := 0; i < loginRateLimitMax; i++ {
		ok, err := c.CheckLoginRateLimit(ctx, "a@b.c")
		if err != nil {
			t.Fatalf("CheckLoginRateLimit: %v", err)
		}
		if !ok {
			t.Fatalf("attempt %d blocked, want allowed", i+1)
		}
	}
	ok, err := c.CheckLoginRateLimit(ctx, "a@b.c")
	if err != nil {
		t.Fatalf("CheckLoginRateLimit: %v", err)
	}
	if ok {
		t.Error("attempt above the limit allowed, want blocked")
	}

	// другой email не делит окно
	ok, err = c.CheckLoginRateLimit(ctx, "x@y.z")
	if err != nil {
		t.Fatalf("CheckLoginRateLimit: %v", err)
	}
	if !ok {
		t.Error("fresh email blocked, want allowed")
	}
}
