package ratelimit

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// newTestLimiter creates a Limiter connected to a local Redis instance and
// clears leftover test keys. Tests that call this helper require a running
// Redis on localhost:6379.
func newTestLimiter(t *testing.T) (*Limiter, *redis.Client) {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	cleanup := func() {
		iter := client.Scan(ctx, 0, LastCommentPrefix+"test_*", 100).Iterator()
		for iter.Next(ctx) {
			client.Del(ctx, iter.Val())
		}
	}
	cleanup()
	t.Cleanup(func() {
		cleanup()
		client.Close()
	})
	return NewLimiter(client), client
}

func TestCanSend_NoInterval(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	d, err := limiter.CanSend(context.Background(), "test_s1", "u1", 0)
	if err != nil {
		t.Fatalf("CanSend() error: %v", err)
	}
	if !d.Allowed {
		t.Error("zero interval should always allow")
	}
}

func TestCanSend_FirstComment(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	d, err := limiter.CanSend(context.Background(), "test_s1", "u_first", 5*time.Second)
	if err != nil {
		t.Fatalf("CanSend() error: %v", err)
	}
	if !d.Allowed {
		t.Error("user with no prior comment should be allowed")
	}
}

func TestCanSend_WithinInterval(t *testing.T) {
	limiter, client := newTestLimiter(t)
	ctx := context.Background()

	// Last comment 2 seconds ago with a 5 second interval: wait 3.
	last := time.Now().Add(-2 * time.Second).Unix()
	if err := client.Set(ctx, LastCommentPrefix+"test_s1:u_wait", strconv.FormatInt(last, 10), 5*time.Second).Err(); err != nil {
		t.Fatalf("seed key: %v", err)
	}

	d, err := limiter.CanSend(ctx, "test_s1", "u_wait", 5*time.Second)
	if err != nil {
		t.Fatalf("CanSend() error: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected disallowed within interval")
	}
	if d.Reason != "rate_limited" {
		t.Errorf("Reason = %q, want %q", d.Reason, "rate_limited")
	}
	if d.WaitSeconds != 3 {
		t.Errorf("WaitSeconds = %d, want 3", d.WaitSeconds)
	}
}

func TestCanSend_AfterInterval(t *testing.T) {
	limiter, client := newTestLimiter(t)
	ctx := context.Background()

	last := time.Now().Add(-10 * time.Second).Unix()
	if err := client.Set(ctx, LastCommentPrefix+"test_s1:u_old", strconv.FormatInt(last, 10), 0).Err(); err != nil {
		t.Fatalf("seed key: %v", err)
	}

	d, err := limiter.CanSend(ctx, "test_s1", "u_old", 5*time.Second)
	if err != nil {
		t.Fatalf("CanSend() error: %v", err)
	}
	if !d.Allowed {
		t.Errorf("expected allowed after interval elapsed, got wait=%d", d.WaitSeconds)
	}
}

func TestRecordThenCanSend(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	if err := limiter.Record(ctx, "test_s1", "u_rec", 5*time.Second); err != nil {
		t.Fatalf("Record() error: %v", err)
	}

	d, err := limiter.CanSend(ctx, "test_s1", "u_rec", 5*time.Second)
	if err != nil {
		t.Fatalf("CanSend() error: %v", err)
	}
	if d.Allowed {
		t.Fatal("expected disallowed immediately after Record")
	}
	if d.WaitSeconds < 1 || d.WaitSeconds > 5 {
		t.Errorf("WaitSeconds = %d, want within (0,5]", d.WaitSeconds)
	}
}
