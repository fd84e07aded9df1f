// Package ratelimit enforces a minimum interval between a user's successive
// comments in a live session, backed by Redis. The check is advisory and
// best-effort: the read-then-decide sequence is not atomic, so two
// near-simultaneous comments from the same user can both pass before either
// timestamp is durable. That race is accepted for a soft anti-spam control.
package ratelimit

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// LastCommentPrefix is the Redis key prefix for last-comment timestamps.
// Keys are LastCommentPrefix + <session_id> + ":" + <user_id> and hold the
// Unix timestamp of the user's most recent accepted comment.
const LastCommentPrefix = "rl:comment:"

// Decision is the outcome of a rate limit check.
type Decision struct {
	Allowed     bool
	Reason      string
	WaitSeconds int
}

// Limiter performs minimum-interval checks against Redis.
type Limiter struct {
	client *redis.Client
}

// NewLimiter creates a Limiter backed by the given Redis client.
func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

func key(sessionID, userID string) string {
	return LastCommentPrefix + sessionID + ":" + userID
}

// CanSend reports whether the user may send another comment in the session
// given the configured minimum interval. An interval of zero always allows.
// On Redis errors the check fails open so a Redis outage does not silence
// every session.
func (l *Limiter) CanSend(ctx context.Context, sessionID, userID string, interval time.Duration) (Decision, error) {
	if interval <= 0 {
		return Decision{Allowed: true}, nil
	}

	val, err := l.client.Get(ctx, key(sessionID, userID)).Result()
	if errors.Is(err, redis.Nil) {
		return Decision{Allowed: true}, nil
	}
	if err != nil {
		log.Printf("[ratelimit] redis GET error session=%s user=%s: %v (failing open)", sessionID, userID, err)
		return Decision{Allowed: true}, err
	}

	lastUnix, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Unparseable value means a corrupt key; treat as absent.
		return Decision{Allowed: true}, nil
	}

	elapsed := time.Since(time.Unix(lastUnix, 0))
	if elapsed >= interval {
		return Decision{Allowed: true}, nil
	}

	wait := interval - elapsed
	waitSeconds := int((wait + time.Second - 1) / time.Second)
	return Decision{
		Allowed:     false,
		Reason:      "rate_limited",
		WaitSeconds: waitSeconds,
	}, nil
}

// Record stores the current time as the user's last-comment timestamp. The
// key expires after the interval, at which point its absence means the user
// is allowed anyway. Called after a comment is accepted.
func (l *Limiter) Record(ctx context.Context, sessionID, userID string, interval time.Duration) error {
	if interval <= 0 {
		return nil
	}
	now := strconv.FormatInt(time.Now().Unix(), 10)
	return l.client.Set(ctx, key(sessionID, userID), now, interval).Err()
}
