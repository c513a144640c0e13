// Package ratelimit implements a distributed sliding-window rate limiter on
// top of Redis sorted sets.
package ratelimit

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rate_limit:"

// Decision is the outcome of one evaluation. It is never persisted.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int // seconds; zero when allowed
}

// Limiter tracks request timestamps per (identifier, endpoint) key in Redis.
// A single Limiter is shared by all concurrent requests; each evaluation is
// one self-contained MULTI/EXEC transaction, so no in-process locking is
// needed.
type Limiter struct {
	client   *redis.Client
	enabled  bool
	failOpen bool
	logger   *slog.Logger
	now      func() time.Time
}

// NewLimiter constructs a Limiter. With enabled=false every evaluation
// short-circuits to admitted without touching Redis. failOpen selects the
// policy for store failures: admit (true) or reject (false).
func NewLimiter(client *redis.Client, enabled, failOpen bool, logger *slog.Logger) *Limiter {
	return &Limiter{
		client:   client,
		enabled:  enabled,
		failOpen: failOpen,
		logger:   logger,
		now:      time.Now,
	}
}

// FailOpen reports the configured store-failure policy.
func (l *Limiter) FailOpen() bool {
	return l.failOpen
}

// Evaluate records the current request under the (identifier, endpoint) key
// and decides whether it fits inside the trailing window of period seconds.
//
// Within one transaction it trims timestamps older than the window, counts
// the survivors, adds the current instant and refreshes the key expiry. The
// count observed before the insertion drives the admit decision, so two
// racing requests can never both read a stale count.
func (l *Limiter) Evaluate(ctx context.Context, identifier, endpoint string, maxCalls int, period time.Duration) (Decision, error) {
	// Checked before any store I/O so a disabled limiter works without Redis.
	if !l.enabled {
		return Decision{Allowed: true, Limit: maxCalls, Remaining: maxCalls}, nil
	}

	key := l.key(identifier, endpoint)
	now := float64(l.now().UnixMicro()) / 1e6
	windowStart := now - period.Seconds()

	var countCmd *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "0", formatScore(windowStart))
		countCmd = pipe.ZCard(ctx, key)
		// The member carries a random suffix so two requests landing on the
		// same microsecond still count as two.
		pipe.ZAdd(ctx, key, redis.Z{Score: now, Member: formatScore(now) + ":" + uuid.NewString()[:8]})
		pipe.Expire(ctx, key, period)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: evaluate %s: %w", key, err)
	}

	count := int(countCmd.Val())
	if count >= maxCalls {
		retryAfter := l.retryAfter(ctx, key, now, period)
		return Decision{Limit: maxCalls, Remaining: 0, RetryAfter: retryAfter}, nil
	}

	return Decision{
		Allowed:   true,
		Limit:     maxCalls,
		Remaining: maxCalls - count - 1,
	}, nil
}

// Reset deletes the window outright. Administrative override, never called
// on the request path.
func (l *Limiter) Reset(ctx context.Context, identifier, endpoint string) error {
	if !l.enabled {
		return nil
	}
	if err := l.client.Del(ctx, l.key(identifier, endpoint)).Err(); err != nil {
		return fmt.Errorf("ratelimit: reset: %w", err)
	}
	return nil
}

// retryAfter derives the wait from the least-recent surviving timestamp.
func (l *Limiter) retryAfter(ctx context.Context, key string, now float64, period time.Duration) int {
	oldest, err := l.client.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil || len(oldest) == 0 {
		if err != nil && l.logger != nil {
			l.logger.Warn("retry-after lookup", slog.String("key", key), slog.Any("error", err))
		}
		return int(period.Seconds())
	}
	return int(period.Seconds()-(now-oldest[0].Score)) + 1
}

// key scopes the window by identifier and endpoint. The endpoint is hashed
// to bound key length.
func (l *Limiter) key(identifier, endpoint string) string {
	sum := md5.Sum([]byte(endpoint))
	return keyPrefix + identifier + ":" + hex.EncodeToString(sum[:])[:8]
}

func formatScore(v float64) string {
	return fmt.Sprintf("%f", v)
}
