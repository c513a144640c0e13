package ratelimit

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestLimiter(t *testing.T) (*Limiter, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewLimiter(client, true, true, nil), client
}

func TestEvaluateBurstThenReject(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	const maxCalls = 5
	for i := 0; i < maxCalls; i++ {
		dec, err := limiter.Evaluate(ctx, "ip:203.0.113.7", "/login", maxCalls, time.Minute)
		require.NoError(t, err)
		assert.True(t, dec.Allowed, "call %d should be admitted", i+1)
		assert.Equal(t, maxCalls-i-1, dec.Remaining, "call %d remaining", i+1)
	}

	dec, err := limiter.Evaluate(ctx, "ip:203.0.113.7", "/login", maxCalls, time.Minute)
	require.NoError(t, err)
	assert.False(t, dec.Allowed)
	assert.Equal(t, 0, dec.Remaining)
	assert.GreaterOrEqual(t, dec.RetryAfter, 1)
	assert.LessOrEqual(t, dec.RetryAfter, 60)
}

func TestEvaluateWindowSlides(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	base := time.Now()
	limiter.now = func() time.Time { return base }

	const maxCalls = 3
	for i := 0; i < maxCalls; i++ {
		dec, err := limiter.Evaluate(ctx, "user:42", "/books", maxCalls, 10*time.Second)
		require.NoError(t, err)
		require.True(t, dec.Allowed)
	}

	dec, err := limiter.Evaluate(ctx, "user:42", "/books", maxCalls, 10*time.Second)
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	// Once the oldest admitted request falls out of the trailing window the
	// key admits again.
	limiter.now = func() time.Time { return base.Add(11 * time.Second) }
	dec, err = limiter.Evaluate(ctx, "user:42", "/books", maxCalls, 10*time.Second)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestEvaluateKeysAreIndependentPerEndpoint(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	dec, err := limiter.Evaluate(ctx, "user:42", "/books", 1, time.Minute)
	require.NoError(t, err)
	require.True(t, dec.Allowed)

	dec, err = limiter.Evaluate(ctx, "user:42", "/books", 1, time.Minute)
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	// Same identifier, different route: fresh window.
	dec, err = limiter.Evaluate(ctx, "user:42", "/orders", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestEvaluateConcurrentExactAdmission(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	const n = 25
	var admitted, rejected atomic.Int64
	var g errgroup.Group
	for i := 0; i < 2*n; i++ {
		g.Go(func() error {
			dec, err := limiter.Evaluate(ctx, "user:burst", "/checkout", n, time.Minute)
			if err != nil {
				return err
			}
			if dec.Allowed {
				admitted.Add(1)
			} else {
				rejected.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int64(n), admitted.Load())
	assert.Equal(t, int64(n), rejected.Load())
}

func TestEvaluateDisabledNeverTouchesStore(t *testing.T) {
	// A nil client guarantees any store call would panic the test.
	limiter := NewLimiter(nil, false, true, nil)
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		dec, err := limiter.Evaluate(ctx, "user:42", "/books", 10, time.Minute)
		require.NoError(t, err)
		require.True(t, dec.Allowed)
		require.Equal(t, 10, dec.Remaining)
	}
}

func TestEvaluateStoreDownReturnsError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := NewLimiter(client, true, true, nil)

	mr.Close()

	_, err := limiter.Evaluate(context.Background(), "user:42", "/books", 10, time.Minute)
	assert.Error(t, err)
}

func TestReset(t *testing.T) {
	limiter, _ := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := limiter.Evaluate(ctx, "user:42", "/books", 2, time.Minute)
		require.NoError(t, err)
	}
	dec, err := limiter.Evaluate(ctx, "user:42", "/books", 2, time.Minute)
	require.NoError(t, err)
	require.False(t, dec.Allowed)

	require.NoError(t, limiter.Reset(ctx, "user:42", "/books"))

	dec, err = limiter.Evaluate(ctx, "user:42", "/books", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, dec.Allowed)
}

func TestEvaluateKeyExpirySet(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	limiter := NewLimiter(client, true, true, nil)

	_, err := limiter.Evaluate(context.Background(), "user:42", "/books", 5, 30*time.Second)
	require.NoError(t, err)

	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Equal(t, 30*time.Second, mr.TTL(keys[0]))
}
