package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var pinRateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisPINRateLimiter implements distributed PIN-attempt limiting using Redis.
type RedisPINRateLimiter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisPINRateLimiter(client redis.UniversalClient, prefix string) *RedisPINRateLimiter {
	trimmedPrefix := strings.TrimSpace(prefix)
	if trimmedPrefix == "" {
		trimmedPrefix = "instapay:rate_limit"
	}
	trimmedPrefix = strings.TrimSuffix(trimmedPrefix, ":")

	return &RedisPINRateLimiter{
		client: client,
		prefix: trimmedPrefix,
	}
}

func (r *RedisPINRateLimiter) key(scope, subject string) string {
	return fmt.Sprintf("%s:%s:%s", r.prefix, strings.TrimSpace(scope), strings.ToLower(strings.TrimSpace(subject)))
}

// PeekRateLimit reads the current failure count for a subject without
// charging an attempt. A missing key reads as zero.
func (r *RedisPINRateLimiter) PeekRateLimit(
	ctx context.Context,
	scope string,
	subject string,
) (count int, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil {
		return 0, 0, nil
	}
	if strings.TrimSpace(scope) == "" || strings.TrimSpace(subject) == "" {
		return 0, 0, nil
	}

	key := r.key(scope, subject)
	raw, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}

	current, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, 0, fmt.Errorf("unexpected redis limiter count value %q: %w", raw, err)
	}

	ttl, err := r.client.PTTL(ctx, key).Result()
	if err != nil {
		return current, 0, err
	}
	retryAfter := int(math.Ceil(ttl.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return current, retryAfter, nil
}

func (r *RedisPINRateLimiter) ConsumeRateLimit(
	ctx context.Context,
	scope string,
	subject string,
	limit int,
	window time.Duration,
) (count int, retryAfterSeconds int, err error) {
	if r == nil || r.client == nil || limit <= 0 || window <= 0 {
		return 0, 0, nil
	}

	normalizedScope := strings.TrimSpace(scope)
	normalizedSubject := strings.ToLower(strings.TrimSpace(subject))
	if normalizedScope == "" || normalizedSubject == "" {
		return 0, 0, nil
	}

	windowMs := window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := r.key(normalizedScope, normalizedSubject)
	rawResult, err := pinRateLimitScript.Run(ctx, r.client, []string{key}, windowMs).Result()
	if err != nil {
		return 0, 0, err
	}

	values, ok := rawResult.([]interface{})
	if !ok || len(values) != 2 {
		return 0, 0, fmt.Errorf("unexpected redis limiter response shape: %T", rawResult)
	}

	currentCount, ok := values[0].(int64)
	if !ok {
		return 0, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}

	ttlMs, ok := values[1].(int64)
	if !ok {
		return int(currentCount), 0, fmt.Errorf("unexpected redis limiter ttl type: %T", values[1])
	}
	if ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}

	return int(currentCount), retryAfter, nil
}
