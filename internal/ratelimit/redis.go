package ratelimit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindowScript applies one request to a hash {start, count} in a single
// atomic step. Times are unix milliseconds.
//
// Returns {allowed, count, start}.
var fixedWindowScript = redis.NewScript(`
local key    = KEYS[1]
local now    = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local max    = tonumber(ARGV[3])
local ttl    = tonumber(ARGV[4])

local start = tonumber(redis.call('HGET', key, 'start'))
local count = tonumber(redis.call('HGET', key, 'count'))

if start == nil or count == nil or (now - start) > window then
  redis.call('HSET', key, 'start', now, 'count', 1)
  redis.call('PEXPIRE', key, ttl)
  return {1, 1, now}
end

if count >= max then
  return {0, count, start}
end

count = redis.call('HINCRBY', key, 'count', 1)
return {1, count, start}
`)

// RedisStore keeps window state in Redis so several server processes share
// one limit per client key.
type RedisStore struct {
	rdb    redis.Scripter
	policy Policy
	prefix string
}

var _ Store = (*RedisStore)(nil)

type RedisOption func(*RedisStore)

// WithKeyPrefix sets the Redis key namespace. Default "ratelimit:contact".
func WithKeyPrefix(prefix string) RedisOption {
	return func(s *RedisStore) { s.prefix = strings.Trim(prefix, ":") }
}

// NewRedisStore creates a Store backed by rdb.
func NewRedisStore(rdb redis.Scripter, policy Policy, opts ...RedisOption) *RedisStore {
	s := &RedisStore{
		rdb:    rdb,
		policy: policy,
		prefix: "ratelimit:contact",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Allow implements Store.
func (s *RedisStore) Allow(ctx context.Context, key string, now time.Time) (Result, error) {
	window := s.policy.Window.Milliseconds()
	// keep the hash a little past the window so "strictly exceeded" is decided
	// by the script, not by expiry
	ttl := window + time.Second.Milliseconds()

	vals, err := fixedWindowScript.Run(ctx, s.rdb,
		[]string{s.prefix + ":" + key},
		now.UnixMilli(), window, s.policy.Max, ttl,
	).Int64Slice()
	if err != nil {
		return Result{}, fmt.Errorf("ratelimit: redis: %w", err)
	}
	if len(vals) != 3 {
		return Result{}, fmt.Errorf("ratelimit: redis: unexpected reply length %d", len(vals))
	}

	start := time.UnixMilli(vals[2])
	res := Result{
		Allowed:     vals[0] == 1,
		Count:       int(vals[1]),
		WindowStart: start,
	}
	if !res.Allowed {
		res.RetryAfter = s.policy.retryAfter(start, now)
	}
	return res, nil
}
