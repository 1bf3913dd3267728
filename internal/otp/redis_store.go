package otp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "otp:v1:"

// verifyScript runs the whole verification sequence server-side so the
// check-increment-mark transitions are atomic per reference id across
// instances. The entry keeps its own created_at because a key evicted by
// Redis TTL alone could not be told apart from one that never existed.
var verifyScript = redis.NewScript(`
local fields = redis.call('HGETALL', KEYS[1])
if #fields == 0 then
  return 'not_found'
end
local e = {}
for i = 1, #fields, 2 do
  e[fields[i]] = fields[i + 1]
end
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])
local max = tonumber(ARGV[5])
if now - tonumber(e.created_at) > ttl then
  redis.call('DEL', KEYS[1])
  return 'expired'
end
if e.verified == '1' then
  return 'already_verified'
end
if tonumber(e.attempts) >= max then
  redis.call('DEL', KEYS[1])
  return 'too_many_attempts'
end
local attempts = redis.call('HINCRBY', KEYS[1], 'attempts', 1)
if e.code ~= ARGV[2] or e.phone ~= ARGV[1] then
  if attempts >= max then
    redis.call('DEL', KEYS[1])
    return 'too_many_attempts'
  end
  return 'invalid'
end
redis.call('HSET', KEYS[1], 'verified', '1')
return 'valid'
`)

// RedisStore is a Store backed by Redis, a drop-in replacement for
// MemoryStore when the service runs on more than one instance.
type RedisStore struct {
	client      redis.UniversalClient
	ttl         time.Duration
	maxAttempts int
	rules       PhoneRules
}

// NewRedisStore builds a Redis-backed OTP store.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration, maxAttempts int, rules PhoneRules) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, maxAttempts: maxAttempts, rules: rules}
}

// Put inserts a fresh entry. The key TTL is twice the logical TTL so an
// expired entry is still observable as Expired before Redis reaps it.
func (s *RedisStore) Put(ctx context.Context, referenceID, phone, code string, now time.Time) error {
	key := redisKeyPrefix + referenceID
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"code":       code,
		"phone":      s.rules.Normalize(phone),
		"created_at": strconv.FormatInt(now.Unix(), 10),
		"attempts":   "0",
		"verified":   "0",
	})
	pipe.Expire(ctx, key, 2*s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store otp entry: %w", err)
	}
	return nil
}

// Verify delegates the check sequence to the Lua script.
func (s *RedisStore) Verify(ctx context.Context, referenceID, phone, code string, now time.Time) (Outcome, error) {
	res, err := verifyScript.Run(ctx, s.client,
		[]string{redisKeyPrefix + referenceID},
		s.rules.Normalize(phone),
		code,
		now.Unix(),
		int64(s.ttl.Seconds()),
		s.maxAttempts,
	).Text()
	if err != nil {
		return 0, fmt.Errorf("verify otp entry: %w", err)
	}

	switch res {
	case "valid":
		return OutcomeValid, nil
	case "invalid":
		return OutcomeInvalid, nil
	case "not_found":
		return OutcomeNotFound, nil
	case "expired":
		return OutcomeExpired, nil
	case "already_verified":
		return OutcomeAlreadyVerified, nil
	case "too_many_attempts":
		return OutcomeTooManyAttempts, nil
	default:
		return 0, fmt.Errorf("unexpected verify result %q", res)
	}
}

// Remove drops the entry if present.
func (s *RedisStore) Remove(ctx context.Context, referenceID string) error {
	if err := s.client.Del(ctx, redisKeyPrefix+referenceID).Err(); err != nil {
		return fmt.Errorf("remove otp entry: %w", err)
	}
	return nil
}

// Cleanup is a no-op: Redis expires keys server-side via the TTL set in Put.
func (s *RedisStore) Cleanup(context.Context, time.Time) error {
	return nil
}
