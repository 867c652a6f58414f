package ratelimit

import (
	"context"
	"errors"
	"time"

	"cipherid/internal/domain"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "cipherid:ratelimit:"

// fixedWindowScript admits or rejects in one round trip. A rejected request
// does not touch the counter, so a hammering caller cannot keep its own
// window pinned open.
var fixedWindowScript = redis.NewScript(`
local limit = tonumber(ARGV[1])
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= limit then
  return {0, current, redis.call("PTTL", KEYS[1])}
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return {1, current, redis.call("PTTL", KEYS[1])}
`)

type RedisLimiterConfig struct {
	Addr     string
	Password string
	DB       int
	// KeyPrefix namespaces counter keys; defaults to "cipherid:ratelimit:".
	KeyPrefix string
	Now       func() time.Time
}

// redisLimiter shares fixed windows across processes. It talks to redis
// through the Scripter interface so tests can substitute the transport.
type redisLimiter struct {
	scripter redis.Scripter
	prefix   string
	now      func() time.Time
}

func NewRedisLimiter(cfg RedisLimiterConfig) (domain.RateLimiter, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}
	if cfg.DB < 0 {
		return nil, errors.New("redis db must not be negative")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = defaultKeyPrefix
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &redisLimiter{scripter: client, prefix: cfg.KeyPrefix, now: cfg.Now}, nil
}

func (r *redisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (domain.RateLimitDecision, error) {
	if limit <= 0 {
		return domain.RateLimitDecision{Allowed: true, Limit: limit, Remaining: limit}, nil
	}
	windowMillis := window.Milliseconds()
	if windowMillis <= 0 {
		windowMillis = 1000
	}
	raw, err := fixedWindowScript.Run(ctx, r.scripter, []string{r.prefix + key}, limit, windowMillis).Result()
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	admitted, current, ttlMillis, err := parseWindowReply(raw)
	if err != nil {
		return domain.RateLimitDecision{}, err
	}
	resetAt := r.now()
	if ttlMillis > 0 {
		resetAt = resetAt.Add(time.Duration(ttlMillis) * time.Millisecond)
	}
	remaining := limit - int(current)
	if remaining < 0 {
		remaining = 0
	}
	return domain.RateLimitDecision{
		Allowed:   admitted,
		Limit:     limit,
		Remaining: remaining,
		ResetAt:   resetAt,
	}, nil
}

func parseWindowReply(raw any) (admitted bool, current, ttlMillis int64, err error) {
	values, ok := raw.([]any)
	if !ok || len(values) < 3 {
		return false, 0, 0, errors.New("unexpected rate limit script reply")
	}
	flag, ok := values[0].(int64)
	if !ok {
		return false, 0, 0, errors.New("invalid rate limit admission flag")
	}
	current, ok = values[1].(int64)
	if !ok {
		return false, 0, 0, errors.New("invalid rate limit counter")
	}
	ttlMillis, _ = values[2].(int64)
	return flag == 1, current, ttlMillis, nil
}
