package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const script = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
  return 0
end
return 1
`

// Redis is a limiter shared by every server instance using the same Redis.
// It fails open: Redis errors allow the request.
type Redis struct {
	client *redis.Client
	script *redis.Script
	prefix string
}

// NewRedis connects to url (redis://...).
func NewRedis(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisWithClient(redis.NewClient(opts)), nil
}

func NewRedisWithClient(client *redis.Client) *Redis {
	return &Redis{
		client: client,
		script: redis.NewScript(script),
		prefix: "awn:ratelimit:",
	}
}

func (r *Redis) Allow(key string, limit int, window time.Duration) bool {
	if r == nil || r.client == nil || key == "" || limit <= 0 || window <= 0 {
		return true
	}
	ttl := window.Milliseconds()
	if ttl <= 0 {
		ttl = 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()
	allowed, err := r.script.Run(ctx, r.client, []string{r.prefix + key}, ttl, limit).Int64()
	if err != nil {
		log.Warn("rate limit check failed, allowing request", "err", err)
		return true
	}
	return allowed == 1
}

// Close releases the Redis connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
