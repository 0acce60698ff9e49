package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a Guard shared by every process using the same Redis.
// Each lock is a lease: it expires after ttl even if the holder dies.
type RedisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
	retry  time.Duration
	prefix string
	log    zerolog.Logger
}

// NewRedisGuard creates a RedisGuard. ttl must exceed the longest critical section.
func NewRedisGuard(client redis.UniversalClient, ttl time.Duration, log zerolog.Logger) *RedisGuard {
	return &RedisGuard{
		client: client,
		ttl:    ttl,
		retry:  25 * time.Millisecond,
		prefix: "scheduler:lock:",
		log:    log.With().Str("component", "redis_guard").Logger(),
	}
}

// Acquire implements Guard. It polls SET NX until the lease is taken or ctx is done.
func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := g.prefix + key
	token := uuid.NewString()

	ticker := time.NewTicker(g.retry)
	defer ticker.Stop()

	for {
		ok, err := g.client.SetNX(ctx, redisKey, token, g.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, waitError(key, ctx.Err())
			}
			return nil, fmt.Errorf("lock %q: %w", key, err)
		}
		if ok {
			return g.releaser(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, waitError(key, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (g *RedisGuard) releaser(redisKey, token string) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := releaseScript.Run(ctx, g.client, []string{redisKey}, token).Err(); err != nil {
				// The lease still expires on its own after ttl.
				g.log.Warn().Err(err).Str("key", redisKey).Msg("failed to release lock")
			}
		})
	}
}
