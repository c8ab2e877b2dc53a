package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var ErrInFlight = errors.New("submission already in progress for this form")

// Guard ensures one in-flight submission per form id.
type Guard interface {
	// Acquire returns ErrInFlight when key is already held.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

// LocalGuard keeps locks in process memory. Entries expire after ttl.
type LocalGuard struct {
	c   *cache.Cache
	ttl time.Duration
}

func NewLocalGuard(ttl time.Duration) *LocalGuard {
	return &LocalGuard{c: cache.New(ttl, ttl), ttl: ttl}
}

func (g *LocalGuard) Acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	if err := g.c.Add(key, token, g.ttl); err != nil {
		return nil, ErrInFlight
	}
	return func() {
		if v, ok := g.c.Get(key); ok && v.(string) == token {
			g.c.Delete(key)
		}
	}, nil
}

// releaseScript deletes the key only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard shares locks across replicas via SET NX.
type RedisGuard struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

func NewRedisGuard(client redis.UniversalClient, ttl time.Duration) *RedisGuard {
	return &RedisGuard{client: client, ttl: ttl, prefix: "repair-intake:inflight:"}
}

// NewRedisClient opens a client for the guard.
func NewRedisClient(addr string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, DB: db})
}

func (g *RedisGuard) Acquire(ctx context.Context, key string) (func(), error) {
	k := g.prefix + key
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, k, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("redis guard error: %w", err)
	}
	if !ok {
		return nil, ErrInFlight
	}
	return func() {
		// the request context may already be gone
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, g.client, []string{k}, token).Err()
	}, nil
}
