package ratelimit

import (
	"context"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// admitScript applies the same window rules as MemoryStore atomically.
// Returns 1 when admitted, 0 when the window is full.
var admitScript = redis.NewScript(`
local current = redis.call('GET', KEYS[1])
if not current then
	redis.call('SET', KEYS[1], '1', 'PX', ARGV[2])
	return 1
end
if tonumber(current) >= tonumber(ARGV[1]) then
	return 0
end
redis.call('INCR', KEYS[1])
return 1
`)

// RedisStore shares rate limit windows between instances.
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client, prefix: "ratelimit:"}, nil
}

func (s *RedisStore) Admit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	admitted, err := admitScript.Run(ctx, s.client, []string{s.prefix + key}, limit, window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis admit %s: %w", key, err)
	}
	return admitted == 1, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
