package processed

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore 多台机器共用一份进度时使用，URL 存在一个 set 里
type RedisStore struct {
	c   *redis.Client
	key string
}

func NewRedis(ctx context.Context, addr, pass string, db int, key string) (*RedisStore, error) {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("连接 redis 失败: %w", err)
	}
	return NewFromClient(c, key), nil
}

func NewFromClient(c *redis.Client, key string) *RedisStore {
	return &RedisStore{c: c, key: key}
}

func (r *RedisStore) Contains(ctx context.Context, url string) (bool, error) {
	return r.c.SIsMember(ctx, r.key, url).Result()
}

func (r *RedisStore) Add(ctx context.Context, url string) error {
	return r.c.SAdd(ctx, r.key, url).Err()
}

func (r *RedisStore) Close() error {
	return r.c.Close()
}
