package progress

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// RedisCacheConfig configures the Redis-backed resume cache.
type RedisCacheConfig struct {
	Addr         string
	Addrs        []string
	Username     string
	Password     string
	MasterName   string
	KeyPrefix    string
	TTL          time.Duration
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// NewRedisCache connects a resume cache backed by Redis. The caller is
// responsible for ensuring the Redis instance is reachable.
func NewRedisCache(cfg RedisCacheConfig) (Cache, error) {
	addrs := make([]string, 0, len(cfg.Addrs)+1)
	for _, addr := range cfg.Addrs {
		if trimmed := strings.TrimSpace(addr); trimmed != "" {
			addrs = append(addrs, trimmed)
		}
	}
	if addr := strings.TrimSpace(cfg.Addr); addr != "" {
		addrs = append(addrs, addr)
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("redis addr is required")
	}
	prefix := strings.TrimSpace(cfg.KeyPrefix)
	if prefix == "" {
		prefix = "video-membership:resume"
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:        addrs,
		MasterName:   strings.TrimSpace(cfg.MasterName),
		Username:     strings.TrimSpace(cfg.Username),
		Password:     cfg.Password,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   2,
	})
	return &redisCache{client: client, prefix: prefix, ttl: ttl}, nil
}

type redisCache struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

func (c *redisCache) key(userID, hostID string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, userID, hostID)
}

func (c *redisCache) ResumeTime(ctx context.Context, userID, hostID string) (float64, bool, error) {
	value, err := c.client.Get(ctx, c.key(userID, hostID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("resume cache get: %w", err)
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false, nil
	}
	return seconds, true, nil
}

func (c *redisCache) SetResumeTime(ctx context.Context, userID, hostID string, seconds float64) error {
	value := strconv.FormatFloat(seconds, 'f', -1, 64)
	if err := c.client.Set(ctx, c.key(userID, hostID), value, c.ttl).Err(); err != nil {
		return fmt.Errorf("resume cache set: %w", err)
	}
	return nil
}

func (c *redisCache) ClearResumeTime(ctx context.Context, userID, hostID string) error {
	if err := c.client.Del(ctx, c.key(userID, hostID)).Err(); err != nil {
		return fmt.Errorf("resume cache delete: %w", err)
	}
	return nil
}

func (c *redisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *redisCache) Close() error {
	return c.client.Close()
}
