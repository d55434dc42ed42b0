package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"task_tracker/internal/config"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/fx"
)

var ErrSetupTokenNotFound = errors.New("setup token not found")

type Client struct {
	rdb *redis.Client
}

func Initialize(redisURL string) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	rdb := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Session revocation
func (c *Client) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.rdb.Set(ctx, "revoked:"+jti, 1, ttl).Err()
}

func (c *Client) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := c.rdb.Exists(ctx, "revoked:"+jti).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revoked token: %w", err)
	}
	return n > 0, nil
}

// Password setup tokens
func (c *Client) StoreSetupToken(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	return c.rdb.Set(ctx, "pwsetup:"+token, userID, ttl).Err()
}

// ConsumeSetupToken resolves a setup token and deletes it in one round trip.
func (c *Client) ConsumeSetupToken(ctx context.Context, token string) (uint, error) {
	val, err := c.rdb.GetDel(ctx, "pwsetup:"+token).Result()
	if err != nil {
		if err == redis.Nil {
			return 0, ErrSetupTokenNotFound
		}
		return 0, fmt.Errorf("failed to get setup token: %w", err)
	}

	id, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed setup token payload: %w", err)
	}
	return uint(id), nil
}

// Close Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func NewClient(lc fx.Lifecycle, cfg *config.Config) (*Client, error) {
	c, err := Initialize(cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return c.Close()
		},
	})
	return c, nil
}
