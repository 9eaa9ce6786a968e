package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"farm-store/internal/docstore"

	"github.com/go-redis/redis/v8"
)

type Client struct {
	rdb *redis.Client
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func docKey(key string) string {
	return fmt.Sprintf("doc:%s", key)
}

// Get loads a JSON document; a missing key yields docstore.ErrNotFound
func (c *Client) Get(ctx context.Context, key string, dst interface{}) error {
	data, err := c.rdb.Get(ctx, docKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return docstore.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redis get %s failed: %w", key, err)
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", key, err)
	}
	return nil
}

// Put stores a JSON document without expiry
func (c *Client) Put(ctx context.Context, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode document %s: %w", key, err)
	}
	return c.rdb.Set(ctx, docKey(key), data, 0).Err()
}

// Allow implements a fixed-window limiter: the first call for key within
// window succeeds, later calls fail until the key expires.
func (c *Client) Allow(ctx context.Context, key string, window time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, fmt.Sprintf("ratelimit:%s", key), "1", window).Result()
}
