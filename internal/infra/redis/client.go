// Package redis wraps the Redis operations behind the rescan pipeline.
// Operators push block ranges onto a per-chain sorted set; the rescan
// worker pops them and re-ingests the range idempotently.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for the rescan pipeline.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

func queueKey(chainID uint64) string {
	return fmt.Sprintf("rescan_ranges:%d", chainID)
}

// PushRange queues a block range for rescanning, scored by start block
// so the oldest range pops first.
func (c *Client) PushRange(ctx context.Context, chainID, start, end uint64) error {
	member := fmt.Sprintf("%d-%d", start, end)
	err := c.rdb.ZAdd(ctx, queueKey(chainID), redis.Z{
		Score:  float64(start),
		Member: member,
	}).Err()
	if err != nil {
		return fmt.Errorf("zadd failed: %w", err)
	}
	return nil
}

// PopRange pops the next range from the queue (lowest score first).
func (c *Client) PopRange(
	ctx context.Context,
	chainID uint64,
) (start, end uint64, found bool, err error) {
	key := queueKey(chainID)

	results, err := c.rdb.ZRangeWithScores(ctx, key, 0, 0).Result()
	if err != nil {
		return 0, 0, false, fmt.Errorf("zrange failed: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, false, nil
	}

	member := results[0].Member.(string)
	start, end, err = ParseRangeString(member)
	if err != nil {
		return 0, 0, false, fmt.Errorf("invalid range format: %w", err)
	}

	if err := c.rdb.ZRem(ctx, key, member).Err(); err != nil {
		return 0, 0, false, fmt.Errorf("zrem failed: %w", err)
	}
	return start, end, true, nil
}

// QueueLen returns the number of queued ranges for a chain.
func (c *Client) QueueLen(ctx context.Context, chainID uint64) (int64, error) {
	return c.rdb.ZCard(ctx, queueKey(chainID)).Result()
}

// ParseRangeString parses a "start-end" member.
func ParseRangeString(s string) (start, end uint64, err error) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("expected start-end, got %q", s)
	}
	start, err = strconv.ParseUint(parts[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	end, err = strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	if start > end {
		return 0, 0, fmt.Errorf("start > end: %d > %d", start, end)
	}
	return start, end, nil
}
