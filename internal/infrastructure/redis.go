package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Queue names shared by the webhook receiver and the two consumer loops.
const (
	InboundQueue   = "chat:inbound"
	MarketingQueue = "chat:marketing"
)

// RedisClient carries both queue and realtime fan-out duties. Queues are
// plain lists consumed with BRPOP; fan-out uses pub/sub channels scoped by
// tenant.
type RedisClient struct {
	rdb *goredis.Client
}

func NewRedisClient(addr, password string) (*RedisClient, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisClient{rdb: rdb}, nil
}

// Enqueue pushes one JSON-encoded payload onto the named queue.
func (c *RedisClient) Enqueue(ctx context.Context, queue string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.rdb.LPush(ctx, queue, raw).Err()
}

// Dequeue blocks up to timeout for the next queue entry. Returns nil with no
// error when the timeout elapses, so consumer loops can check for shutdown.
func (c *RedisClient) Dequeue(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	res, err := c.rdb.BRPop(ctx, timeout, queue).Result()
	if err == goredis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	// BRPOP returns [key, value]
	if len(res) != 2 {
		return nil, fmt.Errorf("unexpected BRPOP reply of length %d", len(res))
	}
	return []byte(res[1]), nil
}

// PublishEvent fans a persisted message out to live subscribers of the
// tenant's chat stream. Best-effort: callers never fail a write on it.
func (c *RedisClient) PublishEvent(ctx context.Context, tenantID int, event any) error {
	raw, err := json.Marshal(event)
	if err != nil {
		return err
	}
	channel := fmt.Sprintf("chat:events:%d", tenantID)
	return c.rdb.Publish(ctx, channel, raw).Err()
}

func (c *RedisClient) Close() error {
	return c.rdb.Close()
}
