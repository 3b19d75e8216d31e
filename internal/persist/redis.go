package persist

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "ledger:events"

// RedisAdapter persists records in a Redis sorted set scored by sequence
// number, so a single ZRANGE returns durable history in seq order.
type RedisAdapter struct {
	client *redis.Client
	key    string
}

// NewRedisAdapter connects to addr and verifies the connection.
func NewRedisAdapter(ctx context.Context, addr, key string) (*RedisAdapter, error) {
	if key == "" {
		key = defaultRedisKey
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis adapter: ping %s: %w", addr, err)
	}
	return &RedisAdapter{client: client, key: key}, nil
}

// PutEvent implements Adapter.
func (a *RedisAdapter) PutEvent(ctx context.Context, rec Record) error {
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("redis adapter: marshal record: %w", err)
	}
	return a.client.ZAdd(ctx, a.key, redis.Z{Score: float64(rec.Seq), Member: string(val)}).Err()
}

// AllEvents implements Adapter.
func (a *RedisAdapter) AllEvents(ctx context.Context) ([]Record, error) {
	members, err := a.client.ZRange(ctx, a.key, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(members))
	for _, m := range members {
		var rec Record
		if err := json.Unmarshal([]byte(m), &rec); err != nil {
			return nil, fmt.Errorf("redis adapter: decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// Reset implements Adapter.
func (a *RedisAdapter) Reset(ctx context.Context) error {
	return a.client.Del(ctx, a.key).Err()
}

// Close implements Adapter.
func (a *RedisAdapter) Close() error { return a.client.Close() }
