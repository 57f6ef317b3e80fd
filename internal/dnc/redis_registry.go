package dnc

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const dncListKey = "dnc:phone_numbers"

// RedisRegistry is a Registry backed by a Redis set, shared across
// service instances.
type RedisRegistry struct {
	redis *redis.Client
}

func NewRedisRegistry(client *redis.Client) *RedisRegistry {
	if client == nil {
		panic("dnc: redis client cannot be nil")
	}
	return &RedisRegistry{redis: client}
}

func (r *RedisRegistry) Contains(ctx context.Context, phone string) (bool, error) {
	listed, err := r.redis.SIsMember(ctx, dncListKey, NormalizePhone(phone)).Result()
	if err != nil {
		return false, fmt.Errorf("dnc: failed to check list membership: %w", err)
	}
	return listed, nil
}

func (r *RedisRegistry) Add(ctx context.Context, phone string) error {
	if err := r.redis.SAdd(ctx, dncListKey, NormalizePhone(phone)).Err(); err != nil {
		return fmt.Errorf("dnc: failed to add number: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Remove(ctx context.Context, phone string) error {
	if err := r.redis.SRem(ctx, dncListKey, NormalizePhone(phone)).Err(); err != nil {
		return fmt.Errorf("dnc: failed to remove number: %w", err)
	}
	return nil
}

func (r *RedisRegistry) BulkAdd(ctx context.Context, phones []string) error {
	if len(phones) == 0 {
		return nil
	}
	members := make([]interface{}, 0, len(phones))
	for _, phone := range phones {
		members = append(members, NormalizePhone(phone))
	}
	if err := r.redis.SAdd(ctx, dncListKey, members...).Err(); err != nil {
		return fmt.Errorf("dnc: failed to bulk add numbers: %w", err)
	}
	return nil
}

func (r *RedisRegistry) Count(ctx context.Context) (int64, error) {
	count, err := r.redis.SCard(ctx, dncListKey).Result()
	if err != nil {
		return 0, fmt.Errorf("dnc: failed to count list: %w", err)
	}
	return count, nil
}
