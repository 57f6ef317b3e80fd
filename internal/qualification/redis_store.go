package qualification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const defaultSessionTTL = 24 * time.Hour

// RedisSessionStore persists sessions in Redis with a key TTL so
// abandoned calls age out even without explicit cleanup.
type RedisSessionStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if client == nil {
		panic("qualification: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &RedisSessionStore{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("nova.internal.qualification.redis_store"),
	}
}

func (s *RedisSessionStore) Get(ctx context.Context, leadID string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "qualification.load_session")
	defer span.End()

	data, err := s.redis.Get(ctx, sessionKey(leadID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("qualification: failed to load session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("qualification: failed to decode session: %w", err)
	}
	return &session, nil
}

func (s *RedisSessionStore) Put(ctx context.Context, session *Session) error {
	ctx, span := s.tracer.Start(ctx, "qualification.save_session")
	defer span.End()

	data, err := json.Marshal(session)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("qualification: failed to marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(session.LeadID), data, s.ttl).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("qualification: failed to persist session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) Delete(ctx context.Context, leadID string) error {
	ctx, span := s.tracer.Start(ctx, "qualification.delete_session")
	defer span.End()

	if err := s.redis.Del(ctx, sessionKey(leadID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("qualification: failed to delete session: %w", err)
	}
	return nil
}

func sessionKey(leadID string) string {
	return fmt.Sprintf("qualification:session:%s", leadID)
}
