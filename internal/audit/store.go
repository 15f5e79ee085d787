package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultResultTTL keeps outcomes long enough for a visitor to come back to
// the dashboard the same day.
const DefaultResultTTL = 24 * time.Hour

// ResultStore persists outcomes keyed by audit ID.
type ResultStore interface {
	Save(ctx context.Context, o Outcome) error
	Load(ctx context.Context, id string) (Outcome, error)
}

// RedisStore keeps outcomes as JSON values with a TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore constructs a Redis backed store.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultResultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Save writes the outcome, resetting its TTL.
func (s *RedisStore) Save(ctx context.Context, o Outcome) error {
	if s == nil || s.client == nil {
		return errors.New("audit store not configured")
	}
	payload, err := json.Marshal(o)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, outcomeKey(o.ID), payload, s.ttl).Err()
}

// Load returns ErrOutcomeNotFound for unknown or expired IDs.
func (s *RedisStore) Load(ctx context.Context, id string) (Outcome, error) {
	if s == nil || s.client == nil {
		return Outcome{}, errors.New("audit store not configured")
	}
	data, err := s.client.Get(ctx, outcomeKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Outcome{}, fmt.Errorf("%w: %s", ErrOutcomeNotFound, id)
		}
		return Outcome{}, err
	}
	var o Outcome
	if err := json.Unmarshal(data, &o); err != nil {
		return Outcome{}, err
	}
	return o, nil
}

// Outcome reads an outcome without a running Service, as the worker does.
func (s *RedisStore) Outcome(ctx context.Context, id string) (Outcome, error) {
	return s.Load(ctx, id)
}

func outcomeKey(id string) string {
	return "auditflash:outcome:" + id
}
