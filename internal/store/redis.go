package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"fair-gaming-core/internal/model"
)

// DefaultSessionTTL bounds how long an abandoned session survives. TTL
// expiry is the garbage collection the concurrency model leaves to the
// session store.
const DefaultSessionTTL = 24 * time.Hour

const redisKeyPrefix = "fairgame:session:"

// Redis persists signed states in Redis with a TTL per session.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis creates a Redis-backed store. A zero ttl uses
// DefaultSessionTTL.
func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Load implements Store.
func (r *Redis) Load(ctx context.Context, sessionID string) (*model.SignedState, error) {
	data, err := r.client.Get(ctx, redisKeyPrefix+sessionID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load signed state: %w", err)
	}

	var state model.SignedState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, fmt.Errorf("failed to decode signed state: %w", err)
	}
	return &state, nil
}

// Save implements Store, refreshing the session TTL.
func (r *Redis) Save(ctx context.Context, state *model.SignedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode signed state: %w", err)
	}
	if err := r.client.Set(ctx, redisKeyPrefix+state.SessionID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save signed state: %w", err)
	}
	return nil
}

// Delete implements Store.
func (r *Redis) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, redisKeyPrefix+sessionID).Err(); err != nil {
		return fmt.Errorf("failed to delete signed state: %w", err)
	}
	return nil
}
