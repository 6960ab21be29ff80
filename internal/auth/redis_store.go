package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// OAuthState is what the server remembers between the provider redirect and
// its callback
type OAuthState struct {
	Provider   string `json:"provider"`
	RedirectTo string `json:"redirect_to"`
}

// SessionStore keeps revoked sessions and pending OAuth states
type SessionStore interface {
	Revoke(ctx context.Context, sessionID string, until time.Time) error
	IsRevoked(ctx context.Context, sessionID string) (bool, error)
	SaveState(ctx context.Context, state string, st OAuthState, ttl time.Duration) error
	TakeState(ctx context.Context, state string) (*OAuthState, error)
}

// RedisSessionStore is the Redis-backed SessionStore
type RedisSessionStore struct {
	rdb redis.Cmdable
}

// NewRedisSessionStore creates a RedisSessionStore
func NewRedisSessionStore(rdb redis.Cmdable) *RedisSessionStore {
	return &RedisSessionStore{rdb: rdb}
}

func revokedKey(sessionID string) string { return "session:revoked:" + sessionID }
func stateKey(state string) string       { return "oauth:state:" + state }

// Revoke marks the session revoked until its token would expire anyway
func (s *RedisSessionStore) Revoke(ctx context.Context, sessionID string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}
	return s.rdb.Set(ctx, revokedKey(sessionID), 1, ttl).Err()
}

// IsRevoked reports whether the session was signed out
func (s *RedisSessionStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, revokedKey(sessionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SaveState stores an OAuth state for ttl
func (s *RedisSessionStore) SaveState(ctx context.Context, state string, st OAuthState, ttl time.Duration) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, stateKey(state), b, ttl).Err()
}

// TakeState reads and deletes an OAuth state; a state can be used once
func (s *RedisSessionStore) TakeState(ctx context.Context, state string) (*OAuthState, error) {
	val, err := s.rdb.GetDel(ctx, stateKey(state)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, err
	}
	var st OAuthState
	if err := json.Unmarshal([]byte(val), &st); err != nil {
		return nil, err
	}
	return &st, nil
}

var _ SessionStore = (*RedisSessionStore)(nil)
