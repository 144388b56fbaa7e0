// Package session keeps per-editor-session state in Redis: the staged preset
// preview and the set of revoked session tokens.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"storefront/cms/internal/presets"
)

const defaultTTL = 12 * time.Hour

// RedisStore holds session-scoped records. Keys expire with the session so a
// preview never outlives the session that staged it.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisStore connects to redisURL and verifies the connection.
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewRedisStoreWithClient(client, ttl), nil
}

// NewRedisStoreWithClient creates a store from an existing Redis client
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &RedisStore{
		client: client,
		prefix: "storefront:",
		ttl:    ttl,
	}
}

func (s *RedisStore) previewKey(sessionID string) string {
	return s.prefix + "preview:" + sessionID
}

func (s *RedisStore) revokedKey(sessionID string) string {
	return s.prefix + "revoked:" + sessionID
}

// SavePreview replaces the session's preview record.
func (s *RedisStore) SavePreview(ctx context.Context, sessionID string, preview presets.Preview) error {
	if sessionID == "" {
		return errors.New("session id is required")
	}
	data, err := json.Marshal(preview)
	if err != nil {
		return fmt.Errorf("marshal preview: %w", err)
	}
	if err := s.client.Set(ctx, s.previewKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save preview: %w", err)
	}
	return nil
}

// LoadPreview returns nil, nil when the session has no preview.
func (s *RedisStore) LoadPreview(ctx context.Context, sessionID string) (*presets.Preview, error) {
	raw, err := s.client.Get(ctx, s.previewKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load preview: %w", err)
	}
	var preview presets.Preview
	if err := json.Unmarshal([]byte(raw), &preview); err != nil {
		return nil, fmt.Errorf("unmarshal preview: %w", err)
	}
	return &preview, nil
}

// ClearPreview deletes the preview record whether or not one exists.
func (s *RedisStore) ClearPreview(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.previewKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear preview: %w", err)
	}
	return nil
}

// RevokeSession marks a session token unusable until it would have expired,
// and drops its preview.
func (s *RedisStore) RevokeSession(ctx context.Context, sessionID string, expiresAt time.Time) error {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		ttl = s.ttl
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.revokedKey(sessionID), "1", ttl)
	pipe.Del(ctx, s.previewKey(sessionID))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}

func (s *RedisStore) IsRevoked(ctx context.Context, sessionID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.revokedKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked session: %w", err)
	}
	return n > 0, nil
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks if Redis is reachable
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
