package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/C4rlos-asx/IA-con-recuerdos/pkg/domain"
)

const contextKeyPrefix = "chat:context:"

// RedisContextStore keeps the last N conversation entries per user with a TTL,
// so a fresh page load can resume a session without resending history.
type RedisContextStore struct {
	client     *redis.Client
	windowSize int
	ttl        time.Duration
}

// NewRedisContextStore builds the short-term context cache on an existing
// Redis client.
func NewRedisContextStore(client *redis.Client, windowSize int, ttl time.Duration) *RedisContextStore {
	if windowSize <= 0 {
		windowSize = 10
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisContextStore{client: client, windowSize: windowSize, ttl: ttl}
}

// Append pushes one entry, trims the list to the window size, and refreshes
// the expiry.
func (s *RedisContextStore) Append(ctx context.Context, userID string, entry domain.ContextEntry) error {
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode context entry: %w", err)
	}
	key := contextKeyPrefix + userID
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, raw)
	pipe.LTrim(ctx, key, int64(-s.windowSize), -1)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append context: %w", err)
	}
	return nil
}

// Recent returns stored entries in chronological order. A missing key yields
// an empty slice, not an error.
func (s *RedisContextStore) Recent(ctx context.Context, userID string) ([]domain.ContextEntry, error) {
	values, err := s.client.LRange(ctx, contextKeyPrefix+userID, 0, -1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("read context: %w", err)
	}
	entries := make([]domain.ContextEntry, 0, len(values))
	for _, v := range values {
		var entry domain.ContextEntry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			// Skip malformed entries rather than failing the whole restore.
			continue
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
