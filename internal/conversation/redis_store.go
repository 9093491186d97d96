package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avvvet/partsbuddy-agent/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store with one JSON blob per session
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration // Session TTL (time to live)
}

// NewRedisStore connects to redisURL and verifies the connection
func NewRedisStore(redisURL string, ttl time.Duration) (*RedisStore, error) {
	// Parse Redis URL
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	// Create Redis client
	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisStoreFromClient(client, ttl), nil
}

func NewRedisStoreFromClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Client exposes the connection so the tool cache can share it
func (r *RedisStore) Client() *redis.Client {
	return r.client
}

// sessionKey generates Redis key for a session
func (r *RedisStore) sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

// Load reads a session from Redis
func (r *RedisStore) Load(ctx context.Context, sessionID string) (*models.Conversation, error) {
	data, err := r.client.Get(ctx, r.sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		// Session doesn't exist - return empty session
		return models.NewConversation(sessionID, time.Now()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session from Redis: %w", err)
	}

	// Parse JSON
	var conv models.Conversation
	if err := json.Unmarshal(data, &conv); err != nil {
		return nil, fmt.Errorf("failed to parse session data: %w", err)
	}
	return &conv, nil
}

// Append adds a message to a session
func (r *RedisStore) Append(ctx context.Context, sessionID string, msg models.Message) error {
	// Load existing session
	conv, err := r.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	// Append message and update metadata
	conv.Append(msg)

	// Save to Redis
	return r.save(ctx, conv)
}

// save writes session data to Redis
func (r *RedisStore) save(ctx context.Context, conv *models.Conversation) error {
	// Marshal to JSON
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	// Save to Redis with TTL
	if err := r.client.Set(ctx, r.sessionKey(conv.SessionID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session to Redis: %w", err)
	}
	return nil
}

// Delete removes a session from Redis
func (r *RedisStore) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, r.sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Exists checks if a session exists in Redis
func (r *RedisStore) Exists(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.sessionKey(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return n > 0, nil
}

// Touch only refreshes the TTL; a session with no messages has no key yet
func (r *RedisStore) Touch(ctx context.Context, sessionID string) error {
	if err := r.client.Expire(ctx, r.sessionKey(sessionID), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to refresh session TTL: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Health check - verify Redis connection is alive
func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
