package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/patric-chuzhbe/moodjournal/internal/models"
)

const redisKeyPrefix = "journal:session:"

// RedisStore keeps sessions as JSON values whose Redis TTL equals the session lifetime.
type RedisStore struct {
	client *redis.Client
}

// NewRedisClient connects to Redis and pings it with a short timeout.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("in internal/session/redis.go/NewRedisClient(): error while `client.Ping()` calling: %w", err)
	}

	return client, nil
}

// NewRedisStore keeps sessions as JSON values in client.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func redisKey(key string) string {
	return redisKeyPrefix + key
}

// Save writes sess under key with ttl as the Redis expiry.
func (s *RedisStore) Save(ctx context.Context, key string, sess *models.Session, ttl time.Duration) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}

	return s.client.Set(ctx, redisKey(key), payload, ttl).Err()
}

// Load reads the session, mapping a missing key to models.ErrSessionNotFound.
func (s *RedisStore) Load(ctx context.Context, key string) (*models.Session, error) {
	payload, err := s.client.Get(ctx, redisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, models.ErrSessionNotFound
		}
		return nil, err
	}

	sess := &models.Session{}
	if err := json.Unmarshal(payload, sess); err != nil {
		return nil, err
	}

	return sess, nil
}

// Delete removes key. Missing keys are ignored.
func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, redisKey(key)).Err()
}

// Close closes the Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
