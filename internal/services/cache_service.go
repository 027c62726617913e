package services

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheService is a thin redis wrapper for caching public listing responses.
// A nil *CacheService is valid and disables caching.
type CacheService struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCacheService connects to redis. Returns nil (caching disabled) when no
// URL is configured or the URL cannot be parsed.
func NewCacheService(redisURL string, ttl time.Duration) *CacheService {
	if redisURL == "" {
		return nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("invalid REDIS_URL, caching disabled: %v", err)
		return nil
	}

	return &CacheService{
		client: redis.NewClient(opts),
		ttl:    ttl,
	}
}

// Get returns the cached payload for key, if present.
func (s *CacheService) Get(ctx context.Context, key string) ([]byte, bool) {
	if s == nil {
		return nil, false
	}

	payload, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Printf("cache get %s: %v", key, err)
		}
		return nil, false
	}
	return payload, true
}

// Set stores a payload under key with the configured TTL. Best effort.
func (s *CacheService) Set(ctx context.Context, key string, payload []byte) {
	if s == nil {
		return
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		log.Printf("cache set %s: %v", key, err)
	}
}

// Invalidate drops cached keys, typically after a write. Best effort.
func (s *CacheService) Invalidate(ctx context.Context, keys ...string) {
	if s == nil || len(keys) == 0 {
		return
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		log.Printf("cache invalidate: %v", err)
	}
}
