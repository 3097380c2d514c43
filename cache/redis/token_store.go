// Package redis provides a Redis-backed token cache so token validation
// results are shared across server processes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopforge/storeauth/cache"
	"github.com/shopforge/storeauth/domain"
)

// TokenStore implements cache.TokenStore using Redis. Keys and stored
// entries carry token digests only; plaintext tokens never reach Redis.
type TokenStore struct {
	client *redis.Client
	prefix string
}

// NewTokenStore creates a new [TokenStore] instance.
func NewTokenStore(client *redis.Client, prefix string) *TokenStore {
	return &TokenStore{
		client: client,
		prefix: prefix,
	}
}

func (r *TokenStore) redisKey(tokenHash string) string {
	return fmt.Sprintf("%s:token:%s", r.prefix, tokenHash)
}

// Set stores a token entry in Redis with an expiry matching the token's TTL.
func (r *TokenStore) Set(ctx context.Context, token *cache.TokenEntry) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token entry: %w", err)
	}

	if err := r.client.Set(ctx, r.redisKey(token.TokenHash), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set token in redis: %w", err)
	}

	return nil
}

// Get retrieves a token entry from Redis by its digest.
func (r *TokenStore) Get(ctx context.Context, tokenHash string) (*cache.TokenEntry, error) {
	payload, err := r.client.Get(ctx, r.redisKey(tokenHash)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token from redis: %w", err)
	}

	var entry cache.TokenEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token entry: %w", err)
	}

	entry.LastUsedAt = time.Now()

	return &entry, nil
}

// Delete removes a token from Redis.
func (r *TokenStore) Delete(ctx context.Context, tokenHash string) error {
	return r.client.Del(ctx, r.redisKey(tokenHash)).Err()
}

// DeleteExpired is a no-op: Redis expires entries via per-key TTL.
func (r *TokenStore) DeleteExpired(_ context.Context) error {
	return nil
}

// Clear removes all cached tokens under the store's prefix.
func (r *TokenStore) Clear(ctx context.Context) error {
	pattern := r.redisKey("*")
	var cursor uint64

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan token keys: %w", err)
		}

		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				log.Error().Err(err).Msg("failed to delete token keys")
			}
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return nil
}

// Count returns the number of cached tokens under the store's prefix.
func (r *TokenStore) Count(ctx context.Context) int {
	pattern := r.redisKey("*")
	var count int
	var cursor uint64

	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			log.Error().Err(err).Msg("failed to scan token keys")
			break
		}
		count += len(keys)

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return count
}
