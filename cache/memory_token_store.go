package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/shopforge/storeauth/domain"
)

// MemoryTokenStore implements TokenStore using ttlcache.
type MemoryTokenStore struct {
	cache *ttlcache.Cache[string, *TokenEntry]
}

// NewMemoryTokenStore creates a new in-memory token store with automatic
// cleanup of expired entries.
func NewMemoryTokenStore(defaultTTL time.Duration) *MemoryTokenStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *TokenEntry](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, *TokenEntry](),
	)

	go cache.Start()

	return &MemoryTokenStore{
		cache: cache,
	}
}

// Set implements TokenStore.Set. Entries are keyed by the token digest.
func (s *MemoryTokenStore) Set(_ context.Context, token *TokenEntry) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return nil
	}
	s.cache.Set(token.TokenHash, token, ttl)
	return nil
}

// Get implements TokenStore.Get. The returned entry is a copy; concurrent
// lookups of the same token must not share a struct.
func (s *MemoryTokenStore) Get(_ context.Context, tokenHash string) (*TokenEntry, error) {
	item := s.cache.Get(tokenHash)
	if item == nil {
		return nil, domain.ErrTokenNotFound
	}

	entry := *item.Value()
	entry.LastUsedAt = time.Now()

	return &entry, nil
}

// Delete removes a token from the cache.
func (s *MemoryTokenStore) Delete(_ context.Context, tokenHash string) error {
	s.cache.Delete(tokenHash)

	return nil
}

// DeleteExpired removes all expired tokens from the cache.
func (s *MemoryTokenStore) DeleteExpired(_ context.Context) error {
	s.cache.DeleteExpired()

	return nil
}

// Clear removes all tokens from the cache.
func (s *MemoryTokenStore) Clear(_ context.Context) error {
	s.cache.DeleteAll()

	return nil
}

// Count counts the number of tokens in the cache.
func (s *MemoryTokenStore) Count(_ context.Context) int {
	return s.cache.Len()
}

// Close stops the cleanup goroutine.
func (s *MemoryTokenStore) Close() error {
	s.cache.Stop()

	return nil
}
