// Package flow holds the ephemeral state of in-progress authorization
// flows, between the /authorize request and the consent decision.
package flow

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/shopforge/storeauth/domain"
)

// PendingStore implements domain.PendingAuthorizationStore with a ttlcache.
// Entries are deleted on read, so a pending request is decided at most once.
type PendingStore struct {
	cache *ttlcache.Cache[string, *domain.PendingAuthorization]
}

// NewPendingStore creates a pending-authorization store whose entries expire
// after defaultTTL unless an explicit expiry is set on the entry.
func NewPendingStore(defaultTTL time.Duration) *PendingStore {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.PendingAuthorization](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.PendingAuthorization](),
	)

	go cache.Start()

	return &PendingStore{cache: cache}
}

// Save implements domain.PendingAuthorizationStore.Save.
func (s *PendingStore) Save(_ context.Context, pending *domain.PendingAuthorization) error {
	ttl := ttlcache.DefaultTTL
	if !pending.ExpiresAt.IsZero() {
		ttl = time.Until(pending.ExpiresAt)
		if ttl <= 0 {
			return nil
		}
	}
	s.cache.Set(pending.ID, pending, ttl)
	return nil
}

// Consume implements domain.PendingAuthorizationStore.Consume.
func (s *PendingStore) Consume(_ context.Context, id string) (*domain.PendingAuthorization, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, domain.ErrPendingAuthorizationNotFound
	}

	s.cache.Delete(id)

	pending := item.Value()
	if !pending.ExpiresAt.IsZero() && time.Now().After(pending.ExpiresAt) {
		return nil, domain.ErrPendingAuthorizationNotFound
	}

	return pending, nil
}

// Close stops the cleanup goroutine.
func (s *PendingStore) Close() error {
	s.cache.Stop()
	return nil
}
