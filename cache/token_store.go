package cache

import (
	"context"
	"time"
)

// TokenEntry represents a cached access token entry. Only the SHA-256 digest
// of the token value is carried; plaintext tokens never enter the cache.
type TokenEntry struct {
	ID         string    `redis:"id"`
	TokenType  string    `redis:"tokenType"`
	TokenHash  string    `redis:"tokenHash"`
	ClientID   string    `redis:"clientId"`
	StoreID    string    `redis:"storeId"`
	Scope      string    `redis:"scope"`
	ExpiresAt  time.Time `redis:"expiresAt"`
	IsRevoked  bool      `redis:"isRevoked"`
	CreatedAt  time.Time `redis:"createdAt"`
	LastUsedAt time.Time `redis:"lastUsedAt"`
}

// TokenStore is a lookaside cache in front of the token repository, used on
// the request-authentication hot path. Lookups are by token digest.
type TokenStore interface {
	Set(ctx context.Context, token *TokenEntry) error
	Get(ctx context.Context, tokenHash string) (*TokenEntry, error)
	Delete(ctx context.Context, tokenHash string) error
	DeleteExpired(ctx context.Context) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) int
}
