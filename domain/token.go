package domain

import "time"

// Token types stored in the tokens collection.
const (
	TokenTypeAccess  = "access_token"
	TokenTypeRefresh = "refresh_token"
)

// Token represents an issued access or refresh token. Only the SHA-256
// digest of the token value is persisted.
type Token struct {
	ID             string    `bson:"_id"                        json:"id"`
	TokenType      string    `bson:"token_type"                 json:"token_type"`
	TokenHash      string    `bson:"token_hash"                 json:"token_hash"`
	ClientID       string    `bson:"client_id"                  json:"client_id"`
	StoreID        string    `bson:"store_id"                   json:"store_id"`
	Scope          string    `bson:"scope"                      json:"scope"`
	ExpiresAt      time.Time `bson:"expires_at"                 json:"expires_at"`
	CreatedAt      time.Time `bson:"created_at"                 json:"created_at"`
	LastUsedAt     time.Time `bson:"last_used_at"               json:"last_used_at"`
	IsRevoked      bool      `bson:"is_revoked"                 json:"is_revoked"`
	RefreshTokenID string    `bson:"refresh_token_id,omitempty" json:"refresh_token_id,omitempty"`
}

// Valid reports whether the token is unrevoked and unexpired at the given
// instant.
func (t *Token) Valid(now time.Time) bool {
	return !t.IsRevoked && now.Before(t.ExpiresAt)
}

// TokenInfo is the validated view of a token carried in request context by
// the authentication middleware.
type TokenInfo struct {
	ID        string    `json:"id"`
	TokenType string    `json:"token_type"`
	ClientID  string    `json:"client_id"`
	StoreID   string    `json:"store_id"`
	Scope     string    `json:"scope"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
