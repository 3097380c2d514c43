package domain

import "time"

// PKCE code challenge methods.
const (
	CodeChallengeMethodS256  = "S256"
	CodeChallengeMethodPlain = "plain"
)

// AuthorizationCode represents a single-use OAuth 2.0 authorization code.
// Only the SHA-256 digest of the code is persisted; the plaintext value is
// returned to the client exactly once, in the consent redirect.
type AuthorizationCode struct {
	CodeHash            string    `bson:"code_hash"                       json:"code_hash"`
	ClientID            string    `bson:"client_id"                       json:"client_id"`
	StoreID             string    `bson:"store_id"                        json:"store_id"`
	RedirectURI         string    `bson:"redirect_uri"                    json:"redirect_uri"`
	Scope               string    `bson:"scope"                           json:"scope"`
	CodeChallenge       string    `bson:"code_challenge,omitempty"        json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `bson:"code_challenge_method,omitempty" json:"code_challenge_method,omitempty"`
	ExpiresAt           time.Time `bson:"expires_at"                      json:"expires_at"`
	Consumed            bool      `bson:"consumed"                        json:"consumed"`
	CreatedAt           time.Time `bson:"created_at"                      json:"created_at"`
}

// Expired reports whether the code is past its TTL.
func (c *AuthorizationCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
