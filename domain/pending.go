package domain

import (
	"context"
	"errors"
	"time"
)

// ErrPendingAuthorizationNotFound is returned when a pending authorization
// does not exist, has expired, or was already consumed.
var ErrPendingAuthorizationNotFound = errors.New("pending authorization not found")

// PendingAuthorization stages a validated /authorize request between the
// consent screen render and the user's approve/deny decision. It lives for a
// single round trip and is deleted when read.
type PendingAuthorization struct {
	ID                  string    `json:"id"`
	ClientID            string    `json:"client_id"`
	RedirectURI         string    `json:"redirect_uri"`
	Scopes              []string  `json:"scopes"`
	State               string    `json:"state,omitempty"`
	CodeChallenge       string    `json:"code_challenge,omitempty"`
	CodeChallengeMethod string    `json:"code_challenge_method,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	ExpiresAt           time.Time `json:"expires_at"`
}

// PendingAuthorizationStore holds pending authorizations between the
// /authorize GET and the consent POST.
type PendingAuthorizationStore interface {
	// Save stores a pending authorization until it is consumed or expires.
	Save(ctx context.Context, pending *PendingAuthorization) error

	// Consume retrieves a pending authorization by ID and deletes it, so a
	// given pending request can be decided at most once. Returns
	// ErrPendingAuthorizationNotFound for unknown or expired IDs.
	Consume(ctx context.Context, id string) (*PendingAuthorization, error)
}
