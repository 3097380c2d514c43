package domain

import (
	"context"
	"errors"
)

var (
	// ErrApplicationNotFound is returned for unknown client IDs.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrAuthCodeNotFound is returned when an authorization code does not
	// exist, is expired, or has already been consumed. Callers must not be
	// able to distinguish those cases.
	ErrAuthCodeNotFound = errors.New("authorization code not found")

	// ErrTokenNotFound is returned for unknown token digests.
	ErrTokenNotFound = errors.New("token not found")
)

// AuthorizationCodeRepository defines storage of authorization codes.
type AuthorizationCodeRepository interface {
	// SaveAuthCode persists a freshly minted authorization code.
	SaveAuthCode(ctx context.Context, code *AuthorizationCode) error

	// ConsumeAuthCode atomically marks the code with the given digest as
	// consumed and returns it. The update is conditional on the code being
	// unconsumed and unexpired, so concurrent redemption attempts observe
	// exactly one success; all others get ErrAuthCodeNotFound.
	ConsumeAuthCode(ctx context.Context, codeHash string) (*AuthorizationCode, error)

	// DeleteExpiredAuthCodes removes codes past their TTL.
	DeleteExpiredAuthCodes(ctx context.Context) error
}

// TokenRepository defines storage of access and refresh tokens.
type TokenRepository interface {
	// StoreToken persists an issued token.
	StoreToken(ctx context.Context, token *Token) error

	// GetAccessToken retrieves an unrevoked, unexpired access token by digest.
	GetAccessToken(ctx context.Context, tokenHash string) (*Token, error)

	// GetRefreshToken retrieves an unrevoked, unexpired refresh token by digest.
	GetRefreshToken(ctx context.Context, tokenHash string) (*Token, error)

	// RevokeToken marks the token with the given digest and type revoked.
	// Revoking an unknown digest is not an error.
	RevokeToken(ctx context.Context, tokenHash, tokenType string) error

	// RevokeAccessTokensForRefresh revokes all access tokens minted from the
	// given refresh token.
	RevokeAccessTokensForRefresh(ctx context.Context, refreshTokenID string) error

	// DeleteExpiredTokens removes tokens past their TTL.
	DeleteExpiredTokens(ctx context.Context) error
}

// OAuthRepository aggregates the persistent stores the authorization server
// depends on.
type OAuthRepository interface {
	ApplicationRepository
	AuthorizationCodeRepository
	TokenRepository
}
