package storeauth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopforge/storeauth/domain"
	"golang.org/x/crypto/bcrypt"
)

// memRepo is an in-memory domain.OAuthRepository used by the service tests.
// ConsumeAuthCode mirrors the conditional-update semantics of the real
// storage layer: the consumed flag flips under a lock, so concurrent
// redemptions observe exactly one success.
type memRepo struct {
	mu     sync.Mutex
	apps   map[string]*domain.Application
	codes  map[string]*domain.AuthorizationCode
	tokens map[string]*domain.Token // keyed by token_hash + "/" + token_type

	failStoreToken bool
}

func newMemRepo() *memRepo {
	return &memRepo{
		apps:   make(map[string]*domain.Application),
		codes:  make(map[string]*domain.AuthorizationCode),
		tokens: make(map[string]*domain.Token),
	}
}

func (r *memRepo) CreateApplication(_ context.Context, app *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.apps[app.ClientID] = app
	return nil
}

func (r *memRepo) GetApplication(_ context.Context, clientID string) (*domain.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	app, ok := r.apps[clientID]
	if !ok {
		return nil, domain.ErrApplicationNotFound
	}
	clone := *app
	return &clone, nil
}

func (r *memRepo) UpdateApplication(_ context.Context, app *domain.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.apps[app.ClientID]; !ok {
		return domain.ErrApplicationNotFound
	}
	r.apps[app.ClientID] = app
	return nil
}

func (r *memRepo) SaveAuthCode(_ context.Context, code *domain.AuthorizationCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[code.CodeHash] = code
	return nil
}

func (r *memRepo) ConsumeAuthCode(_ context.Context, codeHash string) (*domain.AuthorizationCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[codeHash]
	if !ok || code.Consumed || code.Expired(time.Now()) {
		return nil, domain.ErrAuthCodeNotFound
	}
	code.Consumed = true
	clone := *code
	return &clone, nil
}

func (r *memRepo) DeleteExpiredAuthCodes(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, code := range r.codes {
		if code.Expired(time.Now()) {
			delete(r.codes, hash)
		}
	}
	return nil
}

func tokenKey(tokenHash, tokenType string) string {
	return tokenHash + "/" + tokenType
}

func (r *memRepo) StoreToken(_ context.Context, token *domain.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failStoreToken {
		return errors.New("insert failed")
	}
	clone := *token
	r.tokens[tokenKey(token.TokenHash, token.TokenType)] = &clone
	return nil
}

func (r *memRepo) GetAccessToken(ctx context.Context, tokenHash string) (*domain.Token, error) {
	return r.getToken(ctx, tokenHash, domain.TokenTypeAccess)
}

func (r *memRepo) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.Token, error) {
	return r.getToken(ctx, tokenHash, domain.TokenTypeRefresh)
}

func (r *memRepo) getToken(_ context.Context, tokenHash, tokenType string) (*domain.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	token, ok := r.tokens[tokenKey(tokenHash, tokenType)]
	if !ok || token.IsRevoked || time.Now().After(token.ExpiresAt) {
		return nil, domain.ErrTokenNotFound
	}
	clone := *token
	return &clone, nil
}

func (r *memRepo) RevokeToken(_ context.Context, tokenHash, tokenType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if token, ok := r.tokens[tokenKey(tokenHash, tokenType)]; ok {
		token.IsRevoked = true
	}
	return nil
}

func (r *memRepo) RevokeAccessTokensForRefresh(_ context.Context, refreshTokenID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, token := range r.tokens {
		if token.TokenType == domain.TokenTypeAccess && token.RefreshTokenID == refreshTokenID {
			token.IsRevoked = true
		}
	}
	return nil
}

func (r *memRepo) DeleteExpiredTokens(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, token := range r.tokens {
		if time.Now().After(token.ExpiresAt) {
			delete(r.tokens, key)
		}
	}
	return nil
}

var _ domain.OAuthRepository = (*memRepo)(nil)

// seedApplication registers an active application with the given secret.
func seedApplication(r *memRepo, clientID, secret string, redirectURIs, allowedScopes []string) *domain.Application {
	hash, _ := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	app := &domain.Application{
		ClientID:         clientID,
		ClientSecretHash: string(hash),
		Name:             "Acme Order Sync",
		RedirectURIs:     redirectURIs,
		AllowedScopes:    allowedScopes,
		IsActive:         true,
	}
	r.apps[clientID] = app
	return app
}
