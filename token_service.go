package storeauth

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopforge/storeauth/cache"
	"github.com/shopforge/storeauth/domain"
	ssoerrors "github.com/shopforge/storeauth/errors"
	"github.com/shopforge/storeauth/internal/metrics"
	"golang.org/x/crypto/bcrypt"
)

// ErrTokenExpiredOrRevoked is returned by ValidateAccessToken for tokens
// that exist but are no longer usable.
var ErrTokenExpiredOrRevoked = errors.New("token expired or revoked")

// TokenService implements the token endpoint operations: code exchange,
// refresh, revocation and introspection, plus bearer-token validation for
// the request-authentication middleware.
type TokenService struct {
	repo          domain.OAuthRepository
	cache         cache.TokenStore
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	rotateRefresh bool
}

// NewTokenService creates a new TokenService instance. rotateRefresh selects
// the refresh-token policy: when true every refresh invalidates the
// presented refresh token and returns a new one; when false the presented
// token is reused.
func NewTokenService(
	repo domain.OAuthRepository,
	tokenCache cache.TokenStore,
	issuer string,
	accessTTL, refreshTTL time.Duration,
	rotateRefresh bool,
) *TokenService {
	return &TokenService{
		repo:          repo,
		cache:         tokenCache,
		issuer:        issuer,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		rotateRefresh: rotateRefresh,
	}
}

// authenticateClient resolves the application and verifies its secret.
// Secrets are stored as bcrypt hashes; bcrypt's comparison is not
// short-circuited on mismatch.
func (s *TokenService) authenticateClient(ctx context.Context, clientID, clientSecret string) (*domain.Application, error) {
	if clientID == "" || clientSecret == "" {
		return nil, ssoerrors.NewInvalidClient("Missing client credentials")
	}

	app, err := s.repo.GetApplication(ctx, clientID)
	if err != nil || !app.IsActive {
		return nil, ssoerrors.NewInvalidClient("Invalid client credentials")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(app.ClientSecretHash), []byte(clientSecret)); err != nil {
		return nil, ssoerrors.NewInvalidClient("Invalid client credentials")
	}

	return app, nil
}

// ExchangeCode redeems an authorization code for an access/refresh token
// pair. Redemption is atomic at the storage layer: of any number of
// concurrent attempts on the same code, exactly one succeeds.
func (s *TokenService) ExchangeCode(ctx context.Context, code, clientID, clientSecret, redirectURI, codeVerifier string) (*TokenResponse, error) {
	app, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	authCode, err := s.repo.ConsumeAuthCode(ctx, HashToken(code))
	if err != nil {
		return nil, ssoerrors.NewInvalidGrant("Invalid, expired or already used authorization code")
	}

	if authCode.ClientID != app.ClientID {
		return nil, ssoerrors.NewInvalidGrant("Authorization code was issued to a different client")
	}
	if authCode.RedirectURI != redirectURI {
		return nil, ssoerrors.NewInvalidGrant("redirect_uri does not match the authorization request")
	}

	if authCode.CodeChallenge != "" {
		if codeVerifier == "" {
			return nil, ssoerrors.NewPKCERequired()
		}
		if !VerifyPKCE(authCode.CodeChallenge, authCode.CodeChallengeMethod, codeVerifier) {
			return nil, ssoerrors.NewInvalidPKCE("code_verifier does not match code_challenge")
		}
	}

	resp, err := s.issueTokenPair(ctx, app.ClientID, authCode.StoreID, authCode.Scope)
	if err != nil {
		return nil, err
	}

	metrics.TokensIssuedTotal.Inc()
	log.Info().
		Str("client_id", app.ClientID).
		Str("store_id", authCode.StoreID).
		Str("scope", authCode.Scope).
		Msg("authorization code exchanged")

	return resp, nil
}

// RefreshToken issues a new access token from a refresh token. The
// requested scope, if any, must be a subset of the original grant.
func (s *TokenService) RefreshToken(ctx context.Context, refreshToken, clientID, clientSecret, scope string) (*TokenResponse, error) {
	app, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	refresh, err := s.repo.GetRefreshToken(ctx, HashToken(refreshToken))
	if err != nil {
		return nil, ssoerrors.NewInvalidGrant("Invalid or revoked refresh token")
	}
	if refresh.ClientID != app.ClientID {
		return nil, ssoerrors.NewInvalidGrant("Refresh token was issued to a different client")
	}

	grantScope := refresh.Scope
	if scope != "" {
		requested := SplitScopes(scope)
		if !ScopesSubset(requested, SplitScopes(refresh.Scope)) {
			return nil, ssoerrors.NewInvalidScope("Requested scope exceeds the original grant")
		}
		grantScope = JoinScopes(requested)
	}

	now := time.Now()
	refreshID := refresh.ID
	refreshValue := refreshToken

	if s.rotateRefresh {
		// Rotation: invalidate the presented token before the new pair is
		// returned, so a replayed refresh token fails with invalid_grant.
		if err := s.repo.RevokeToken(ctx, refresh.TokenHash, domain.TokenTypeRefresh); err != nil {
			log.Error().Err(err).Msg("failed to revoke rotated refresh token")
			return nil, ssoerrors.NewServerError("Failed to refresh token")
		}

		newValue, err := generateOpaqueToken()
		if err != nil {
			return nil, ssoerrors.NewServerError("Failed to refresh token")
		}
		newRefresh := &domain.Token{
			ID:             uuid.NewString(),
			TokenType:      domain.TokenTypeRefresh,
			TokenHash:      HashToken(newValue),
			ClientID:       refresh.ClientID,
			StoreID:        refresh.StoreID,
			Scope:          refresh.Scope,
			ExpiresAt:      now.Add(s.refreshTTL),
			CreatedAt:      now,
			LastUsedAt:     now,
			RefreshTokenID: refresh.ID,
		}
		if err := s.repo.StoreToken(ctx, newRefresh); err != nil {
			return nil, ssoerrors.NewServerError("Failed to refresh token")
		}
		refreshID = newRefresh.ID
		refreshValue = newValue
	}

	accessValue, err := generateOpaqueToken()
	if err != nil {
		return nil, ssoerrors.NewServerError("Failed to refresh token")
	}
	access := &domain.Token{
		ID:             uuid.NewString(),
		TokenType:      domain.TokenTypeAccess,
		TokenHash:      HashToken(accessValue),
		ClientID:       refresh.ClientID,
		StoreID:        refresh.StoreID,
		Scope:          grantScope,
		ExpiresAt:      now.Add(s.accessTTL),
		CreatedAt:      now,
		LastUsedAt:     now,
		RefreshTokenID: refreshID,
	}
	if err := s.repo.StoreToken(ctx, access); err != nil {
		return nil, ssoerrors.NewServerError("Failed to refresh token")
	}

	s.cacheAccessToken(ctx, access)
	metrics.TokensRefreshedTotal.Inc()

	return &TokenResponse{
		AccessToken:  accessValue,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
		RefreshToken: refreshValue,
		Scope:        grantScope,
	}, nil
}

// RevokeToken marks the given token revoked if it exists and belongs to the
// authenticating client. Per RFC 7009 the caller cannot learn whether the
// token existed: only client authentication failures are reported.
func (s *TokenService) RevokeToken(ctx context.Context, token, clientID, clientSecret, tokenTypeHint string) error {
	app, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return err
	}

	tokenHash := HashToken(token)
	found, err := s.lookupToken(ctx, tokenHash, tokenTypeHint)
	if err != nil || found.ClientID != app.ClientID {
		// Unknown or foreign token: succeed without revealing anything.
		return nil
	}

	if err := s.repo.RevokeToken(ctx, tokenHash, found.TokenType); err != nil {
		log.Error().Err(err).Str("token_type", found.TokenType).Msg("failed to revoke token")
		return nil
	}

	if found.TokenType == domain.TokenTypeRefresh {
		if err := s.repo.RevokeAccessTokensForRefresh(ctx, found.ID); err != nil {
			log.Error().Err(err).Msg("failed to revoke access tokens for refresh token")
		}
		// Cached entries are keyed by token digest, so the cascaded access
		// tokens cannot be evicted individually. Drop the whole cache; it
		// repopulates from the repository on the next validation.
		if err := s.cache.Clear(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to clear token cache after cascade")
		}
	} else if err := s.cache.Delete(ctx, tokenHash); err != nil {
		log.Warn().Err(err).Msg("failed to evict revoked token from cache")
	}

	metrics.TokensRevokedTotal.Inc()
	log.Info().
		Str("client_id", app.ClientID).
		Str("token_type", found.TokenType).
		Msg("token revoked")

	return nil
}

// IntrospectToken implements RFC 7662. Tokens that are unknown, expired,
// revoked, or owned by a different client all come back as inactive;
// ownership is never disclosed.
func (s *TokenService) IntrospectToken(ctx context.Context, token, clientID, clientSecret, tokenTypeHint string) (*TokenIntrospection, error) {
	app, err := s.authenticateClient(ctx, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	metrics.IntrospectionsTotal.Inc()

	found, err := s.lookupToken(ctx, HashToken(token), tokenTypeHint)
	if err != nil || !found.Valid(time.Now()) || found.ClientID != app.ClientID {
		return &TokenIntrospection{Active: false}, nil
	}

	return &TokenIntrospection{
		Active:    true,
		Scope:     found.Scope,
		ClientID:  found.ClientID,
		TokenType: found.TokenType,
		Exp:       found.ExpiresAt.Unix(),
		Iat:       found.CreatedAt.Unix(),
		Sub:       found.StoreID,
		Iss:       s.issuer,
		Jti:       found.ID,
	}, nil
}

// ValidateAccessToken authenticates a bearer token for the middleware. It
// consults the cache first, falls back to the repository, and checks that
// the owning application is still active.
func (s *TokenService) ValidateAccessToken(ctx context.Context, tokenValue string) (*domain.TokenInfo, error) {
	now := time.Now()
	tokenHash := HashToken(tokenValue)

	if entry, err := s.cache.Get(ctx, tokenHash); err == nil {
		if entry.IsRevoked || now.After(entry.ExpiresAt) {
			if err := s.cache.Delete(ctx, tokenHash); err != nil {
				log.Warn().Err(err).Msg("failed to evict stale token from cache")
			}
			return nil, ErrTokenExpiredOrRevoked
		}
		if err := s.checkApplicationActive(ctx, entry.ClientID); err != nil {
			return nil, err
		}
		return &domain.TokenInfo{
			ID:        entry.ID,
			TokenType: entry.TokenType,
			ClientID:  entry.ClientID,
			StoreID:   entry.StoreID,
			Scope:     entry.Scope,
			IssuedAt:  entry.CreatedAt,
			ExpiresAt: entry.ExpiresAt,
		}, nil
	}

	token, err := s.repo.GetAccessToken(ctx, tokenHash)
	if err != nil {
		return nil, ErrTokenExpiredOrRevoked
	}
	if !token.Valid(now) {
		return nil, ErrTokenExpiredOrRevoked
	}
	if err := s.checkApplicationActive(ctx, token.ClientID); err != nil {
		return nil, err
	}

	s.cacheAccessToken(ctx, token)

	return &domain.TokenInfo{
		ID:        token.ID,
		TokenType: token.TokenType,
		ClientID:  token.ClientID,
		StoreID:   token.StoreID,
		Scope:     token.Scope,
		IssuedAt:  token.CreatedAt,
		ExpiresAt: token.ExpiresAt,
	}, nil
}

func (s *TokenService) checkApplicationActive(ctx context.Context, clientID string) error {
	app, err := s.repo.GetApplication(ctx, clientID)
	if err != nil || !app.IsActive {
		return ErrTokenExpiredOrRevoked
	}
	return nil
}

// lookupToken resolves a token digest, trying the hinted type first and
// falling back to the other, per RFC 7662 §2.1.
func (s *TokenService) lookupToken(ctx context.Context, tokenHash, tokenTypeHint string) (*domain.Token, error) {
	switch tokenTypeHint {
	case domain.TokenTypeRefresh:
		if token, err := s.repo.GetRefreshToken(ctx, tokenHash); err == nil {
			return token, nil
		}
		return s.repo.GetAccessToken(ctx, tokenHash)
	default:
		if token, err := s.repo.GetAccessToken(ctx, tokenHash); err == nil {
			return token, nil
		}
		return s.repo.GetRefreshToken(ctx, tokenHash)
	}
}

// issueTokenPair mints and persists a fresh access/refresh token pair bound
// to (client, store, scope). Once both inserts commit the pair is final;
// client disconnects after this point do not roll it back.
func (s *TokenService) issueTokenPair(ctx context.Context, clientID, storeID, scope string) (*TokenResponse, error) {
	accessValue, err := generateOpaqueToken()
	if err != nil {
		return nil, ssoerrors.NewServerError("Failed to issue tokens")
	}
	refreshValue, err := generateOpaqueToken()
	if err != nil {
		return nil, ssoerrors.NewServerError("Failed to issue tokens")
	}

	now := time.Now()
	refresh := &domain.Token{
		ID:         uuid.NewString(),
		TokenType:  domain.TokenTypeRefresh,
		TokenHash:  HashToken(refreshValue),
		ClientID:   clientID,
		StoreID:    storeID,
		Scope:      scope,
		ExpiresAt:  now.Add(s.refreshTTL),
		CreatedAt:  now,
		LastUsedAt: now,
	}
	access := &domain.Token{
		ID:             uuid.NewString(),
		TokenType:      domain.TokenTypeAccess,
		TokenHash:      HashToken(accessValue),
		ClientID:       clientID,
		StoreID:        storeID,
		Scope:          scope,
		ExpiresAt:      now.Add(s.accessTTL),
		CreatedAt:      now,
		LastUsedAt:     now,
		RefreshTokenID: refresh.ID,
	}

	if err := s.repo.StoreToken(ctx, refresh); err != nil {
		return nil, ssoerrors.NewServerError("Failed to issue tokens")
	}
	if err := s.repo.StoreToken(ctx, access); err != nil {
		return nil, ssoerrors.NewServerError("Failed to issue tokens")
	}

	s.cacheAccessToken(ctx, access)

	return &TokenResponse{
		AccessToken:  accessValue,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.accessTTL.Seconds()),
		RefreshToken: refreshValue,
		Scope:        scope,
	}, nil
}

// cacheAccessToken caches the digest-keyed view of an access token. The
// plaintext value is never handed to the cache.
func (s *TokenService) cacheAccessToken(ctx context.Context, token *domain.Token) {
	entry := &cache.TokenEntry{
		ID:         token.ID,
		TokenType:  token.TokenType,
		TokenHash:  token.TokenHash,
		ClientID:   token.ClientID,
		StoreID:    token.StoreID,
		Scope:      token.Scope,
		ExpiresAt:  token.ExpiresAt,
		IsRevoked:  token.IsRevoked,
		CreatedAt:  token.CreatedAt,
		LastUsedAt: token.LastUsedAt,
	}
	if err := s.cache.Set(ctx, entry); err != nil {
		log.Warn().Err(err).Msg("failed to cache access token")
	}
}
