package storeauth

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopforge/storeauth/domain"
	ssoerrors "github.com/shopforge/storeauth/errors"
	"github.com/shopforge/storeauth/internal/flow"
)

func newTestAuthorizeService(t *testing.T, repo *memRepo, allowPlain bool) *AuthorizeService {
	t.Helper()
	pending := flow.NewPendingStore(10 * time.Minute)
	t.Cleanup(func() { _ = pending.Close() })
	return NewAuthorizeService(repo, pending, 10*time.Minute, 10*time.Minute, allowPlain)
}

func validRequest() AuthorizationRequest {
	return AuthorizationRequest{
		ClientID:     testClientID,
		RedirectURI:  testRedirectURI,
		ResponseType: "code",
		Scope:        "orders.read products.read",
		State:        "xyz-state",
	}
}

// assertRedirectError asserts err is deliverable to the callback and carries
// the given error code.
func assertRedirectError(t *testing.T, err error, code string) *RedirectError {
	t.Helper()
	require.Error(t, err)
	redirectErr, ok := err.(*RedirectError)
	require.True(t, ok, "expected *RedirectError, got %T", err)
	assert.Equal(t, code, redirectErr.Err.Code)
	return redirectErr
}

// assertLocalError asserts err must be rendered locally, never redirected.
func assertLocalError(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	_, isRedirect := err.(*RedirectError)
	require.False(t, isRedirect, "error must not be delivered to the redirect URI")
	assertOAuthError(t, err, code)
}

func TestValidateRequest(t *testing.T) {
	ctx := context.Background()

	t.Run("valid request yields a consent page", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		page, err := svc.ValidateRequest(ctx, validRequest())
		require.NoError(t, err)
		assert.NotEmpty(t, page.RequestID)
		assert.Equal(t, "Acme Order Sync", page.ApplicationName)
		assert.Equal(t, "xyz-state", page.State)
		require.Len(t, page.Scopes, 2)
		assert.Equal(t, "orders.read", page.Scopes[0].Scope)
		assert.NotEmpty(t, page.Scopes[0].Description)
	})

	t.Run("unknown client renders locally", func(t *testing.T) {
		repo := newMemRepo()
		svc := newTestAuthorizeService(t, repo, false)

		_, err := svc.ValidateRequest(ctx, validRequest())
		assertLocalError(t, err, ssoerrors.InvalidRequest)
	})

	t.Run("inactive client renders locally", func(t *testing.T) {
		repo := newMemRepo()
		app := seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		app.IsActive = false
		svc := newTestAuthorizeService(t, repo, false)

		_, err := svc.ValidateRequest(ctx, validRequest())
		assertLocalError(t, err, ssoerrors.InvalidRequest)
	})

	t.Run("unregistered redirect_uri renders locally", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		req := validRequest()
		req.RedirectURI = "https://evil.example/cb"
		_, err := svc.ValidateRequest(ctx, req)
		assertLocalError(t, err, ssoerrors.InvalidRequest)
	})

	t.Run("redirect_uri match is exact", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		req := validRequest()
		req.RedirectURI = testRedirectURI + "/extra"
		_, err := svc.ValidateRequest(ctx, req)
		assertLocalError(t, err, ssoerrors.InvalidRequest)
	})

	t.Run("unsupported response_type redirects", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		req := validRequest()
		req.ResponseType = "token"
		_, err := svc.ValidateRequest(ctx, req)
		redirectErr := assertRedirectError(t, err, ssoerrors.UnsupportedResponseType)

		location, parseErr := url.Parse(redirectErr.Location())
		require.NoError(t, parseErr)
		assert.Equal(t, ssoerrors.UnsupportedResponseType, location.Query().Get("error"))
		assert.Equal(t, "xyz-state", location.Query().Get("state"))
	})

	t.Run("oversized state redirects", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		req := validRequest()
		req.State = strings.Repeat("s", MaxStateLength+1)
		_, err := svc.ValidateRequest(ctx, req)
		assertRedirectError(t, err, ssoerrors.InvalidRequest)
	})

	t.Run("unknown scope redirects with invalid_scope", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		req := validRequest()
		req.Scope = "orders.read warehouses.teleport"
		_, err := svc.ValidateRequest(ctx, req)
		assertRedirectError(t, err, ssoerrors.InvalidScope)
	})

	t.Run("scope outside the client allow list redirects", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, []string{"orders.read"})
		svc := newTestAuthorizeService(t, repo, false)

		req := validRequest()
		req.Scope = "orders.read products.read"
		_, err := svc.ValidateRequest(ctx, req)
		assertRedirectError(t, err, ssoerrors.InvalidScope)
	})

	t.Run("empty scope redirects", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		req := validRequest()
		req.Scope = "   "
		_, err := svc.ValidateRequest(ctx, req)
		assertRedirectError(t, err, ssoerrors.InvalidScope)
	})

	t.Run("short code_challenge redirects", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		req := validRequest()
		req.CodeChallenge = "too-short"
		_, err := svc.ValidateRequest(ctx, req)
		assertRedirectError(t, err, ssoerrors.InvalidRequest)
	})

	t.Run("plain method rejected unless enabled", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)

		req := validRequest()
		req.CodeChallenge = strings.Repeat("v", MinCodeVerifierLength)
		req.CodeChallengeMethod = domain.CodeChallengeMethodPlain

		strict := newTestAuthorizeService(t, repo, false)
		_, err := strict.ValidateRequest(ctx, req)
		assertRedirectError(t, err, ssoerrors.InvalidRequest)

		permissive := newTestAuthorizeService(t, repo, true)
		_, err = permissive.ValidateRequest(ctx, req)
		assert.NoError(t, err)
	})

	t.Run("unknown challenge method redirects", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		req := validRequest()
		req.CodeChallenge = strings.Repeat("v", MinCodeVerifierLength)
		req.CodeChallengeMethod = "S512"
		_, err := svc.ValidateRequest(ctx, req)
		assertRedirectError(t, err, ssoerrors.InvalidRequest)
	})

	t.Run("missing challenge method defaults to S256", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		verifier := strings.Repeat("v", MinCodeVerifierLength)
		req := validRequest()
		req.CodeChallenge = S256Challenge(verifier)

		page, err := svc.ValidateRequest(ctx, req)
		require.NoError(t, err)

		location, err := svc.Approve(ctx, page.RequestID, testStoreID)
		require.NoError(t, err)

		code := queryParam(t, location, "code")
		stored, err := repo.ConsumeAuthCode(ctx, HashToken(code))
		require.NoError(t, err)
		assert.Equal(t, domain.CodeChallengeMethodS256, stored.CodeChallengeMethod)
	})
}

func queryParam(t *testing.T, rawURL, key string) string {
	t.Helper()
	parsed, err := url.Parse(rawURL)
	require.NoError(t, err)
	return parsed.Query().Get(key)
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("approval mints a bound single-use code", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		page, err := svc.ValidateRequest(ctx, validRequest())
		require.NoError(t, err)

		location, err := svc.Approve(ctx, page.RequestID, testStoreID)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(location, testRedirectURI))
		code := queryParam(t, location, "code")
		assert.NotEmpty(t, code)
		assert.Equal(t, "xyz-state", queryParam(t, location, "state"))

		stored, err := repo.ConsumeAuthCode(ctx, HashToken(code))
		require.NoError(t, err)
		assert.Equal(t, testClientID, stored.ClientID)
		assert.Equal(t, testStoreID, stored.StoreID)
		assert.Equal(t, testRedirectURI, stored.RedirectURI)
		assert.Equal(t, "orders.read products.read", stored.Scope)

		// Only the digest is stored.
		assert.NotEqual(t, code, stored.CodeHash)
	})

	t.Run("pending request is decided at most once", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		page, err := svc.ValidateRequest(ctx, validRequest())
		require.NoError(t, err)

		_, err = svc.Approve(ctx, page.RequestID, testStoreID)
		require.NoError(t, err)

		_, err = svc.Approve(ctx, page.RequestID, testStoreID)
		assertOAuthError(t, err, ssoerrors.InvalidRequest)
	})

	t.Run("approval requires a store", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		page, err := svc.ValidateRequest(ctx, validRequest())
		require.NoError(t, err)

		_, err = svc.Approve(ctx, page.RequestID, "")
		assertOAuthError(t, err, ssoerrors.InvalidRequest)

		// The request survives the rejected approval attempt.
		_, err = svc.Approve(ctx, page.RequestID, testStoreID)
		assert.NoError(t, err)
	})

	t.Run("unknown request id", func(t *testing.T) {
		repo := newMemRepo()
		svc := newTestAuthorizeService(t, repo, false)

		_, err := svc.Approve(ctx, "nope", testStoreID)
		assertOAuthError(t, err, ssoerrors.InvalidRequest)
	})

	t.Run("redirect URI query is preserved", func(t *testing.T) {
		repo := newMemRepo()
		redirect := "https://app.acme.example/callback?env=prod"
		seedApplication(repo, testClientID, testClientSecret, []string{redirect}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		req := validRequest()
		req.RedirectURI = redirect
		page, err := svc.ValidateRequest(ctx, req)
		require.NoError(t, err)

		location, err := svc.Approve(ctx, page.RequestID, testStoreID)
		require.NoError(t, err)
		assert.Equal(t, "prod", queryParam(t, location, "env"))
		assert.NotEmpty(t, queryParam(t, location, "code"))
	})
}

func TestDeny(t *testing.T) {
	ctx := context.Background()

	t.Run("denial redirects with access_denied", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		page, err := svc.ValidateRequest(ctx, validRequest())
		require.NoError(t, err)

		location, err := svc.Deny(ctx, page.RequestID)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(location, testRedirectURI))
		assert.Equal(t, ssoerrors.AccessDenied, queryParam(t, location, "error"))
		assert.Equal(t, "xyz-state", queryParam(t, location, "state"))
		assert.Empty(t, queryParam(t, location, "code"))
	})

	t.Run("denied request cannot later be approved", func(t *testing.T) {
		repo := newMemRepo()
		seedApplication(repo, testClientID, testClientSecret, []string{testRedirectURI}, nil)
		svc := newTestAuthorizeService(t, repo, false)

		page, err := svc.ValidateRequest(ctx, validRequest())
		require.NoError(t, err)

		_, err = svc.Deny(ctx, page.RequestID)
		require.NoError(t, err)

		_, err = svc.Approve(ctx, page.RequestID, testStoreID)
		assertOAuthError(t, err, ssoerrors.InvalidRequest)
	})
}
