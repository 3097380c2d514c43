package storeauth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopforge/storeauth/domain"
	ssoerrors "github.com/shopforge/storeauth/errors"
	"github.com/shopforge/storeauth/internal/metrics"
	"github.com/shopforge/storeauth/scopes"
)

// MaxStateLength bounds the client's opaque state parameter.
const MaxStateLength = 512

// AuthorizationRequest holds the query parameters of a GET /oauth/authorize
// request.
type AuthorizationRequest struct {
	ClientID            string
	RedirectURI         string
	ResponseType        string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
}

// RedirectError is a validation failure that occurred after the redirect URI
// was verified, so it is safe to deliver the error to the client's callback.
type RedirectError struct {
	RedirectURI string
	State       string
	Err         *ssoerrors.OAuth2Error
}

func (e *RedirectError) Error() string {
	return e.Err.Error()
}

func (e *RedirectError) Unwrap() error {
	return e.Err
}

// Location builds the full redirect URL carrying the encoded error.
func (e *RedirectError) Location() string {
	params := map[string]string{
		"error":             e.Err.Code,
		"error_description": e.Err.Description,
	}
	if e.State != "" {
		params["state"] = e.State
	}
	return appendQuery(e.RedirectURI, params)
}

// AuthorizeService validates authorization requests, stages them for
// consent, and mints authorization codes on approval.
type AuthorizeService struct {
	repo           domain.OAuthRepository
	pending        domain.PendingAuthorizationStore
	codeTTL        time.Duration
	pendingTTL     time.Duration
	allowPlainPKCE bool
}

// NewAuthorizeService creates a new AuthorizeService instance.
func NewAuthorizeService(
	repo domain.OAuthRepository,
	pending domain.PendingAuthorizationStore,
	codeTTL, pendingTTL time.Duration,
	allowPlainPKCE bool,
) *AuthorizeService {
	return &AuthorizeService{
		repo:           repo,
		pending:        pending,
		codeTTL:        codeTTL,
		pendingTTL:     pendingTTL,
		allowPlainPKCE: allowPlainPKCE,
	}
}

// ValidateRequest validates an incoming authorization request and stages a
// pending authorization for the consent decision.
//
// Failures before the redirect URI is verified come back as a plain
// *errors.OAuth2Error, which the handler must render locally and never
// redirect. Failures after that point come back as *RedirectError.
func (s *AuthorizeService) ValidateRequest(ctx context.Context, req AuthorizationRequest) (*ConsentPage, error) {
	// Client and redirect URI come first. Until both check out there is no
	// trusted callback to deliver errors to.
	app, err := s.repo.GetApplication(ctx, req.ClientID)
	if err != nil || !app.IsActive {
		return nil, ssoerrors.NewInvalidRequest("Unknown or inactive client")
	}

	if !app.HasRedirectURI(req.RedirectURI) {
		return nil, ssoerrors.NewInvalidRequest("redirect_uri is not registered for this client")
	}

	fail := func(oauthErr *ssoerrors.OAuth2Error) error {
		return &RedirectError{RedirectURI: req.RedirectURI, State: req.State, Err: oauthErr}
	}

	if req.ResponseType != "code" {
		return nil, fail(ssoerrors.NewUnsupportedResponseType())
	}

	if len(req.State) > MaxStateLength {
		return nil, fail(ssoerrors.NewInvalidRequest("state exceeds 512 bytes"))
	}

	challengeMethod := req.CodeChallengeMethod
	if req.CodeChallenge != "" {
		if l := len(req.CodeChallenge); l < MinCodeVerifierLength || l > MaxCodeVerifierLength {
			return nil, fail(ssoerrors.NewInvalidRequest("code_challenge must be 43-128 characters"))
		}
		switch challengeMethod {
		case "":
			challengeMethod = domain.CodeChallengeMethodS256
		case domain.CodeChallengeMethodS256:
		case domain.CodeChallengeMethodPlain:
			if !s.allowPlainPKCE {
				return nil, fail(ssoerrors.NewInvalidRequest("the 'plain' code_challenge_method is not allowed"))
			}
		default:
			return nil, fail(ssoerrors.NewInvalidRequest("unsupported code_challenge_method"))
		}
	}

	requested := SplitScopes(req.Scope)
	if len(requested) == 0 {
		return nil, fail(ssoerrors.NewInvalidScope("at least one scope must be requested"))
	}
	for _, scope := range requested {
		if !scopes.IsValid(scope) {
			return nil, fail(ssoerrors.NewInvalidScope(fmt.Sprintf("unknown scope %q", scope)))
		}
		if !app.ScopeAllowed(scope) {
			return nil, fail(ssoerrors.NewInvalidScope(fmt.Sprintf("scope %q is not permitted for this client", scope)))
		}
	}

	now := time.Now()
	pending := &domain.PendingAuthorization{
		ID:                  uuid.NewString(),
		ClientID:            app.ClientID,
		RedirectURI:         req.RedirectURI,
		Scopes:              requested,
		State:               req.State,
		CodeChallenge:       req.CodeChallenge,
		CodeChallengeMethod: challengeMethod,
		CreatedAt:           now,
		ExpiresAt:           now.Add(s.pendingTTL),
	}
	if err := s.pending.Save(ctx, pending); err != nil {
		log.Error().Err(err).Str("client_id", app.ClientID).Msg("failed to stage pending authorization")
		return nil, ssoerrors.NewServerError("Failed to stage authorization request")
	}

	page := &ConsentPage{
		RequestID:       pending.ID,
		ApplicationName: app.Name,
		LogoURI:         app.LogoURI,
		Scopes:          make([]ConsentScope, 0, len(requested)),
		State:           req.State,
	}
	for _, scope := range requested {
		page.Scopes = append(page.Scopes, ConsentScope{Scope: scope, Description: scopes.Describe(scope)})
	}

	return page, nil
}

// Deny consumes the pending authorization and returns the redirect URL
// carrying access_denied, with the client's state echoed unchanged.
func (s *AuthorizeService) Deny(ctx context.Context, requestID string) (string, error) {
	pending, err := s.pending.Consume(ctx, requestID)
	if err != nil {
		return "", ssoerrors.NewInvalidRequest("Unknown or expired authorization request")
	}

	metrics.ConsentDeniedTotal.Inc()
	log.Info().Str("client_id", pending.ClientID).Msg("consent denied")

	redirectErr := &RedirectError{
		RedirectURI: pending.RedirectURI,
		State:       pending.State,
		Err:         ssoerrors.NewAccessDenied(),
	}
	return redirectErr.Location(), nil
}

// Approve consumes the pending authorization, mints a single-use
// authorization code bound to the chosen store, and returns the redirect URL
// carrying the code. storeID comes from the consenting user's session; a
// user may administer several stores, so the choice cannot be inferred from
// the request.
func (s *AuthorizeService) Approve(ctx context.Context, requestID, storeID string) (string, error) {
	if storeID == "" {
		return "", ssoerrors.NewInvalidRequest("store_id is required to approve an authorization")
	}

	pending, err := s.pending.Consume(ctx, requestID)
	if err != nil {
		return "", ssoerrors.NewInvalidRequest("Unknown or expired authorization request")
	}

	code, err := generateOpaqueToken()
	if err != nil {
		return "", ssoerrors.NewServerError("Failed to generate authorization code")
	}

	now := time.Now()
	authCode := &domain.AuthorizationCode{
		CodeHash:            HashToken(code),
		ClientID:            pending.ClientID,
		StoreID:             storeID,
		RedirectURI:         pending.RedirectURI,
		Scope:               JoinScopes(pending.Scopes),
		CodeChallenge:       pending.CodeChallenge,
		CodeChallengeMethod: pending.CodeChallengeMethod,
		ExpiresAt:           now.Add(s.codeTTL),
		CreatedAt:           now,
	}
	if err := s.repo.SaveAuthCode(ctx, authCode); err != nil {
		log.Error().Err(err).Str("client_id", pending.ClientID).Msg("failed to save authorization code")
		return "", ssoerrors.NewServerError("Failed to issue authorization code")
	}

	metrics.AuthCodesIssuedTotal.Inc()
	log.Info().
		Str("client_id", pending.ClientID).
		Str("store_id", storeID).
		Str("code_digest", authCode.CodeHash[:8]).
		Msg("authorization code issued")

	params := map[string]string{"code": code}
	if pending.State != "" {
		params["state"] = pending.State
	}
	return appendQuery(pending.RedirectURI, params), nil
}

// generateOpaqueToken returns a 256-bit random value in unpadded base64url.
func generateOpaqueToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// appendQuery adds params to the query string of rawURL, preserving any
// query the registered redirect URI already carries.
func appendQuery(rawURL string, params map[string]string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		// Redirect URIs are validated against the registry before use.
		return rawURL
	}
	query := parsed.Query()
	for key, value := range params {
		query.Set(key, value)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String()
}
