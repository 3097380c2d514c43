package echo

import (
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	storeauth "github.com/shopforge/storeauth"
	"github.com/shopforge/storeauth/domain"
	ssoerrors "github.com/shopforge/storeauth/errors"
	"github.com/shopforge/storeauth/scopes"
)

// OAuth2API holds the HTTP handlers of the authorization server.
type OAuth2API struct {
	authorize      *storeauth.AuthorizeService
	tokens         *storeauth.TokenService
	issuer         string
	allowPlainPKCE bool
}

// NewOAuth2API initializes the OAuth2 API.
func NewOAuth2API(
	authorize *storeauth.AuthorizeService,
	tokens *storeauth.TokenService,
	issuer string,
	allowPlainPKCE bool,
) *OAuth2API {
	return &OAuth2API{
		authorize:      authorize,
		tokens:         tokens,
		issuer:         issuer,
		allowPlainPKCE: allowPlainPKCE,
	}
}

// RegisterRoutes registers the OAuth2 routes.
func (oa *OAuth2API) RegisterRoutes(e *echo.Echo) {
	e.GET("/oauth/authorize", oa.AuthorizeHandler)
	e.POST("/oauth/authorize", oa.ConsentHandler)
	e.POST("/oauth/token", oa.TokenHandler)
	e.POST("/oauth/revoke", oa.RevokeHandler)
	e.POST("/oauth/introspect", oa.IntrospectHandler)
	e.GET("/oauth/scopes", oa.ScopesHandler)
	e.GET("/.well-known/oauth-authorization-server", oa.MetadataHandler)
}

// AuthorizeHandler validates an authorization request and returns the data
// the consent view renders. Failures before the redirect URI is verified
// produce a local error response and never redirect; later failures
// redirect with the error encoded in the callback query.
func (oa *OAuth2API) AuthorizeHandler(c echo.Context) error {
	req := storeauth.AuthorizationRequest{
		ClientID:            c.QueryParam("client_id"),
		RedirectURI:         c.QueryParam("redirect_uri"),
		ResponseType:        c.QueryParam("response_type"),
		Scope:               c.QueryParam("scope"),
		State:               c.QueryParam("state"),
		CodeChallenge:       c.QueryParam("code_challenge"),
		CodeChallengeMethod: c.QueryParam("code_challenge_method"),
	}

	page, err := oa.authorize.ValidateRequest(c.Request().Context(), req)
	if err != nil {
		return oa.authorizationError(c, err)
	}

	return c.JSON(http.StatusOK, page)
}

// ConsentHandler applies the user's consent decision. On approve the caller
// supplies the store the authenticated user chose; a user may administer
// several stores, so the session layer resolves that choice, not this
// endpoint.
func (oa *OAuth2API) ConsentHandler(c echo.Context) error {
	requestID := c.FormValue("request_id")
	decision := c.FormValue("decision")

	var location string
	var err error

	switch decision {
	case "approve":
		location, err = oa.authorize.Approve(c.Request().Context(), requestID, c.FormValue("store_id"))
	case "deny":
		location, err = oa.authorize.Deny(c.Request().Context(), requestID)
	default:
		return c.JSON(http.StatusBadRequest, ssoerrors.NewInvalidRequest("decision must be 'approve' or 'deny'"))
	}

	if err != nil {
		return oa.authorizationError(c, err)
	}

	return c.Redirect(http.StatusFound, location)
}

// TokenHandler handles POST /oauth/token for the supported grant types.
func (oa *OAuth2API) TokenHandler(c echo.Context) error {
	clientID, clientSecret, err := clientCredentials(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, err)
	}

	ctx := c.Request().Context()

	var tokenResponse *storeauth.TokenResponse
	var processErr error

	switch c.FormValue("grant_type") {
	case "authorization_code":
		tokenResponse, processErr = oa.tokens.ExchangeCode(ctx,
			c.FormValue("code"), clientID, clientSecret,
			c.FormValue("redirect_uri"), c.FormValue("code_verifier"))
	case "refresh_token":
		tokenResponse, processErr = oa.tokens.RefreshToken(ctx,
			c.FormValue("refresh_token"), clientID, clientSecret,
			c.FormValue("scope"))
	default:
		return c.JSON(http.StatusBadRequest, ssoerrors.NewUnsupportedGrantType())
	}

	if processErr != nil {
		return tokenEndpointError(c, processErr)
	}

	log.Info().
		Str("client_id", clientID).
		Str("grant_type", c.FormValue("grant_type")).
		Int("expires_in", tokenResponse.ExpiresIn).
		Str("scope", tokenResponse.Scope).
		Msg("token issued")

	return c.JSON(http.StatusOK, tokenResponse)
}

// RevokeHandler handles token revocation per RFC 7009. Whether the token
// existed or belonged to the caller is never disclosed: the endpoint
// returns 200 regardless.
func (oa *OAuth2API) RevokeHandler(c echo.Context) error {
	token := c.FormValue("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, ssoerrors.NewInvalidRequest("token parameter is required"))
	}

	clientID, clientSecret, err := clientCredentials(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, err)
	}

	if err := oa.tokens.RevokeToken(c.Request().Context(), token, clientID, clientSecret, c.FormValue("token_type_hint")); err != nil {
		return tokenEndpointError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{})
}

// IntrospectHandler implements RFC 7662 token introspection.
func (oa *OAuth2API) IntrospectHandler(c echo.Context) error {
	token := c.FormValue("token")
	if token == "" {
		return c.JSON(http.StatusBadRequest, ssoerrors.NewInvalidRequest("token parameter is required"))
	}

	clientID, clientSecret, err := clientCredentials(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, err)
	}

	introspection, introspectErr := oa.tokens.IntrospectToken(c.Request().Context(), token, clientID, clientSecret, c.FormValue("token_type_hint"))
	if introspectErr != nil {
		return tokenEndpointError(c, introspectErr)
	}

	return c.JSON(http.StatusOK, introspection)
}

// ScopesHandler returns the scope catalog for client-side consent
// rendering.
func (oa *OAuth2API) ScopesHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"scopes":  scopes.All(),
		"grouped": scopes.Grouped(),
		"presets": scopes.Presets(),
	})
}

// MetadataHandler serves the RFC 8414 authorization server metadata
// document.
func (oa *OAuth2API) MetadataHandler(c echo.Context) error {
	supported := make([]string, 0)
	for scope := range scopes.All() {
		supported = append(supported, scope)
	}
	sort.Strings(supported)

	challengeMethods := []string{domain.CodeChallengeMethodS256}
	if oa.allowPlainPKCE {
		challengeMethods = append(challengeMethods, domain.CodeChallengeMethodPlain)
	}

	metadata := storeauth.AuthorizationServerMetadata{
		Issuer:                            oa.issuer,
		AuthorizationEndpoint:             oa.issuer + "/oauth/authorize",
		TokenEndpoint:                     oa.issuer + "/oauth/token",
		RevocationEndpoint:                oa.issuer + "/oauth/revoke",
		IntrospectionEndpoint:             oa.issuer + "/oauth/introspect",
		ScopesSupported:                   supported,
		ResponseTypesSupported:            []string{"code"},
		GrantTypesSupported:               []string{"authorization_code", "refresh_token"},
		TokenEndpointAuthMethodsSupported: []string{"client_secret_basic", "client_secret_post"},
		CodeChallengeMethodsSupported:     challengeMethods,
	}

	return c.JSON(http.StatusOK, metadata)
}

// authorizationError renders a validation failure from the authorize flow.
// RedirectError means the redirect URI was verified, so the error travels to
// the client's callback; anything else renders locally and never redirects.
func (oa *OAuth2API) authorizationError(c echo.Context, err error) error {
	if redirectErr, ok := err.(*storeauth.RedirectError); ok {
		return c.Redirect(http.StatusFound, redirectErr.Location())
	}
	if oauthErr, ok := err.(*ssoerrors.OAuth2Error); ok {
		return c.JSON(oauthErr.HTTPStatus(), oauthErr)
	}

	log.Error().Err(err).Msg("authorization request failed")
	return c.JSON(http.StatusInternalServerError, ssoerrors.NewServerError("Authorization request failed"))
}

// tokenEndpointError maps a token-endpoint failure to its RFC 6749 JSON
// body: 400 for grant failures, 401 for invalid_client, 500 otherwise.
func tokenEndpointError(c echo.Context, err error) error {
	if oauthErr, ok := err.(*ssoerrors.OAuth2Error); ok {
		return c.JSON(oauthErr.HTTPStatus(), oauthErr)
	}

	log.Error().Err(err).Msg("token endpoint failure")
	return c.JSON(http.StatusInternalServerError, ssoerrors.NewServerError("Unexpected server error"))
}

// clientCredentials extracts the client_id/client_secret pair, preferring
// HTTP Basic over body parameters. Basic credentials are form-urlencoded
// inside the header per RFC 6749 §2.3.1 and are decoded here so both paths
// yield identical values.
func clientCredentials(c echo.Context) (string, string, *ssoerrors.OAuth2Error) {
	if username, password, ok := c.Request().BasicAuth(); ok {
		clientID, errID := url.QueryUnescape(username)
		clientSecret, errSecret := url.QueryUnescape(password)
		if errID != nil || errSecret != nil {
			return "", "", ssoerrors.NewInvalidClient("Malformed Basic credentials")
		}
		return clientID, clientSecret, nil
	}

	clientID := strings.TrimSpace(c.FormValue("client_id"))
	clientSecret := c.FormValue("client_secret")
	if clientID == "" || clientSecret == "" {
		return "", "", ssoerrors.NewInvalidClient("Missing client credentials")
	}

	return clientID, clientSecret, nil
}
