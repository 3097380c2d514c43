// Package middleware provides the bearer-token authentication middleware
// every tenant-scoped API route runs behind.
package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	storeauth "github.com/shopforge/storeauth"
	"github.com/shopforge/storeauth/domain"
	ssoerrors "github.com/shopforge/storeauth/errors"
)

// StoreIDKey is the echo context key the authenticated store ID is stored
// under, alongside the request-context binding.
const StoreIDKey = "auth-store-id"

// RequireToken authenticates the request via its Authorization: Bearer
// header and binds the token's store to the request context. If
// requiredScopes is non-empty, the token must hold at least one of them
// (logical OR).
func RequireToken(tokenService *storeauth.TokenService, requiredScopes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return unauthorized(c, "Missing Authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				return unauthorized(c, "Invalid Authorization header: expected Bearer token")
			}

			info, err := tokenService.ValidateAccessToken(c.Request().Context(), parts[1])
			if err != nil {
				log.Debug().Err(err).Msg("bearer token validation failed")
				return unauthorized(c, "Invalid, expired or revoked token")
			}

			if len(requiredScopes) > 0 && !holdsAnyScope(info.Scope, requiredScopes) {
				scopeList := strings.Join(requiredScopes, " ")
				c.Response().Header().Set("WWW-Authenticate",
					`Bearer error="insufficient_scope", scope="`+scopeList+`"`)
				return c.JSON(http.StatusForbidden, echo.Map{
					"error":             ssoerrors.InsufficientScope,
					"error_description": "The token does not grant any of the required scopes",
					"scope":             scopeList,
				})
			}

			// Bind the tenant to this request only. Handlers read it back
			// with domain.StoreIDFromContext.
			ctx := domain.WithStoreID(c.Request().Context(), info.StoreID)
			ctx = domain.WithTokenInfo(ctx, info)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set(StoreIDKey, info.StoreID)

			return next(c)
		}
	}
}

func unauthorized(c echo.Context, description string) error {
	c.Response().Header().Set("WWW-Authenticate", "Bearer")
	return c.JSON(http.StatusUnauthorized, ssoerrors.NewUnauthorized(description))
}

// holdsAnyScope reports whether the space-separated token scope contains at
// least one of the required scopes.
func holdsAnyScope(tokenScope string, required []string) bool {
	held := make(map[string]struct{})
	for _, scope := range strings.Fields(tokenScope) {
		held[scope] = struct{}{}
	}
	for _, scope := range required {
		if _, ok := held[scope]; ok {
			return true
		}
	}
	return false
}
