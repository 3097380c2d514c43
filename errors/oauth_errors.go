package errors

import (
	"fmt"
	"net/http"
)

// OAuth2Error represents a standardized OAuth 2.0 error as defined by
// RFC 6749 §5.2. It is the only error shape surfaced to clients.
type OAuth2Error struct {
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
	URI         string `json:"error_uri,omitempty"`
	State       string `json:"state,omitempty"`
}

func (e *OAuth2Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// Standard OAuth2 error codes
const (
	InvalidRequest          = "invalid_request"
	UnauthorizedClient      = "unauthorized_client"
	AccessDenied            = "access_denied"
	UnsupportedResponseType = "unsupported_response_type"
	UnsupportedGrantType    = "unsupported_grant_type"
	InvalidScope            = "invalid_scope"
	InvalidClient           = "invalid_client"
	InvalidGrant            = "invalid_grant"
	ServerError             = "server_error"
	Unauthorized            = "unauthorized"
	InsufficientScope       = "insufficient_scope"
)

// HTTPStatus maps an OAuth2 error code to the status the token endpoint
// responds with. Everything is 400 except invalid_client (401) and
// server_error (500), per RFC 6749 §5.2.
func (e *OAuth2Error) HTTPStatus() int {
	switch e.Code {
	case InvalidClient, Unauthorized:
		return http.StatusUnauthorized
	case InsufficientScope:
		return http.StatusForbidden
	case ServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// WithState returns a copy of the error carrying the client's opaque state
// value, for inclusion in error redirects.
func (e *OAuth2Error) WithState(state string) *OAuth2Error {
	clone := *e
	clone.State = state
	return &clone
}

// Common error constructors
func NewInvalidRequest(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidRequest, Description: description}
}

func NewInvalidClient(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidClient, Description: description}
}

func NewInvalidGrant(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidGrant, Description: description}
}

func NewInvalidScope(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidScope, Description: description}
}

func NewServerError(description string) *OAuth2Error {
	return &OAuth2Error{Code: ServerError, Description: description}
}

func NewAccessDenied() *OAuth2Error {
	return &OAuth2Error{Code: AccessDenied, Description: "The resource owner denied the request"}
}

func NewUnsupportedResponseType() *OAuth2Error {
	return &OAuth2Error{Code: UnsupportedResponseType, Description: "Only the 'code' response type is supported"}
}

func NewUnsupportedGrantType() *OAuth2Error {
	return &OAuth2Error{Code: UnsupportedGrantType, Description: "The authorization grant type is not supported"}
}

func NewUnauthorized(description string) *OAuth2Error {
	return &OAuth2Error{Code: Unauthorized, Description: description}
}

func NewInsufficientScope(description string) *OAuth2Error {
	return &OAuth2Error{Code: InsufficientScope, Description: description}
}

// PKCE specific errors
func NewPKCERequired() *OAuth2Error {
	return &OAuth2Error{Code: InvalidGrant, Description: "code_verifier is required for this authorization code"}
}

func NewInvalidPKCE(description string) *OAuth2Error {
	return &OAuth2Error{Code: InvalidGrant, Description: fmt.Sprintf("PKCE validation failed: %s", description)}
}
