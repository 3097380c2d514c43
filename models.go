package storeauth

// TokenResponse is the success body of the token endpoint, RFC 6749 §5.1.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token,omitempty"`
	Scope        string `json:"scope,omitempty"`
}

// TokenIntrospection is the response format defined in RFC 7662 §2.2.
// Sub carries the store (tenant) the token was authorized for.
type TokenIntrospection struct {
	Active    bool   `json:"active"`
	Scope     string `json:"scope,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	TokenType string `json:"token_type,omitempty"`
	Exp       int64  `json:"exp,omitempty"`
	Iat       int64  `json:"iat,omitempty"`
	Sub       string `json:"sub,omitempty"`
	Iss       string `json:"iss,omitempty"`
	Jti       string `json:"jti,omitempty"`
}

// ConsentScope pairs a scope identifier with its human-readable description
// for the consent screen.
type ConsentScope struct {
	Scope       string `json:"scope"`
	Description string `json:"description"`
}

// ConsentPage is everything the consent view needs to render the approval
// screen for a validated authorization request.
type ConsentPage struct {
	RequestID       string         `json:"request_id"`
	ApplicationName string         `json:"application_name"`
	LogoURI         string         `json:"logo_uri,omitempty"`
	Scopes          []ConsentScope `json:"scopes"`
	State           string         `json:"state,omitempty"`
}

// AuthorizationServerMetadata is the RFC 8414 discovery document served at
// /.well-known/oauth-authorization-server.
type AuthorizationServerMetadata struct {
	Issuer                            string   `json:"issuer"`
	AuthorizationEndpoint             string   `json:"authorization_endpoint"`
	TokenEndpoint                     string   `json:"token_endpoint"`
	RevocationEndpoint                string   `json:"revocation_endpoint"`
	IntrospectionEndpoint             string   `json:"introspection_endpoint"`
	ScopesSupported                   []string `json:"scopes_supported"`
	ResponseTypesSupported            []string `json:"response_types_supported"`
	GrantTypesSupported               []string `json:"grant_types_supported"`
	TokenEndpointAuthMethodsSupported []string `json:"token_endpoint_auth_methods_supported"`
	CodeChallengeMethodsSupported     []string `json:"code_challenge_methods_supported"`
}
