package domain

import (
	"context"
	"time"
)

// Application represents a third-party application registered on the
// platform. Registration itself is handled by the admin tooling; the
// authorization server only reads these records.
//
//nolint:tagliatelle
type Application struct {
	ClientID         string    `bson:"client_id"                  json:"client_id"`
	ClientSecretHash string    `bson:"client_secret_hash"         json:"-"`
	Name             string    `bson:"name"                       json:"name"`
	Description      string    `bson:"description,omitempty"      json:"description,omitempty"`
	LogoURI          string    `bson:"logo_uri,omitempty"         json:"logo_uri,omitempty"`
	RedirectURIs     []string  `bson:"redirect_uris"              json:"redirect_uris"`
	AllowedScopes    []string  `bson:"allowed_scopes"             json:"allowed_scopes"`
	IsActive         bool      `bson:"is_active"                  json:"is_active"`
	CreatedAt        time.Time `bson:"created_at"                 json:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at"                 json:"updated_at"`
}

// HasRedirectURI reports whether uri exactly matches one of the registered
// redirect URIs. No pattern or prefix matching is performed.
func (a *Application) HasRedirectURI(uri string) bool {
	for _, registered := range a.RedirectURIs {
		if registered == uri {
			return true
		}
	}
	return false
}

// ScopeAllowed reports whether the application may request the given scope.
// An empty allow list places no per-application restriction; the scope
// catalog still applies.
func (a *Application) ScopeAllowed(scope string) bool {
	if len(a.AllowedScopes) == 0 {
		return true
	}
	for _, allowed := range a.AllowedScopes {
		if allowed == scope {
			return true
		}
	}
	return false
}

// ApplicationRepository defines lookup and storage of registered applications.
type ApplicationRepository interface {
	// CreateApplication stores a new application record.
	CreateApplication(ctx context.Context, app *Application) error

	// GetApplication retrieves an application by its client_id.
	GetApplication(ctx context.Context, clientID string) (*Application, error)

	// UpdateApplication replaces an existing application record.
	UpdateApplication(ctx context.Context, app *Application) error
}
