package domain

import "context"

type contextKey int

const (
	storeIDKey contextKey = iota
	tokenInfoKey
)

// WithStoreID returns a context carrying the authenticated store (tenant)
// identifier. The binding is request-scoped; it must never be kept in a
// process-global.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	return context.WithValue(ctx, storeIDKey, storeID)
}

// StoreIDFromContext retrieves the store identifier set by the
// authentication middleware.
func StoreIDFromContext(ctx context.Context) (string, bool) {
	storeID, ok := ctx.Value(storeIDKey).(string)
	return storeID, ok
}

// WithTokenInfo returns a context carrying the validated token.
func WithTokenInfo(ctx context.Context, info *TokenInfo) context.Context {
	return context.WithValue(ctx, tokenInfoKey, info)
}

// TokenInfoFromContext retrieves the validated token set by the
// authentication middleware.
func TokenInfoFromContext(ctx context.Context) (*TokenInfo, bool) {
	info, ok := ctx.Value(tokenInfoKey).(*TokenInfo)
	return info, ok
}
