package mongodb

import (
	"context"
	"fmt"

	"github.com/shopforge/storeauth/domain"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// Repository bundles the MongoDB-backed repositories into a single
// domain.OAuthRepository.
type Repository struct {
	*ApplicationRepository
	*AuthCodeRepository
	*TokenRepository
}

var _ domain.OAuthRepository = (*Repository)(nil)

// NewRepository builds all repositories on the given database, ensuring
// their indexes.
func NewRepository(ctx context.Context, db *mongo.Database) (*Repository, error) {
	apps, err := NewApplicationRepository(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("application repository: %w", err)
	}
	codes, err := NewAuthCodeRepository(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("auth code repository: %w", err)
	}
	tokens, err := NewTokenRepository(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("token repository: %w", err)
	}

	return &Repository{
		ApplicationRepository: apps,
		AuthCodeRepository:    codes,
		TokenRepository:       tokens,
	}, nil
}
