package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopforge/storeauth/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// TokenRepository implements domain.TokenRepository on MongoDB.
type TokenRepository struct {
	coll *mongo.Collection
}

// NewTokenRepository creates the repository and ensures its indexes.
func NewTokenRepository(ctx context.Context, db *mongo.Database) (*TokenRepository, error) {
	coll := db.Collection(TokensCollection)

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token_hash", Value: 1}, {Key: "token_type", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "refresh_token_id", Value: 1}},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create token indexes: %w", err)
	}

	return &TokenRepository{coll: coll}, nil
}

func (r *TokenRepository) StoreToken(ctx context.Context, token *domain.Token) error {
	if _, err := r.coll.InsertOne(ctx, token); err != nil {
		log.Error().Err(err).Str("token_type", token.TokenType).Msg("error storing token")
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

func (r *TokenRepository) GetAccessToken(ctx context.Context, tokenHash string) (*domain.Token, error) {
	return r.getToken(ctx, tokenHash, domain.TokenTypeAccess)
}

func (r *TokenRepository) GetRefreshToken(ctx context.Context, tokenHash string) (*domain.Token, error) {
	return r.getToken(ctx, tokenHash, domain.TokenTypeRefresh)
}

func (r *TokenRepository) getToken(ctx context.Context, tokenHash, tokenType string) (*domain.Token, error) {
	var token domain.Token
	err := r.coll.FindOne(ctx, bson.M{
		"token_hash": tokenHash, "token_type": tokenType,
		"is_revoked": false, "expires_at": bson.M{"$gt": time.Now().UTC()},
	}).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to retrieve token: %w", err)
	}
	return &token, nil
}

func (r *TokenRepository) RevokeToken(ctx context.Context, tokenHash, tokenType string) error {
	filter := bson.M{"token_hash": tokenHash, "token_type": tokenType}
	update := bson.M{"$set": bson.M{"is_revoked": true}}

	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		log.Error().Err(err).Str("token_type", tokenType).Msg("error revoking token")
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	if result.MatchedCount == 0 {
		log.Debug().Str("token_type", tokenType).Msg("token not found to revoke")
	}
	return nil
}

func (r *TokenRepository) RevokeAccessTokensForRefresh(ctx context.Context, refreshTokenID string) error {
	filter := bson.M{"refresh_token_id": refreshTokenID, "token_type": domain.TokenTypeAccess}
	_, err := r.coll.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"is_revoked": true}})
	if err != nil {
		return fmt.Errorf("failed to revoke access tokens for refresh token: %w", err)
	}
	return nil
}

func (r *TokenRepository) DeleteExpiredTokens(ctx context.Context) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	return err
}
