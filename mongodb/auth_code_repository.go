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

// AuthCodeRepository implements domain.AuthorizationCodeRepository on
// MongoDB.
type AuthCodeRepository struct {
	coll *mongo.Collection
}

// NewAuthCodeRepository creates the repository and ensures its indexes.
func NewAuthCodeRepository(ctx context.Context, db *mongo.Database) (*AuthCodeRepository, error) {
	coll := db.Collection(CodesCollection)

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "code_hash", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// TTL index: Mongo reaps expired codes shortly after expiry; the
			// consume filter is still authoritative for correctness.
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create auth code indexes: %w", err)
	}

	return &AuthCodeRepository{coll: coll}, nil
}

func (r *AuthCodeRepository) SaveAuthCode(ctx context.Context, authCode *domain.AuthorizationCode) error {
	if authCode.CodeHash == "" {
		return errors.New("auth code digest cannot be empty")
	}

	if _, err := r.coll.InsertOne(ctx, authCode); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("authorization code already exists: %w", err)
		}
		log.Error().Err(err).Str("code_digest", authCode.CodeHash[:8]).Msg("error saving authorization code")
		return fmt.Errorf("failed to save authorization code: %w", err)
	}

	log.Debug().
		Str("code_digest", authCode.CodeHash[:8]).
		Str("client_id", authCode.ClientID).
		Str("store_id", authCode.StoreID).
		Msg("authorization code saved")

	return nil
}

// ConsumeAuthCode flips consumed=false to true in a single conditional
// update. The filter requires the code to be unconsumed and unexpired, so
// when N exchange attempts race on one code, the document matches exactly
// once and the other N-1 callers get ErrAuthCodeNotFound.
func (r *AuthCodeRepository) ConsumeAuthCode(ctx context.Context, codeHash string) (*domain.AuthorizationCode, error) {
	filter := bson.M{
		"code_hash":  codeHash,
		"consumed":   false,
		"expires_at": bson.M{"$gt": time.Now().UTC()},
	}
	update := bson.M{"$set": bson.M{"consumed": true}}

	var authCode domain.AuthorizationCode
	err := r.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&authCode)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAuthCodeNotFound
		}
		log.Error().Err(err).Msg("error consuming authorization code")
		return nil, fmt.Errorf("failed to consume authorization code: %w", err)
	}

	log.Debug().Str("code_digest", codeHash[:8]).Msg("authorization code consumed")

	return &authCode, nil
}

func (r *AuthCodeRepository) DeleteExpiredAuthCodes(ctx context.Context) error {
	_, err := r.coll.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	return err
}
