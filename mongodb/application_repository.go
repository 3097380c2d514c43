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

// ApplicationRepository implements domain.ApplicationRepository on MongoDB.
type ApplicationRepository struct {
	coll *mongo.Collection
}

// NewApplicationRepository creates the repository and ensures its indexes.
func NewApplicationRepository(ctx context.Context, db *mongo.Database) (*ApplicationRepository, error) {
	coll := db.Collection(ApplicationsCollection)

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "client_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create application indexes: %w", err)
	}

	return &ApplicationRepository{coll: coll}, nil
}

func (r *ApplicationRepository) CreateApplication(ctx context.Context, app *domain.Application) error {
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, app); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("application %s already exists: %w", app.ClientID, err)
		}
		log.Error().Err(err).Str("client_id", app.ClientID).Msg("error saving application")
		return fmt.Errorf("failed to save application: %w", err)
	}

	return nil
}

func (r *ApplicationRepository) GetApplication(ctx context.Context, clientID string) (*domain.Application, error) {
	var app domain.Application
	err := r.coll.FindOne(ctx, bson.M{"client_id": clientID}).Decode(&app)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrApplicationNotFound
		}
		log.Error().Err(err).Str("client_id", clientID).Msg("error retrieving application")
		return nil, fmt.Errorf("failed to retrieve application: %w", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) UpdateApplication(ctx context.Context, app *domain.Application) error {
	app.UpdatedAt = time.Now().UTC()

	result, err := r.coll.ReplaceOne(ctx, bson.M{"client_id": app.ClientID}, app)
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrApplicationNotFound
	}
	return nil
}
