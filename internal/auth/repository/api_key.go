package repository

import (
	"context"
	"errors"
	"fmt"
	"payrouter/internal/auth"
	"payrouter/pkg/config"
	mongodb "payrouter/pkg/db/mongo"
	"payrouter/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "api_keys"
)

var KeyIndexes = []mongo.IndexModel{
	{
		Keys:    bson.D{{Key: "merchant_id", Value: 1}, {Key: "created_at", Value: -1}},
		Options: options.Index().SetName("merchant_keys"),
	},
}

type APIKeyRepository interface {
	auth.KeyStore
	Create(ctx context.Context, key *model.APIKey) error
	Revoke(ctx context.Context, keyID string, at time.Time) error
	ListByMerchant(ctx context.Context, merchantID string) ([]*model.APIKey, error)
}

type mongoAPIKeyRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoAPIKeyRepository(cfg *config.Config) APIKeyRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAPIKeyRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoAPIKeyRepository) FindKey(ctx context.Context, keyID string) (*model.APIKey, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var key model.APIKey
	err := r.collection.FindOne(ctx, bson.M{"_id": keyID}).Decode(&key)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, auth.ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to find api key: %w", err)
	}
	return &key, nil
}

func (r *mongoAPIKeyRepository) Create(ctx context.Context, key *model.APIKey) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}
	if _, err := r.collection.InsertOne(ctx, key); err != nil {
		return fmt.Errorf("failed to create api key: %w", err)
	}
	return nil
}

func (r *mongoAPIKeyRepository) Revoke(ctx context.Context, keyID string, at time.Time) error {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": keyID, "revoked_at": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"revoked_at": at.UTC()}},
	)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if res.MatchedCount == 0 {
		return auth.ErrKeyNotFound
	}
	return nil
}

func (r *mongoAPIKeyRepository) ListByMerchant(ctx context.Context, merchantID string) ([]*model.APIKey, error) {
	ctx, cancel := mongodb.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"merchant_id": merchantID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer cursor.Close(ctx)

	var keys []*model.APIKey
	if err := cursor.All(ctx, &keys); err != nil {
		return nil, fmt.Errorf("failed to decode api keys: %w", err)
	}
	return keys, nil
}
