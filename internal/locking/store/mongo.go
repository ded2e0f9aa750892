package store

import (
	"context"
	"fmt"
	"payrouter/pkg/model"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const LocksCollection = "resource_locks"

type MongoStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection(LocksCollection),
		now:        time.Now,
	}
}

// EnsureIndexes adds a TTL index so stale lock documents are eventually purged. Expiry
// itself is enforced by the queries, not by the TTL monitor.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("expires_at_ttl"),
	})
	if err != nil {
		return fmt.Errorf("create lock ttl index: %w", err)
	}
	return nil
}

// TryAcquire inserts the lock document. On a duplicate key it tries to take over the
// existing document only if it has expired; the filtered update is atomic per document.
func (s *MongoStore) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	now := s.now()
	rec := model.LockRecord{
		ID:        key,
		Token:     token,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}

	_, err := s.collection.InsertOne(ctx, rec)
	if err == nil {
		return true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return false, fmt.Errorf("insert lock: %w", err)
	}

	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": key, "expires_at": bson.M{"$lte": now}},
		bson.M{"$set": bson.M{"token": token, "expires_at": rec.ExpiresAt, "created_at": now}},
	)
	if err != nil {
		return false, fmt.Errorf("take over expired lock: %w", err)
	}
	return res.ModifiedCount == 1, nil
}

func (s *MongoStore) Release(ctx context.Context, key, token string) (bool, error) {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": key, "token": token})
	if err != nil {
		return false, fmt.Errorf("delete lock: %w", err)
	}
	return res.DeletedCount == 1, nil
}

func (s *MongoStore) IsHeld(ctx context.Context, key string) (bool, error) {
	n, err := s.collection.CountDocuments(ctx, bson.M{"_id": key, "expires_at": bson.M{"$gt": s.now()}})
	if err != nil {
		return false, fmt.Errorf("count lock: %w", err)
	}
	return n > 0, nil
}
