package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionName = "idempotency_keys"

// Store persists keys. Acquire must be atomic: exactly one caller gets
// acquired=true for a fresh or stale key.
type Store interface {
	// Acquire locks key for the caller. When another request holds a fresh
	// lock, or the key already completed, it returns the stored key with
	// acquired=false.
	Acquire(ctx context.Context, key *Key, staleBefore time.Time) (stored *Key, acquired bool, err error)
	Complete(ctx context.Context, id primitive.ObjectID, code int, body []byte, headers map[string]string) error
	// Release drops the lock without storing a response so the client may
	// retry with the same key
	Release(ctx context.Context, id primitive.ObjectID) error
}

// MongoStore keeps keys in the service database. Expired keys are removed
// by a TTL index.
type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{collection: db.Collection(collectionName)}
}

// EnsureIndexes creates the unique (serviceId, key) index Acquire relies on
// and the TTL index
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "serviceId", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_service_key"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetName("idx_ttl"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create idempotency indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) Acquire(ctx context.Context, key *Key, staleBefore time.Time) (*Key, bool, error) {
	now := time.Now().UTC()

	// Matches a missing key (upsert) or one that is neither completed nor
	// freshly locked. Anything else collides on the unique index.
	filter := bson.M{
		"serviceId":   key.ServiceID,
		"key":         key.Key,
		"completedAt": bson.M{"$exists": false},
		"$or": bson.A{
			bson.M{"lockedAt": bson.M{"$exists": false}},
			bson.M{"lockedAt": bson.M{"$lt": staleBefore}},
		},
	}
	update := bson.M{
		"$set": bson.M{
			"lockedAt":      now,
			"requestMethod": key.RequestMethod,
			"requestPath":   key.RequestPath,
			"fingerprint":   key.Fingerprint,
		},
		"$setOnInsert": bson.M{
			"createdAt": key.CreatedAt,
			"expiresAt": key.ExpiresAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var acquired Key
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&acquired)
	if err == nil {
		return &acquired, true, nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return nil, false, fmt.Errorf("failed to acquire idempotency key: %w", err)
	}

	var existing Key
	err = s.collection.FindOne(ctx, bson.M{"serviceId": key.ServiceID, "key": key.Key}).Decode(&existing)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// expired between the two calls
			return nil, false, fmt.Errorf("idempotency key %s vanished during acquire", key.Key)
		}
		return nil, false, fmt.Errorf("failed to load idempotency key: %w", err)
	}
	return &existing, false, nil
}

func (s *MongoStore) Complete(ctx context.Context, id primitive.ObjectID, code int, body []byte, headers map[string]string) error {
	_, err := s.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"responseCode":    code,
			"responseBody":    body,
			"responseHeaders": headers,
			"completedAt":     time.Now().UTC(),
		},
		"$unset": bson.M{"lockedAt": ""},
	})
	if err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

func (s *MongoStore) Release(ctx context.Context, id primitive.ObjectID) error {
	if _, err := s.collection.UpdateByID(ctx, id, bson.M{"$unset": bson.M{"lockedAt": ""}}); err != nil {
		return fmt.Errorf("failed to release idempotency key: %w", err)
	}
	return nil
}

var _ Store = (*MongoStore)(nil)
