package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const mongoCollection = "kv_entries"

// MongoConfig holds the connection settings for MongoStore.
type MongoConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type mongoRecord struct {
	ID        string    `bson:"_id"`
	Namespace string    `bson:"namespace"`
	PersonID  string    `bson:"person_id"`
	Value     []byte    `bson:"value"`
	Version   int64     `bson:"version"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStore keeps entries as documents keyed by Key.String().
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoStore connects to MongoDB and verifies the connection.
func NewMongoStore(cfg MongoConfig, logger *zap.Logger) (*MongoStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetTimeout(cfg.Timeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(mongoCollection),
		logger:     logger,
	}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) Load(ctx context.Context, key Key) (Entry, Status) {
	var rec mongoRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": key.String()}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Entry{}, StatusAbsent
		}
		s.logger.Warn("kv document read failed", zap.Stringer("key", key), zap.Error(err))
		return Entry{}, StatusUnavailable
	}
	return Entry{Value: rec.Value, Version: rec.Version}, StatusOK
}

func (s *MongoStore) Save(ctx context.Context, key Key, value []byte, expectedVersion int64) error {
	now := time.Now().UTC()

	if expectedVersion == 0 {
		_, err := s.collection.InsertOne(ctx, mongoRecord{
			ID:        key.String(),
			Namespace: key.Namespace,
			PersonID:  key.PersonID,
			Value:     value,
			Version:   1,
			UpdatedAt: now,
		})
		if mongo.IsDuplicateKeyError(err) {
			return ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("failed to insert kv document %s: %w", key, err)
		}
		return nil
	}

	res, err := s.collection.UpdateOne(ctx,
		bson.M{"_id": key.String(), "version": expectedVersion},
		bson.M{"$set": bson.M{
			"value":      value,
			"version":    expectedVersion + 1,
			"updated_at": now,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update kv document %s: %w", key, err)
	}
	if res.MatchedCount == 0 {
		return ErrVersionConflict
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, key Key) error {
	if _, err := s.collection.DeleteOne(ctx, bson.M{"_id": key.String()}); err != nil {
		return fmt.Errorf("failed to delete kv document %s: %w", key, err)
	}
	return nil
}
