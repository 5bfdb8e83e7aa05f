package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one document per key in a collection next to the
// synchronized data. A single-document replace is atomic.
type MongoStore struct {
	coll *mongo.Collection
}

func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	return &MongoStore{coll: db.Collection(collection)}
}

func (s *MongoStore) Get(ctx context.Context, key, def string) (string, error) {
	var raw bson.M
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("read checkpoint %q: %w", key, err)
	}
	v, ok := raw["value"].(string)
	if !ok {
		return "", corrupt("mongo checkpoint %q has no string value", key)
	}
	return v, nil
}

func (s *MongoStore) Set(ctx context.Context, key, value string) error {
	doc := bson.M{"_id": key, "value": value, "updated_at": time.Now().UTC()}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("write checkpoint %q: %w", key, err)
	}
	return nil
}

// Close leaves the shared client to its owner.
func (s *MongoStore) Close() error { return nil }
