package etl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/BartekS5/cinesync/pkg/logger"
	"github.com/BartekS5/cinesync/pkg/models"
)

const codeNamespaceExists = 48

// MongoLoader upserts documents into MongoDB collections.
type MongoLoader struct {
	DB           *mongo.Database
	WriteTimeout time.Duration
}

func NewMongoLoader(db *mongo.Database, writeTimeout time.Duration) *MongoLoader {
	return &MongoLoader{DB: db, WriteTimeout: writeTimeout}
}

// EnsureCollection creates the collection with its validator and indexes
// when it does not exist yet. A concurrent creator winning the race is not
// an error.
func (m *MongoLoader) EnsureCollection(ctx context.Context, name string, schema models.CollectionSchema) error {
	names, err := m.DB.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	if len(names) > 0 {
		return nil
	}

	opts := options.CreateCollection().SetValidator(bson.M{"$jsonSchema": schema.JSONSchema()})
	if err := m.DB.CreateCollection(ctx, name, opts); err != nil {
		var cmdErr mongo.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Code == codeNamespaceExists {
			return nil
		}
		return fmt.Errorf("create collection %s: %w", name, err)
	}

	if len(schema.Indexes) > 0 {
		if _, err := m.DB.Collection(name).Indexes().CreateMany(ctx, indexModels(schema.Indexes)); err != nil {
			return fmt.Errorf("create indexes on %s: %w", name, err)
		}
	}
	logger.Infof("Created collection %s with %d indexes", name, len(schema.Indexes))
	return nil
}

func indexModels(indexes []models.Index) []mongo.IndexModel {
	out := make([]mongo.IndexModel, 0, len(indexes))
	for _, idx := range indexes {
		keys := bson.D{}
		for _, f := range idx.Fields {
			if idx.Text {
				keys = append(keys, bson.E{Key: f, Value: "text"})
			} else {
				keys = append(keys, bson.E{Key: f, Value: 1})
			}
		}
		out = append(out, mongo.IndexModel{Keys: keys, Options: options.Index().SetName(idx.Name)})
	}
	return out
}

// Publish replaces every document by id, inserting the ones not present.
// Once issued the bulk write is not cancelled with ctx; it is bounded by
// WriteTimeout instead.
func (m *MongoLoader) Publish(ctx context.Context, name string, docs []models.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	writes := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		writes = append(writes, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetReplacement(doc.Source).
			SetUpsert(true))
	}

	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.WriteTimeout)
	defer cancel()

	res, err := m.DB.Collection(name).BulkWrite(wctx, writes, options.BulkWrite().SetOrdered(true))
	if err != nil {
		var bwe mongo.BulkWriteException
		if errors.As(err, &bwe) && len(bwe.WriteErrors) > 0 {
			return partialFailure(name, docs, bwe)
		}
		return 0, fmt.Errorf("bulk write %s: %w", name, err)
	}

	logger.Debugf("Mongo BulkWrite %s: Match %d, Mod %d, Upsert %d", name, res.MatchedCount, res.ModifiedCount, res.UpsertedCount)
	return int(res.MatchedCount + res.UpsertedCount), nil
}

// partialFailure maps an ordered bulk write exception to the written prefix
// and the ids that were not applied.
func partialFailure(name string, docs []models.Document, bwe mongo.BulkWriteException) (int, error) {
	first := len(docs)
	codes := make([]int, 0, len(bwe.WriteErrors))
	for _, we := range bwe.WriteErrors {
		if we.Index < first {
			first = we.Index
		}
		codes = append(codes, we.Code)
	}

	failed := make([]string, 0, len(docs)-first)
	for _, doc := range docs[first:] {
		failed = append(failed, doc.ID)
	}
	return first, &PartialPublishError{
		Collection: name,
		Written:    first,
		Failed:     failed,
		Codes:      codes,
		Cause:      bwe,
	}
}

// DryRunLoader reports what would be written without touching the
// destination.
type DryRunLoader struct{}

func (DryRunLoader) EnsureCollection(_ context.Context, name string, schema models.CollectionSchema) error {
	logger.Infof("[DRY RUN] Would ensure collection %s (%d indexes)", name, len(schema.Indexes))
	return nil
}

func (DryRunLoader) Publish(_ context.Context, name string, docs []models.Document) (int, error) {
	logger.Infof("[DRY RUN] Would upsert %d documents into %s", len(docs), name)
	return len(docs), nil
}
