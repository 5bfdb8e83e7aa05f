package checkpoint

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BartekS5/cinesync/internal/config"
)

// Open builds the configured backend. db is only used by the mongo backend
// and may be nil otherwise.
func Open(ctx context.Context, cfg config.CheckpointConfig, db *mongo.Database) (Store, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return storeOrErr(NewFileStore(cfg.File.Path))
	case config.BackendBadger:
		return storeOrErr(NewBadgerStore(cfg.Badger.Path))
	case config.BackendS3:
		return storeOrErr(NewS3Store(ctx, cfg.S3))
	case config.BackendMongo:
		if db == nil {
			return nil, errors.New("mongo checkpoint backend requires a destination database")
		}
		return NewMongoStore(db, cfg.Mongo.Collection), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.Backend)
	}
}

// storeOrErr keeps a failed constructor from yielding a non-nil Store
// holding a nil pointer.
func storeOrErr[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
