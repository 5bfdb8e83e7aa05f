package etl

import (
	"context"
	"time"

	"github.com/BartekS5/cinesync/pkg/models"
)

// Batch is an ordered group of rows fetched together.
type Batch []models.Row

// Extractor opens a watermark-bounded query and hands back a cursor that
// yields fixed-size batches.
type Extractor interface {
	Open(ctx context.Context, query string, watermark time.Time, batchSize int) (Cursor, error)
}

// Cursor is a pull-based, non-restartable batch stream. Next returns io.EOF
// once the result set is exhausted.
type Cursor interface {
	Next(ctx context.Context) (Batch, error)
	Close() error
}

// Loader writes documents into the destination collections.
type Loader interface {
	EnsureCollection(ctx context.Context, name string, schema models.CollectionSchema) error
	Publish(ctx context.Context, name string, docs []models.Document) (int, error)
}
