package etl

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/BartekS5/cinesync/pkg/models"
)

// SQLExtractor streams query results from a relational source.
type SQLExtractor struct {
	DB *sql.DB
}

func NewSQLExtractor(db *sql.DB) *SQLExtractor {
	return &SQLExtractor{DB: db}
}

// Open runs query with the watermark as its only parameter. Rows are read
// from the driver cursor as batches are requested.
func (s *SQLExtractor) Open(ctx context.Context, query string, watermark time.Time, batchSize int) (Cursor, error) {
	rows, err := s.DB.QueryContext(ctx, query, watermark)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	cur, err := NewBatchCursor(rows, batchSize)
	if err != nil {
		rows.Close()
		return nil, err
	}
	return cur, nil
}

// rowSource is the part of *sql.Rows the cursor needs.
type rowSource interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// BatchCursor groups rows into batches of exactly size rows; only the last
// batch may be shorter.
type BatchCursor struct {
	rows rowSource
	cols []string
	size int
	done bool
}

func NewBatchCursor(rows rowSource, size int) (*BatchCursor, error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be positive, got %d", size)
	}
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}
	return &BatchCursor{rows: rows, cols: cols, size: size}, nil
}

func (c *BatchCursor) Next(ctx context.Context) (Batch, error) {
	if c.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batch := make(Batch, 0, c.size)
	for len(batch) < c.size && c.rows.Next() {
		row, err := c.scan()
		if err != nil {
			return nil, err
		}
		batch = append(batch, row)
	}

	if len(batch) < c.size {
		c.done = true
		if err := c.rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate rows: %w", err)
		}
		if len(batch) == 0 {
			return nil, io.EOF
		}
	}
	return batch, nil
}

func (c *BatchCursor) scan() (models.Row, error) {
	values := make([]interface{}, len(c.cols))
	pointers := make([]interface{}, len(c.cols))
	for i := range values {
		pointers[i] = &values[i]
	}
	if err := c.rows.Scan(pointers...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}

	row := make(models.Row, len(c.cols))
	for i, col := range c.cols {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
		} else {
			row[col] = values[i]
		}
	}
	return row, nil
}

func (c *BatchCursor) Close() error {
	c.done = true
	return c.rows.Close()
}
