package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/cinesync/pkg/models"
)

// fakeRows replays a fixed result set through the rowSource interface.
type fakeRows struct {
	cols    []string
	data    [][]interface{}
	pos     int
	failAt  int
	err     error
	closed  bool
	scanned int
}

func newFakeRows(n int) *fakeRows {
	r := &fakeRows{cols: []string{"id", "name"}, failAt: -1}
	for i := 0; i < n; i++ {
		r.data = append(r.data, []interface{}{[]byte(fmt.Sprintf("id-%03d", i)), fmt.Sprintf("name %d", i)})
	}
	return r
}

func (r *fakeRows) Columns() ([]string, error) { return r.cols, nil }

func (r *fakeRows) Next() bool {
	if r.pos == r.failAt {
		return false
	}
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	r.scanned++
	for i, v := range r.data[r.pos-1] {
		*(dest[i].(*interface{})) = v
	}
	return nil
}

func (r *fakeRows) Err() error {
	if r.pos == r.failAt {
		return r.err
	}
	return nil
}

func (r *fakeRows) Close() error {
	r.closed = true
	return nil
}

func drain(t *testing.T, cur *BatchCursor) []Batch {
	t.Helper()
	var out []Batch
	for {
		b, err := cur.Next(context.Background())
		if errors.Is(err, io.EOF) {
			return out
		}
		require.NoError(t, err)
		out = append(out, b)
	}
}

func TestBatchCursorBoundaries(t *testing.T) {
	tests := []struct {
		n, size     int
		wantBatches int
		wantLast    int
	}{
		{n: 0, size: 3, wantBatches: 0},
		{n: 1, size: 3, wantBatches: 1, wantLast: 1},
		{n: 3, size: 3, wantBatches: 1, wantLast: 3},
		{n: 6, size: 3, wantBatches: 2, wantLast: 3},
		{n: 7, size: 3, wantBatches: 3, wantLast: 1},
		{n: 10, size: 1, wantBatches: 10, wantLast: 1},
		{n: 5, size: 100, wantBatches: 1, wantLast: 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d,b=%d", tt.n, tt.size), func(t *testing.T) {
			rows := newFakeRows(tt.n)
			cur, err := NewBatchCursor(rows, tt.size)
			require.NoError(t, err)

			batches := drain(t, cur)
			require.Len(t, batches, tt.wantBatches)
			if tt.wantBatches == 0 {
				return
			}
			for _, b := range batches[:len(batches)-1] {
				assert.Len(t, b, tt.size)
			}
			assert.Len(t, batches[len(batches)-1], tt.wantLast)

			var all []models.Row
			for _, b := range batches {
				all = append(all, b...)
			}
			require.Len(t, all, tt.n)
			for i, row := range all {
				assert.Equal(t, fmt.Sprintf("id-%03d", i), row["id"], "bytes become strings, order kept")
			}

			_, err = cur.Next(context.Background())
			assert.ErrorIs(t, err, io.EOF, "cursor is not restartable")
		})
	}
}

func TestBatchCursorIsLazy(t *testing.T) {
	rows := newFakeRows(10)
	cur, err := NewBatchCursor(rows, 4)
	require.NoError(t, err)

	_, err = cur.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, rows.scanned, "only one batch is read ahead of the consumer")
}

func TestBatchCursorSurfacesRowError(t *testing.T) {
	rows := newFakeRows(5)
	rows.failAt = 2
	rows.err = errors.New("connection reset")
	cur, err := NewBatchCursor(rows, 10)
	require.NoError(t, err)

	_, err = cur.Next(context.Background())
	assert.ErrorIs(t, err, rows.err)
}

func TestBatchCursorHonoursContext(t *testing.T) {
	cur, err := NewBatchCursor(newFakeRows(5), 2)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = cur.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchCursorRejectsBadSize(t *testing.T) {
	_, err := NewBatchCursor(newFakeRows(1), 0)
	assert.Error(t, err)
}

func TestBatchCursorClose(t *testing.T) {
	rows := newFakeRows(3)
	cur, err := NewBatchCursor(rows, 2)
	require.NoError(t, err)
	require.NoError(t, cur.Close())
	assert.True(t, rows.closed)
	_, err = cur.Next(context.Background())
	assert.ErrorIs(t, err, io.EOF)
}
