// Package notify announces published batches to downstream consumers such
// as the read-side cache, so they can drop entries for changed ids.
package notify

import (
	"context"
	"time"
)

// Event describes one published batch.
type Event struct {
	Collection  string    `json:"collection"`
	IDs         []string  `json:"ids"`
	Count       int       `json:"count"`
	Fingerprint string    `json:"fingerprint"`
	Watermark   time.Time `json:"watermark"`
	PublishedAt time.Time `json:"published_at"`
}

type Notifier interface {
	Notify(ctx context.Context, ev Event) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) error { return nil }
func (Nop) Close() error                        { return nil }
