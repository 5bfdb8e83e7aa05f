// Package checkpoint persists synchronization watermarks outside the
// process. Every backend satisfies the same two-method contract: Get returns
// the caller's default for a missing key, Set replaces a value atomically.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BartekS5/cinesync/pkg/utils"
)

// ErrCorrupt marks a store whose content cannot be read back. Callers must
// stop rather than guess a watermark.
var ErrCorrupt = errors.New("checkpoint store corrupt")

type Store interface {
	Get(ctx context.Context, key, def string) (string, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// record is the persisted form of one value in the structured backends.
type record struct {
	Value     string    `json:"value" msgpack:"value" bson:"value"`
	UpdatedAt time.Time `json:"updated_at" msgpack:"updated_at" bson:"updated_at"`
}

func corrupt(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrCorrupt, fmt.Sprintf(format, args...))
}

// GetWatermark reads a timestamp watermark. A missing key yields the zero
// time and found=false; an unparsable value is reported as ErrCorrupt.
func GetWatermark(ctx context.Context, s Store, key string) (ts time.Time, found bool, err error) {
	raw, err := s.Get(ctx, key, "")
	if err != nil {
		return time.Time{}, false, err
	}
	if raw == "" {
		return time.Time{}, false, nil
	}
	ts, err = utils.ConvertDateTime(raw)
	if err != nil {
		return time.Time{}, false, corrupt("watermark %q: %v", key, err)
	}
	return ts, true, nil
}

// SetWatermark stores ts in the canonical watermark format.
func SetWatermark(ctx context.Context, s Store, key string, ts time.Time) error {
	return s.Set(ctx, key, utils.FormatDateTime(ts))
}
