// Package retry wraps fallible operations in exponential backoff.
//
// A Policy never gives up on its own: an operation is retried until it
// succeeds, returns an error the classifier rejects, or the context ends.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/BartekS5/cinesync/pkg/logger"
)

const (
	DefaultStartDelay = 100 * time.Millisecond
	DefaultFactor     = 2.0
	DefaultMaxDelay   = 10 * time.Second
)

// Policy is an exponential backoff schedule: StartDelay * Factor^attempt,
// capped at MaxDelay.
type Policy struct {
	StartDelay time.Duration
	Factor     float64
	MaxDelay   time.Duration

	// Retryable decides whether an error is transient. Nil retries everything.
	Retryable func(error) bool

	// sleep is swapped in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func DefaultPolicy() Policy {
	return Policy{
		StartDelay: DefaultStartDelay,
		Factor:     DefaultFactor,
		MaxDelay:   DefaultMaxDelay,
	}
}

// Delay returns the wait before retry number attempt (0-based).
func (p Policy) Delay(attempt int) time.Duration {
	d := float64(p.StartDelay)
	for i := 0; i < attempt; i++ {
		d *= p.Factor
		if d >= float64(p.MaxDelay) {
			return p.MaxDelay
		}
	}
	if d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// Do runs op until it succeeds. The attempt counter starts fresh on every call.
func (p Policy) Do(ctx context.Context, name string, op func(ctx context.Context) error) error {
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepContext
	}

	for attempt := 0; ; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 0 {
				logger.Infof("%s succeeded after %d retries", name, attempt)
			}
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return fmt.Errorf("%s: %w (last error: %v)", name, cerr, err)
		}
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}

		delay := p.Delay(attempt)
		logger.Warnf("%s failed (attempt %d): %v; retrying in %s", name, attempt+1, err, delay)
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
}

// WithRetryable returns a copy of p using the given classifier.
func (p Policy) WithRetryable(fn func(error) bool) Policy {
	p.Retryable = fn
	return p
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
