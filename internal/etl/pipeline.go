package etl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/BartekS5/cinesync/internal/checkpoint"
	"github.com/BartekS5/cinesync/internal/entity"
	"github.com/BartekS5/cinesync/internal/notify"
	"github.com/BartekS5/cinesync/pkg/logger"
	"github.com/BartekS5/cinesync/pkg/models"
	"github.com/BartekS5/cinesync/pkg/retry"
)

// Pipeline drives synchronization passes over the registered entity types.
// A pass reads the committed watermark, syncs every entity type in order and
// commits the pass start time only when all of them succeeded.
type Pipeline struct {
	Extractor     Extractor
	Loader        Loader
	Store         checkpoint.Store
	Notifier      notify.Notifier
	Retry         retry.Policy
	Entities      []entity.Registration
	Dialect       string
	CheckpointKey string
	BatchSize     int
	SleepInterval time.Duration
	OnInvalid     string
	DryRun        bool

	now func() time.Time
}

// EntityStats counts the outcome of one entity type within a pass.
type EntityStats struct {
	Name      string
	Batches   int
	Published int
	Skipped   int
}

// PassStats summarizes one pass.
type PassStats struct {
	Started   time.Time
	Watermark time.Time
	Entities  []EntityStats
	Committed bool
	Duration  time.Duration
}

func (s PassStats) Published() int {
	n := 0
	for _, e := range s.Entities {
		n += e.Published
	}
	return n
}

func (p *Pipeline) clock() time.Time {
	if p.now != nil {
		return p.now().UTC()
	}
	return time.Now().UTC()
}

// policy classifies errors with IsRetryable unless a classifier was set.
func (p *Pipeline) policy() retry.Policy {
	if p.Retry.Retryable == nil {
		return p.Retry.WithRetryable(IsRetryable)
	}
	return p.Retry
}

func (p *Pipeline) notifier() notify.Notifier {
	if p.Notifier == nil {
		return notify.Nop{}
	}
	return p.Notifier
}

// Prepare makes sure every destination collection exists. Collections are
// independent, so they are prepared concurrently.
func (p *Pipeline) Prepare(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, reg := range p.Entities {
		g.Go(func() error {
			return p.policy().Do(gctx, "ensure collection "+reg.Name, func(ctx context.Context) error {
				return p.Loader.EnsureCollection(ctx, reg.Name, reg.Schema)
			})
		})
	}
	return g.Wait()
}

// RunPass performs one full pass. On error the watermark is left untouched
// so the next pass covers the same window again.
func (p *Pipeline) RunPass(ctx context.Context) (PassStats, error) {
	stats := PassStats{Started: p.clock()}

	wm, found, err := checkpoint.GetWatermark(ctx, p.Store, p.CheckpointKey)
	if err != nil {
		return stats, err
	}
	stats.Watermark = wm
	if found {
		logger.Infof("Starting pass. Watermark: %s, Batch Size: %d, DryRun: %v", wm.Format(time.RFC3339Nano), p.BatchSize, p.DryRun)
	} else {
		logger.Infof("Starting pass. No watermark, replicating everything. Batch Size: %d, DryRun: %v", p.BatchSize, p.DryRun)
	}

	for _, reg := range p.Entities {
		es, err := p.syncEntity(ctx, reg, wm)
		stats.Entities = append(stats.Entities, es)
		if err != nil {
			stats.Duration = p.clock().Sub(stats.Started)
			return stats, fmt.Errorf("sync %s: %w", reg.Name, err)
		}
		logger.With().Str("entity", reg.Name).Logger().Info().
			Int("documents", es.Published).Int("batches", es.Batches).Int("skipped", es.Skipped).
			Msg("Entity synced")
	}

	if p.DryRun {
		logger.Info("[DRY RUN] Watermark not committed")
	} else {
		err := p.policy().Do(ctx, "commit watermark", func(ctx context.Context) error {
			return checkpoint.SetWatermark(ctx, p.Store, p.CheckpointKey, stats.Started)
		})
		if err != nil {
			stats.Duration = p.clock().Sub(stats.Started)
			return stats, fmt.Errorf("commit watermark: %w", err)
		}
		stats.Committed = true
	}

	stats.Duration = p.clock().Sub(stats.Started)
	rate := 0.0
	if stats.Duration.Seconds() > 0 {
		rate = float64(stats.Published()) / stats.Duration.Seconds()
	}
	logger.Infof("Pass done. Total: %d. Rate: %.2f docs/sec. New Watermark: %s",
		stats.Published(), rate, stats.Started.Format(time.RFC3339Nano))
	return stats, nil
}

// syncEntity runs extract, transform and publish for one entity type. A
// connectivity failure while reading restarts the entity from a fresh
// cursor; publishing is retried per batch.
func (p *Pipeline) syncEntity(ctx context.Context, reg entity.Registration, wm time.Time) (EntityStats, error) {
	query, err := reg.Query(p.Dialect)
	if err != nil {
		return EntityStats{Name: reg.Name}, err
	}

	log := logger.With().Str("entity", reg.Name).Logger()

	var stats EntityStats
	err = p.policy().Do(ctx, "sync "+reg.Name, func(ctx context.Context) error {
		stats = EntityStats{Name: reg.Name}

		cur, err := p.Extractor.Open(ctx, query, wm, p.BatchSize)
		if err != nil {
			return err
		}
		defer cur.Close()

		transformer := NewTransformer(reg)
		validator := NewValidator(p.OnInvalid)
		for {
			batch, err := cur.Next(ctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}

			docs := make([]models.Document, 0, len(batch))
			for doc, err := range transformer.TransformBatch(batch) {
				if err == nil {
					err = validator.ValidateDocument(reg.Name, doc)
				}
				if err != nil {
					skip, verr := validator.Admit(err)
					if verr != nil {
						return verr
					}
					if skip {
						stats.Skipped++
						continue
					}
				}
				docs = append(docs, doc)
			}

			n, err := p.publish(ctx, log, reg.Name, docs, wm)
			if err != nil {
				return err
			}
			stats.Batches++
			stats.Published += n
			log.Debug().Int("batch", stats.Batches).Int("rows", len(batch)).
				Int("published", n).Int("skipped", stats.Skipped).Msg("Batch published")
		}
	})
	return stats, err
}

func (p *Pipeline) publish(ctx context.Context, log zerolog.Logger, name string, docs []models.Document, wm time.Time) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var written int
	err := p.policy().Do(ctx, "publish "+name, func(ctx context.Context) error {
		n, err := p.Loader.Publish(ctx, name, docs)
		var partial *PartialPublishError
		if errors.As(err, &partial) {
			log.Warn().Int("written", partial.Written).Strs("failed", partial.Failed).Msg("Partial publish")
		}
		written = n
		return err
	})
	if err != nil {
		return 0, err
	}

	if !p.DryRun {
		p.announce(ctx, name, docs, wm)
	}
	return written, nil
}

// announce is best effort: a lost notification never fails the pass.
func (p *Pipeline) announce(ctx context.Context, name string, docs []models.Document, wm time.Time) {
	ids := make([]string, len(docs))
	for i, d := range docs {
		ids[i] = d.ID
	}
	fp, err := Fingerprint(docs)
	if err != nil {
		logger.Warnf("Fingerprint for %s batch: %v", name, err)
	}
	ev := notify.Event{
		Collection:  name,
		IDs:         ids,
		Count:       len(docs),
		Fingerprint: fp,
		Watermark:   wm,
		PublishedAt: p.clock(),
	}
	if err := p.notifier().Notify(ctx, ev); err != nil {
		logger.Warnf("Change notification for %s failed: %v", name, err)
	}
}

// Run prepares the collections and then repeats passes until ctx is
// cancelled. Failed passes are logged and retried after the sleep; only a
// corrupt checkpoint store stops the loop with an error.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.Prepare(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("prepare collections: %w", err)
	}

	for {
		if _, err := p.RunPass(ctx); err != nil {
			if errors.Is(err, checkpoint.ErrCorrupt) {
				return err
			}
			if ctx.Err() != nil {
				logger.Info("Shutdown requested, pass abandoned without commit")
				return nil
			}
			logger.Errorf("Pass failed, watermark not advanced: %v", err)
		}

		logger.Infof("Sleeping %s until next pass", p.SleepInterval)
		t := time.NewTimer(p.SleepInterval)
		select {
		case <-ctx.Done():
			t.Stop()
			logger.Info("Shutdown requested, stopping")
			return nil
		case <-t.C:
		}
	}
}
