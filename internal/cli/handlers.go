package cli

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BartekS5/cinesync/internal/checkpoint"
	"github.com/BartekS5/cinesync/internal/config"
	"github.com/BartekS5/cinesync/internal/entity"
	"github.com/BartekS5/cinesync/internal/etl"
	"github.com/BartekS5/cinesync/internal/notify"
	"github.com/BartekS5/cinesync/pkg/database"
	"github.com/BartekS5/cinesync/pkg/logger"
	"github.com/BartekS5/cinesync/pkg/retry"
)

// loadConfig reads the settings, applies command line overrides and
// validates the result once.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Read(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.BatchSize != 0 {
		cfg.Pipeline.BatchSize = opts.BatchSize
	}
	if opts.DryRun {
		cfg.Pipeline.DryRun = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// loadCheckpointConfig is loadConfig for commands that only touch the
// checkpoint store.
func loadCheckpointConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Read(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateCheckpoint(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func initLogging(cfg *config.Config) error {
	return logger.InitLogger(logger.Options{Level: cfg.Log.Level, File: cfg.Log.File})
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func retryPolicy(cfg *config.Config) retry.Policy {
	return retry.Policy{
		StartDelay: cfg.Retry.StartDelay,
		Factor:     cfg.Retry.Factor,
		MaxDelay:   cfg.Retry.MaxDelay,
	}.WithRetryable(etl.IsRetryable)
}

// app owns the connections behind a pipeline.
type app struct {
	sqlDB    *sql.DB
	mongo    *mongo.Client
	store    checkpoint.Store
	notifier notify.Notifier
	pipeline *etl.Pipeline
}

func (a *app) Close() {
	if a.notifier != nil {
		if err := a.notifier.Close(); err != nil {
			logger.Warnf("Closing notifier: %v", err)
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Warnf("Closing checkpoint store: %v", err)
		}
	}
	if a.mongo != nil {
		if err := a.mongo.Disconnect(context.Background()); err != nil {
			logger.Warnf("Disconnecting MongoDB: %v", err)
		}
	}
	if a.sqlDB != nil {
		a.sqlDB.Close()
	}
}

func connectMongo(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	var client *mongo.Client
	err := retryPolicy(cfg).Do(ctx, "connect destination", func(ctx context.Context) error {
		var err error
		client, err = database.ConnectMongo(ctx, cfg.Destination.URI)
		return err
	})
	return client, err
}

// setup connects source and destination, opens the checkpoint store and
// assembles the pipeline. Connection attempts are retried until they
// succeed or ctx ends.
func setup(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()

	regs, err := entity.Select(cfg.Pipeline.Entities)
	if err != nil {
		return nil, err
	}
	if err := entity.Check(regs, cfg.Source.Driver); err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}

	policy := retryPolicy(cfg)
	err = policy.Do(ctx, "connect source", func(ctx context.Context) error {
		var err error
		a.sqlDB, err = database.ConnectSQL(ctx, cfg.Source.Driver, cfg.Source.DSN)
		return err
	})
	if err != nil {
		return nil, err
	}

	a.mongo, err = connectMongo(ctx, cfg)
	if err != nil {
		return nil, err
	}
	db := a.mongo.Database(cfg.Destination.Database)

	a.store, err = checkpoint.Open(ctx, cfg.Checkpoint, db)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}

	a.notifier, err = notify.New(cfg.Notify)
	if err != nil {
		return nil, err
	}

	var loader etl.Loader = etl.NewMongoLoader(db, cfg.Destination.WriteTimeout)
	if cfg.Pipeline.DryRun {
		loader = etl.DryRunLoader{}
	}

	a.pipeline = &etl.Pipeline{
		Extractor:     etl.NewSQLExtractor(a.sqlDB),
		Loader:        loader,
		Store:         a.store,
		Notifier:      a.notifier,
		Retry:         policy,
		Entities:      regs,
		Dialect:       cfg.Source.Driver,
		CheckpointKey: cfg.CheckpointKey(),
		BatchSize:     cfg.Pipeline.BatchSize,
		SleepInterval: cfg.Pipeline.SleepInterval,
		OnInvalid:     cfg.Pipeline.OnInvalid,
		DryRun:        cfg.Pipeline.DryRun,
	}
	ready = true
	return a, nil
}

// openStore opens only the checkpoint store, connecting to MongoDB when
// the store lives there.
func openStore(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}
	var db *mongo.Database
	if cfg.Checkpoint.Backend == config.BackendMongo {
		client, err := connectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.mongo = client
		db = client.Database(cfg.Destination.Database)
	}
	store, err := checkpoint.Open(ctx, cfg.Checkpoint, db)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open checkpoint store: %w", err)
	}
	a.store = store
	return a, nil
}
