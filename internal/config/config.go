// Package config loads process settings: a YAML file with defaults,
// overridden by environment variables (populated from .env in main).
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/BartekS5/cinesync/pkg/database"
)

// Validation failure policies.
const (
	OnInvalidFail = "fail"
	OnInvalidSkip = "skip"
)

// Checkpoint backends.
const (
	BackendFile   = "file"
	BackendBadger = "badger"
	BackendS3     = "s3"
	BackendMongo  = "mongo"
)

// Config holds all configuration for the application.
type Config struct {
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Source      SourceConfig      `yaml:"source"`
	Destination DestinationConfig `yaml:"destination"`
	Retry       RetryConfig       `yaml:"retry"`
	Checkpoint  CheckpointConfig  `yaml:"checkpoint"`
	Notify      NotifyConfig      `yaml:"notify"`
	Log         LogConfig         `yaml:"log"`
}

type PipelineConfig struct {
	Name          string        `yaml:"name"`
	BatchSize     int           `yaml:"batch_size"`
	SleepInterval time.Duration `yaml:"sleep_interval"`
	// OnInvalid is "fail" (abort the pass) or "skip" (drop the row).
	OnInvalid string `yaml:"on_invalid"`
	// Entities restricts the pass to a subset of the registered entity
	// types. Registration order is kept regardless of the order given here.
	Entities []string `yaml:"entities"`
	DryRun   bool     `yaml:"dry_run"`
}

type SourceConfig struct {
	Driver string `yaml:"driver"`
	// DSN usually comes from SQL_CONNECTION_STRING.
	DSN string `yaml:"dsn"`
}

type DestinationConfig struct {
	URI          string        `yaml:"uri"`
	Database     string        `yaml:"database"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type RetryConfig struct {
	StartDelay time.Duration `yaml:"start_delay"`
	Factor     float64       `yaml:"factor"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

type CheckpointConfig struct {
	Backend string `yaml:"backend"`
	Key     string `yaml:"key"`

	File struct {
		Path string `yaml:"path"`
	} `yaml:"file"`

	Badger struct {
		Path string `yaml:"path"`
	} `yaml:"badger"`

	S3 S3Config `yaml:"s3"`

	Mongo struct {
		Collection string `yaml:"collection"`
	} `yaml:"mongo"`
}

type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Endpoint  string `yaml:"endpoint"`
	Prefix    string `yaml:"prefix"`
}

type NotifyConfig struct {
	Kafka KafkaConfig `yaml:"kafka"`
}

type KafkaConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Default returns the settings used when neither the file nor the
// environment says otherwise.
func Default() Config {
	var cfg Config
	cfg.Pipeline = PipelineConfig{
		Name:          "movies",
		BatchSize:     500,
		SleepInterval: time.Minute,
		OnInvalid:     OnInvalidFail,
	}
	cfg.Source.Driver = database.DriverPostgres
	cfg.Destination = DestinationConfig{
		Database:     "movies",
		WriteTimeout: 30 * time.Second,
	}
	cfg.Retry = RetryConfig{
		StartDelay: 100 * time.Millisecond,
		Factor:     2,
		MaxDelay:   10 * time.Second,
	}
	cfg.Checkpoint.Backend = BackendFile
	cfg.Checkpoint.Key = "last_upload"
	cfg.Checkpoint.File.Path = "state.json"
	cfg.Checkpoint.Badger.Path = "state"
	cfg.Checkpoint.Mongo.Collection = "sync_state"
	cfg.Log.Level = "info"
	return cfg
}

// CheckpointKey namespaces the watermark key with the pipeline name.
func (c *Config) CheckpointKey() string {
	return c.Pipeline.Name + ":" + c.Checkpoint.Key
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error

	if c.Pipeline.Name == "" {
		errs = append(errs, errors.New("pipeline.name must not be empty"))
	}
	if c.Pipeline.BatchSize < 1 {
		errs = append(errs, fmt.Errorf("pipeline.batch_size must be positive, got %d", c.Pipeline.BatchSize))
	}
	if c.Pipeline.SleepInterval < 0 {
		errs = append(errs, fmt.Errorf("pipeline.sleep_interval must not be negative, got %s", c.Pipeline.SleepInterval))
	}
	switch c.Pipeline.OnInvalid {
	case OnInvalidFail, OnInvalidSkip:
	default:
		errs = append(errs, fmt.Errorf("pipeline.on_invalid must be %q or %q, got %q", OnInvalidFail, OnInvalidSkip, c.Pipeline.OnInvalid))
	}

	switch c.Source.Driver {
	case database.DriverPostgres, database.DriverSQLServer:
	default:
		errs = append(errs, fmt.Errorf("source.driver %q is not supported", c.Source.Driver))
	}
	if c.Source.DSN == "" {
		errs = append(errs, errors.New("SQL_CONNECTION_STRING environment variable not set"))
	}
	if c.Destination.URI == "" {
		errs = append(errs, errors.New("MONGO_CONNECTION_STRING environment variable not set"))
	}
	if c.Destination.Database == "" {
		errs = append(errs, errors.New("destination.database must not be empty"))
	}

	if c.Retry.StartDelay <= 0 || c.Retry.MaxDelay < c.Retry.StartDelay || c.Retry.Factor < 1 {
		errs = append(errs, fmt.Errorf("retry settings invalid: start_delay=%s factor=%v max_delay=%s",
			c.Retry.StartDelay, c.Retry.Factor, c.Retry.MaxDelay))
	}

	errs = append(errs, c.checkpointErrors()...)

	if c.Notify.Kafka.Enabled && (len(c.Notify.Kafka.Brokers) == 0 || c.Notify.Kafka.Topic == "") {
		errs = append(errs, errors.New("notify.kafka requires brokers and topic when enabled"))
	}

	return errors.Join(errs...)
}

// ValidateCheckpoint checks only what opening the checkpoint store needs,
// so the checkpoint commands work without source credentials.
func (c *Config) ValidateCheckpoint() error {
	errs := c.checkpointErrors()
	if c.Pipeline.Name == "" {
		errs = append(errs, errors.New("pipeline.name must not be empty"))
	}
	if c.Checkpoint.Backend == BackendMongo {
		if c.Destination.URI == "" {
			errs = append(errs, errors.New("MONGO_CONNECTION_STRING environment variable not set"))
		}
		if c.Destination.Database == "" {
			errs = append(errs, errors.New("destination.database must not be empty"))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) checkpointErrors() []error {
	var errs []error
	if c.Checkpoint.Key == "" {
		errs = append(errs, errors.New("checkpoint.key must not be empty"))
	}
	switch c.Checkpoint.Backend {
	case BackendFile:
		if c.Checkpoint.File.Path == "" {
			errs = append(errs, errors.New("checkpoint.file.path must not be empty"))
		}
	case BackendBadger:
		if c.Checkpoint.Badger.Path == "" {
			errs = append(errs, errors.New("checkpoint.badger.path must not be empty"))
		}
	case BackendS3:
		if c.Checkpoint.S3.Bucket == "" {
			errs = append(errs, errors.New("checkpoint.s3.bucket must not be empty"))
		}
	case BackendMongo:
		if c.Checkpoint.Mongo.Collection == "" {
			errs = append(errs, errors.New("checkpoint.mongo.collection must not be empty"))
		}
	default:
		errs = append(errs, fmt.Errorf("checkpoint.backend %q is not supported", c.Checkpoint.Backend))
	}
	return errs
}
