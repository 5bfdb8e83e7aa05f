package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnv overrides file settings with environment variables.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("SQL_CONNECTION_STRING"); v != "" {
		cfg.Source.DSN = v
	}
	if v := os.Getenv("SQL_DRIVER"); v != "" {
		cfg.Source.Driver = v
	}
	if v := os.Getenv("MONGO_CONNECTION_STRING"); v != "" {
		cfg.Destination.URI = v
	}
	if v := os.Getenv("MONGO_DATABASE"); v != "" {
		cfg.Destination.Database = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CHECKPOINT_BACKEND"); v != "" {
		cfg.Checkpoint.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Notify.Kafka.Brokers = strings.Split(v, ",")
	}

	if v := os.Getenv("BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BATCH_SIZE: %w", err)
		}
		cfg.Pipeline.BatchSize = n
	}
	if v := os.Getenv("ETL_SLEEP_TIME"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("ETL_SLEEP_TIME: %w", err)
		}
		cfg.Pipeline.SleepInterval = d
	}
	return nil
}

// parseSeconds accepts a bare number of seconds or a Go duration string.
func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
