package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/segmentio/kafka-go"

	"github.com/BartekS5/cinesync/internal/config"
)

const batchTimeout = 100 * time.Millisecond

var jsonFast = jsoniter.ConfigFastest

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes one JSON message per event, keyed by collection so a
// collection's events stay ordered within a partition.
type KafkaNotifier struct {
	writer messageWriter
	topic  string
}

func NewKafkaNotifier(cfg config.KafkaConfig) (*KafkaNotifier, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka notifier requires at least one broker")
	}
	if cfg.Topic == "" {
		return nil, errors.New("kafka notifier requires a topic")
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           batchTimeout,
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return &KafkaNotifier{writer: w, topic: cfg.Topic}, nil
}

func (k *KafkaNotifier) Notify(ctx context.Context, ev Event) error {
	payload, err := jsonFast.Marshal(ev)
	if err != nil {
		return fmt.Errorf("json marshal failed: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.Collection),
		Value: payload,
		Time:  ev.PublishedAt,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", k.topic, err)
	}
	return nil
}

func (k *KafkaNotifier) Close() error {
	return k.writer.Close()
}

// New returns the configured notifier, Nop when notifications are off.
func New(cfg config.NotifyConfig) (Notifier, error) {
	if !cfg.Kafka.Enabled {
		return Nop{}, nil
	}
	n, err := NewKafkaNotifier(cfg.Kafka)
	if err != nil {
		return nil, err
	}
	return n, nil
}
