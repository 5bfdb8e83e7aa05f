package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/cinesync/internal/config"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaNotifierWritesEvent(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{writer: w, topic: "cinesync.changes"}

	ev := Event{
		Collection:  "movies",
		IDs:         []string{"a", "b"},
		Count:       2,
		Fingerprint: "00ff",
		Watermark:   time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		PublishedAt: time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC),
	}
	require.NoError(t, n.Notify(context.Background(), ev))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("movies"), w.msgs[0].Key)

	var got Event
	require.NoError(t, jsonFast.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, ev.IDs, got.IDs)
	assert.Equal(t, 2, got.Count)
	assert.True(t, ev.Watermark.Equal(got.Watermark))

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifierWrapsWriteError(t *testing.T) {
	cause := errors.New("broker down")
	n := &KafkaNotifier{writer: &fakeWriter{err: cause}, topic: "t"}
	err := n.Notify(context.Background(), Event{Collection: "genres"})
	assert.ErrorIs(t, err, cause)
}

func TestNew(t *testing.T) {
	n, err := New(config.NotifyConfig{})
	require.NoError(t, err)
	assert.IsType(t, Nop{}, n)

	_, err = New(config.NotifyConfig{Kafka: config.KafkaConfig{Enabled: true}})
	assert.Error(t, err)

	n, err = New(config.NotifyConfig{Kafka: config.KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "t"}})
	require.NoError(t, err)
	assert.IsType(t, &KafkaNotifier{}, n)
	require.NoError(t, n.Close())
}
