package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"LeoneAI/pkg/config"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func TestProducerEncodesValues(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, "snappy")

	require.NoError(t, p.PublishBatch(context.Background(), "ticks", []Message{
		{Key: []byte("BTC"), Value: map[string]interface{}{"price": "1"}},
		{Key: []byte("ETH"), Value: "raw"},
		{Key: []byte("SOL"), Value: []byte("bytes")},
	}))

	require.Len(t, w.msgs, 3)
	assert.Equal(t, "ticks", w.msgs[0].Topic)
	assert.JSONEq(t, `{"price":"1"}`, string(w.msgs[0].Value))
	assert.Equal(t, "raw", string(w.msgs[1].Value))
	assert.Equal(t, "bytes", string(w.msgs[2].Value))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestProducerWrapsWriteError(t *testing.T) {
	w := &recordingWriter{err: errors.New("broker down")}
	p := newProducer(w, "snappy")

	err := p.Publish(context.Background(), "ticks", []byte("BTC"), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestProducerSkipsEmptyBatch(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, "snappy")
	require.NoError(t, p.PublishBatch(context.Background(), "ticks", nil))
	assert.Empty(t, w.msgs)
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	assert.Equal(t, kafka.Gzip, parseCompression("gzip"))
	assert.Equal(t, kafka.Snappy, parseCompression("unknown"))
	assert.Equal(t, kafka.Compression(0), parseCompression("none"))
}

func TestSinkOptionsFollowConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Kafka.Brokers = []string{"k1:9092", "k2:9092"}
	cfg.Kafka.Compression = "zstd"
	cfg.Kafka.RequiredAcks = -1
	cfg.Kafka.Async = true
	cfg.Sink.BatchSize = 250

	pc := defaultProducerConfig()
	for _, opt := range SinkOptions(cfg.Sink, cfg.Kafka) {
		opt(pc)
	}
	require.NoError(t, pc.validate())
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, pc.Brokers)
	assert.Equal(t, "zstd", pc.Compression)
	assert.Equal(t, -1, pc.RequiredAcks)
	assert.Equal(t, 250, pc.BatchSize)
	assert.Equal(t, 50*time.Millisecond, pc.Linger)
	assert.Equal(t, 5, pc.MaxAttempts)
	assert.True(t, pc.Async)
}

func TestNewProducerRejectsBadAcks(t *testing.T) {
	_, err := NewProducer(WithBrokers([]string{"k1:9092"}), WithRequiredAcks(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required acks")
}
