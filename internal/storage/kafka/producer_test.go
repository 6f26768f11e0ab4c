package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/require"

	"contractbind/internal/model"
)

type fakeSender struct {
	sent   []*sarama.ProducerMessage
	err    error
	closed bool
}

func (f *fakeSender) SendMessages(msgs []*sarama.ProducerMessage) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msgs...)
	return nil
}

func (f *fakeSender) Close() error {
	f.closed = true
	return nil
}

func encoded(t *testing.T, enc sarama.Encoder) string {
	t.Helper()
	data, err := enc.Encode()
	require.NoError(t, err)
	return string(data)
}

func TestProducerKeysByTxAndLogIndex(t *testing.T) {
	fake := &fakeSender{}
	p := newProducer(fake, "", nil)

	err := p.PutEventBatch(context.Background(), []model.EventRecord{
		{TxHash: "0xabc", LogIndex: 3, EventName: "Transfer", Args: json.RawMessage(`{"value":"1"}`)},
		{TxHash: "0xabc", LogIndex: 4, EventName: "Approval", Args: json.RawMessage(`{}`)},
	})
	require.NoError(t, err)
	require.Len(t, fake.sent, 2)

	first := fake.sent[0]
	require.Equal(t, DefaultTopic, first.Topic)
	require.Equal(t, "0xabc:3", encoded(t, first.Key))
	require.Equal(t, "Transfer", string(first.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(encoded(t, first.Value)), &body))
	require.Equal(t, "Transfer", body["event_name"])
	require.Equal(t, "0xabc:4", encoded(t, fake.sent[1].Key))

	require.NoError(t, p.Close())
	require.True(t, fake.closed)
}

func TestProducerSkipsEmptyBatch(t *testing.T) {
	fake := &fakeSender{err: errors.New("unreachable")}
	p := newProducer(fake, "events", nil)
	require.NoError(t, p.PutEventBatch(context.Background(), nil))
}

func TestProducerWrapsSendError(t *testing.T) {
	sendErr := errors.New("broker down")
	p := newProducer(&fakeSender{err: sendErr}, "events", nil)

	err := p.PutEventBatch(context.Background(), []model.EventRecord{{TxHash: "0x1", Args: json.RawMessage(`{}`)}})
	require.ErrorIs(t, err, sendErr)
	require.Contains(t, err.Error(), "events")
}

func TestProducerHonoursCancelledContext(t *testing.T) {
	fake := &fakeSender{}
	p := newProducer(fake, "events", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.PutEventBatch(ctx, []model.EventRecord{{TxHash: "0x1"}})
	require.ErrorIs(t, err, context.Canceled)
	require.Empty(t, fake.sent)
}

func TestNewProducerRequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil, "events", nil)
	require.EqualError(t, err, "kafka brokers are required")
}
