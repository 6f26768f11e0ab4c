package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"contractbind/internal/model"
)

const DefaultTopic = "contract_events"

// sender is the part of sarama.SyncProducer the producer needs.
type sender interface {
	SendMessages(msgs []*sarama.ProducerMessage) error
	Close() error
}

// Producer publishes decoded events to a Kafka topic, keyed by
// transaction hash and log index so one log always lands on one partition.
type Producer struct {
	topic    string
	producer sender
	logger   *zap.Logger
}

// NewProducer connects a synchronous producer to brokers.
func NewProducer(brokers []string, topic string, logger *zap.Logger) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Timeout = 5 * time.Second
	config.Version = sarama.V2_8_0_0

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newProducer(producer, topic, logger), nil
}

func newProducer(producer sender, topic string, logger *zap.Logger) *Producer {
	if topic == "" {
		topic = DefaultTopic
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Producer{topic: topic, producer: producer, logger: logger}
}

// MessageKey returns the partition key for a record.
func MessageKey(record model.EventRecord) string {
	return record.TxHash + ":" + strconv.FormatUint(record.LogIndex, 10)
}

// PutEventBatch sends every record in one SendMessages call.
func (p *Producer) PutEventBatch(ctx context.Context, events []model.EventRecord) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(events))
	for _, record := range events {
		value, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal event %s: %w", record.Key(), err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(MessageKey(record)),
			Value: sarama.ByteEncoder(value),
			Headers: []sarama.RecordHeader{
				{Key: []byte("event"), Value: []byte(record.EventName)},
			},
		})
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("send to kafka topic %s: %w", p.topic, err)
	}
	p.logger.Debug("kafka batch sent", zap.String("topic", p.topic), zap.Int("messages", len(msgs)))
	return nil
}

func (p *Producer) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}
