package kafka

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
	"github.com/corray333/backend-labs/checkout/internal/config"
	"go.opentelemetry.io/otel"
)

// Client wraps a synchronous Kafka producer.
type Client struct {
	producer sarama.SyncProducer
}

// NewClient wraps an existing producer.
func NewClient(producer sarama.SyncProducer) *Client {
	return &Client{producer: producer}
}

// MustNewClient creates a producer that waits for all in-sync replicas.
func MustNewClient(cfg config.KafkaConfig) *Client {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForAll
	saramaCfg.Producer.Retry.Max = 5
	saramaCfg.Producer.Idempotent = true
	saramaCfg.Net.MaxOpenRequests = 1
	saramaCfg.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		panic(fmt.Sprintf("Failed to create Kafka producer: %v", err))
	}

	slog.Info("Kafka producer initialized", "brokers", cfg.Brokers)

	return &Client{producer: producer}
}

// Publish sends value to topic keyed by key, carrying the trace context in headers.
func (c *Client) Publish(ctx context.Context, topic, key string, value []byte) error {
	carrier := make(headerCarrier, 0)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader(carrier),
	}

	partition, offset, err := c.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message to %s: %w", topic, err)
	}

	slog.Debug("Kafka message published", "topic", topic, "key", key, "partition", partition, "offset", offset)

	return nil
}

// Close closes the producer for graceful shutdown.
func (c *Client) Close() error {
	return c.producer.Close()
}

// headerCarrier implements the otel TextMapCarrier interface for Kafka headers.
type headerCarrier []sarama.RecordHeader

func (c headerCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	*c = append(*c, sarama.RecordHeader{
		Key:   []byte(key),
		Value: []byte(value),
	})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
