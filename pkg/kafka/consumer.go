// Package kafka wraps segmentio/kafka-go for the ingestion queue: a JSON
// producer and a consumer that hands each message to a MessageHandler and
// commits it once handled.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/docsearch/pkg/resilience"
)

// MessageHandler processes one message. A returned error is retried with
// backoff a bounded number of times; if every attempt fails the message is
// logged and skipped, not redelivered. Wrap the error with Discard to skip
// the retries.
type MessageHandler func(ctx context.Context, key []byte, value []byte) error

var errDiscard = errors.New("message discarded")

// Discard marks err as final: the message is logged and committed.
func Discard(err error) error {
	return fmt.Errorf("%w: %w", errDiscard, err)
}

var handlerRetry = resilience.RetryConfig{
	MaxAttempts:    3,
	InitialDelay:   500 * time.Millisecond,
	MaxDelay:       5 * time.Second,
	JitterFraction: 0.2,
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  messageReader
	handler MessageHandler
	retry   resilience.RetryConfig
	logger  *slog.Logger
}

func NewConsumer(cfg config.KafkaConfig, topic string, handler MessageHandler) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       topic,
		GroupID:     cfg.ConsumerGroup,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafka.FirstOffset,
	})
	return newConsumer(r, topic, handler)
}

func newConsumer(r messageReader, topic string, handler MessageHandler) *Consumer {
	return &Consumer{
		reader:  r,
		handler: handler,
		retry:   handlerRetry,
		logger:  slog.Default().With("component", "kafka-consumer", "topic", topic),
	}
}

// Start consumes until ctx is cancelled, then closes the reader.
func (c *Consumer) Start(ctx context.Context) error {
	c.logger.Info("consumer started")
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			c.logger.Error("failed to fetch message", "error", err)
			continue
		}
		c.logger.Debug("message received",
			"partition", msg.Partition,
			"offset", msg.Offset,
			"key", string(msg.Key),
			"value_size", len(msg.Value),
		)
		if err := c.handle(ctx, msg); err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer stopping", "reason", ctx.Err())
				return nil
			}
			if errors.Is(err, errDiscard) {
				c.logger.Warn("discarding message",
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
			} else {
				c.logger.Error("failed to process message, skipping",
					"partition", msg.Partition,
					"offset", msg.Offset,
					"error", err,
				)
			}
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("failed to commit message",
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	return resilience.Retry(ctx, "kafka.handle", c.retry, func() error {
		err := c.handler(ctx, msg.Key, msg.Value)
		if errors.Is(err, errDiscard) {
			return resilience.Permanent(err)
		}
		return err
	})
}

// DecodeJSON unmarshals a message value into T.
func DecodeJSON[T any](value []byte) (T, error) {
	var result T
	if err := json.Unmarshal(value, &result); err != nil {
		return result, fmt.Errorf("decoding kafka message: %w", err)
	}
	return result, nil
}
