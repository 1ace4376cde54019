// v1
// internal/ingest/kafka.go
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"modelmarket/internal/circuitbreaker"
)

// Config groups the Kafka settings of the intent consumer.
type Config struct {
	Enabled bool
	Brokers []string
	GroupID string
	Topic   string
	Breaker circuitbreaker.KafkaSettings
}

const (
	maxBackoff        = 10 * time.Second
	intentBreakerName = "intent-reader"
)

// IntentConsumer reads intents from one topic and applies them in order.
type IntentConsumer struct {
	topic  string
	reader circuitbreaker.MessageReader
	closer interface{ Close() error }
	sub    Submitter
	log    *slog.Logger

	wg      sync.WaitGroup
	initial time.Duration
}

// Start wires a Kafka reader for the intent topic and begins consuming.
// A disabled config returns a nil consumer.
func Start(ctx context.Context, cfg Config, sub Submitter, log *slog.Logger) (*IntentConsumer, error) {
	if log == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}
	if !cfg.Enabled {
		log.Info("intent_consumer_disabled")
		return nil, nil
	}
	if sub == nil {
		return nil, fmt.Errorf("submitter must not be nil")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("intent topic must not be empty")
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		GroupID:     cfg.GroupID,
		GroupTopics: []string{cfg.Topic},
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6,
	})
	breaker, err := circuitbreaker.NewKafkaBreaker(intentBreakerName, cfg.Breaker, nil, log)
	if err != nil {
		_ = reader.Close()
		return nil, fmt.Errorf("intent consumer breaker: %w", err)
	}
	c := newIntentConsumer(cfg.Topic, circuitbreaker.NewCBKafkaReader(reader, breaker), reader, sub, log)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(ctx)
	}()
	return c, nil
}

func newIntentConsumer(topic string, reader circuitbreaker.MessageReader, closer interface{ Close() error }, sub Submitter, log *slog.Logger) *IntentConsumer {
	return &IntentConsumer{
		topic:   topic,
		reader:  reader,
		closer:  closer,
		sub:     sub,
		log:     log.With(slog.String("component", "intent_consumer"), slog.String("topic", topic)),
		initial: time.Second,
	}
}

// Wait blocks until the consumer has finished.
func (c *IntentConsumer) Wait() {
	if c == nil {
		return
	}
	c.wg.Wait()
}

func (c *IntentConsumer) run(ctx context.Context) {
	defer func() {
		if c.closer == nil {
			return
		}
		if err := c.closer.Close(); err != nil {
			c.log.Error("reader_close", slog.Any("err", err))
		}
	}()
	c.log.Info("consumer_start")

	backoff := c.initial
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				c.log.Info("consumer_stop", slog.String("reason", "context"))
				return
			}
			c.log.Error("fetch_err", slog.Any("err", err), slog.Duration("backoff", backoff))
			select {
			case <-time.After(backoff):
				if backoff < maxBackoff {
					backoff *= 2
					if backoff > maxBackoff {
						backoff = maxBackoff
					}
				}
				continue
			case <-ctx.Done():
				c.log.Info("consumer_stop", slog.String("reason", "shutdown"))
				return
			}
		}
		backoff = c.initial

		c.handleMessage(msg)
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Error("commit_err", slog.Any("err", err), slog.Int64("offset", msg.Offset))
		}
	}
}

// handleMessage applies one message. Poison messages are logged and counted
// but never retried; the caller commits the offset either way.
func (c *IntentConsumer) handleMessage(msg kafka.Message) string {
	return handle(c.sub, c.log, msg.Value, slog.Int64("offset", msg.Offset), slog.Int("partition", msg.Partition))
}
