// v1
// internal/public/publisher.go

// Package public publishes committed ledger records to Kafka.
package public

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"modelmarket/internal/circuitbreaker"
	"modelmarket/internal/metrics"
)

// Partitioner enumerates the supported Kafka partition strategies.
type Partitioner string

const (
	PartitionerHash       Partitioner = "hash"
	PartitionerRoundRobin Partitioner = "roundrobin"
)

// KeyMode describes how the Kafka message key is derived.
type KeyMode string

const (
	// KeyModeModel keys by model id so one model's records stay ordered.
	KeyModeModel KeyMode = "model"
	// KeyModeKind keys by record kind.
	KeyModeKind KeyMode = "kind"
	// KeyModeNone disables keyed publishing.
	KeyModeNone KeyMode = "none"
)

// Config encapsulates the runtime options required to publish records.
type Config struct {
	Enabled       bool
	Topic         string
	Brokers       []string
	Acks          int
	Partitioner   Partitioner
	KeyMode       KeyMode
	SchemaVersion string
	Breaker       circuitbreaker.KafkaSettings
}

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type kafkaWriteCloser interface {
	Close() error
}

type publishRequest struct {
	key     []byte
	value   []byte
	modelID string
	index   int
}

// Publisher asynchronously publishes committed records to the configured topic.
type Publisher struct {
	cfg       Config
	log       *slog.Logger
	writer    kafkaMessageWriter
	closer    kafkaWriteCloser
	enabled   bool
	queue     chan publishRequest
	runCtx    context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	stopOnce  sync.Once
	started   atomic.Bool
}

const (
	publisherQueueSize = 256
	publicBreakerName  = "public-record-writer"
)

var (
	errPublisherNilLogger  = errors.New("publisher requires a logger")
	errPublisherNilWriter  = errors.New("publisher requires a writer")
	errPublisherNotStarted = errors.New("public publisher not started")
	errPublisherStopped    = errors.New("public publisher stopped")
	errPublisherQueueFull  = errors.New("public publisher queue full")
)

// NewPublisher constructs a Publisher backed by a Kafka writer guarded by the circuit breaker.
func NewPublisher(cfg Config, log *slog.Logger) (*Publisher, error) {
	if log == nil {
		return nil, errPublisherNilLogger
	}
	if !cfg.Enabled {
		log.Info("public_publisher_disabled")
		return &Publisher{cfg: cfg, log: log, enabled: false}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, fmt.Errorf("public topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("at least one broker is required")
	}
	if _, err := ParseKeyMode(string(cfg.KeyMode)); err != nil {
		return nil, err
	}
	balancer, err := resolveBalancer(cfg.Partitioner)
	if err != nil {
		return nil, err
	}
	baseWriter := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		RequiredAcks:           kafka.RequiredAcks(cfg.Acks),
		AllowAutoTopicCreation: false,
		Balancer:               balancer,
	}
	breaker, err := circuitbreaker.NewKafkaBreaker(publicBreakerName, cfg.Breaker, nil, log)
	if err != nil {
		return nil, fmt.Errorf("public publisher breaker: %w", err)
	}
	if breaker.Enabled() {
		log.Info("public_publisher_cb_enabled", slog.String("name", publicBreakerName))
	} else {
		log.Info("public_publisher_cb_disabled", slog.String("name", publicBreakerName))
	}
	wrapped := circuitbreaker.NewCBKafkaWriter(baseWriter, breaker)
	return newPublisherWithWriter(cfg, log, wrapped, baseWriter)
}

// newPublisherWithWriter wires the provided writer into the publisher. It is used in tests.
func newPublisherWithWriter(cfg Config, log *slog.Logger, writer kafkaMessageWriter, closer kafkaWriteCloser) (*Publisher, error) {
	if log == nil {
		return nil, errPublisherNilLogger
	}
	if writer == nil {
		return nil, errPublisherNilWriter
	}
	p := &Publisher{
		cfg:     cfg,
		log:     log.With(slog.String("component", "public_publisher")),
		writer:  writer,
		closer:  closer,
		enabled: cfg.Enabled,
	}
	if p.enabled {
		p.queue = make(chan publishRequest, publisherQueueSize)
		metrics.SetPublicQueueDepth(0)
	}
	return p, nil
}

// Enabled reports whether records will be published.
func (p *Publisher) Enabled() bool { return p != nil && p.enabled }

// Start launches the background publishing loop.
func (p *Publisher) Start(ctx context.Context) error {
	if !p.enabled {
		p.log.Info("public_publisher_start_skipped", slog.String("reason", "disabled"))
		return nil
	}
	if ctx == nil {
		return errors.New("context must not be nil")
	}
	p.startOnce.Do(func() {
		p.runCtx, p.cancel = context.WithCancel(ctx)
		p.started.Store(true)
		p.wg.Add(1)
		go p.run()
		p.log.Info("public_publisher_started", slog.String("topic", p.cfg.Topic))
	})
	if !p.started.Load() {
		return errPublisherNotStarted
	}
	return nil
}

// Stop requests the publisher to shut down and waits for queued records to drain.
func (p *Publisher) Stop(ctx context.Context) error {
	if !p.enabled {
		return nil
	}
	var stopErr error
	p.stopOnce.Do(func() {
		if p.cancel != nil {
			p.cancel()
		}
		done := make(chan struct{})
		go func() {
			p.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			stopErr = ctx.Err()
		}
		if p.closer != nil {
			if err := p.closer.Close(); err != nil {
				p.log.Error("public_publisher_close_err", slog.Any("err", err))
			}
		}
		metrics.SetPublicQueueDepth(0)
		if stopErr != nil {
			p.log.Error("public_publisher_stop_err", slog.Any("err", stopErr))
		}
		p.log.Info("public_publisher_stopped")
	})
	return stopErr
}

// Publish queues a record event for asynchronous delivery, waiting for queue
// space until ctx is done.
func (p *Publisher) Publish(ctx context.Context, event RecordEvent) error {
	req, err := p.prepare(event)
	if err != nil || req == nil {
		return err
	}
	select {
	case p.queue <- *req:
		p.enqueued(*req)
		return nil
	case <-ctx.Done():
		p.fail("public_publish_ctx_err", ctx.Err(), req.modelID, req.index)
		return ctx.Err()
	case <-p.runCtx.Done():
		p.fail("public_publish_stopped", errPublisherStopped, req.modelID, req.index)
		return errPublisherStopped
	}
}

// TryPublish queues a record event without waiting. A full queue drops the
// event and returns errPublisherQueueFull.
func (p *Publisher) TryPublish(event RecordEvent) error {
	req, err := p.prepare(event)
	if err != nil || req == nil {
		return err
	}
	select {
	case p.queue <- *req:
		p.enqueued(*req)
		return nil
	default:
	}
	select {
	case <-p.runCtx.Done():
		p.fail("public_publish_stopped", errPublisherStopped, req.modelID, req.index)
		return errPublisherStopped
	default:
	}
	metrics.IncPublicPublish("dropped")
	metrics.SetPublicLastError(time.Now())
	p.log.Warn("public_publish_dropped",
		slog.String("reason", "queue_full"),
		slog.String("model_id", req.modelID),
		slog.Int("index", req.index),
	)
	return errPublisherQueueFull
}

// prepare encodes event into a queue request. A nil request with a nil error
// means the publisher is disabled.
func (p *Publisher) prepare(event RecordEvent) (*publishRequest, error) {
	if !p.enabled {
		return nil, nil
	}
	if !p.started.Load() {
		p.log.Error("public_publish_not_started")
		return nil, errPublisherNotStarted
	}
	event.Type = EventTypeRecordCommitted
	if strings.TrimSpace(event.SchemaVersion) == "" {
		event.SchemaVersion = strings.TrimSpace(p.cfg.SchemaVersion)
	}
	if event.SchemaVersion == "" {
		event.SchemaVersion = SchemaVersionV1
	}
	modelID := event.Record.ModelID
	key, err := p.messageKey(event)
	if err != nil {
		p.fail("public_publish_key_err", err, modelID, event.Index)
		return nil, err
	}
	value, err := json.Marshal(event)
	if err != nil {
		p.fail("public_publish_encode_err", err, modelID, event.Index)
		return nil, err
	}
	return &publishRequest{key: key, value: value, modelID: modelID, index: event.Index}, nil
}

func (p *Publisher) enqueued(req publishRequest) {
	metrics.SetPublicQueueDepth(len(p.queue))
	p.log.Debug("public_publish_enqueued", slog.String("model_id", req.modelID), slog.Int("index", req.index))
}

func (p *Publisher) fail(msg string, err error, modelID string, index int) {
	metrics.IncPublicPublish("fail")
	metrics.SetPublicLastError(time.Now())
	p.log.Error(msg, slog.Any("err", err), slog.String("model_id", modelID), slog.Int("index", index))
}

func (p *Publisher) run() {
	defer p.wg.Done()
	for {
		select {
		case <-p.runCtx.Done():
			p.drain()
			p.started.Store(false)
			p.log.Info("public_publisher_loop_exit")
			return
		case req := <-p.queue:
			metrics.SetPublicQueueDepth(len(p.queue))
			p.deliver(p.runCtx, req)
		}
	}
}

// drain flushes what is still queued after cancellation, bounded by a fresh timeout.
func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case req := <-p.queue:
			metrics.SetPublicQueueDepth(len(p.queue))
			p.deliver(ctx, req)
		default:
			return
		}
	}
}

const drainTimeout = 5 * time.Second

func (p *Publisher) deliver(ctx context.Context, req publishRequest) {
	err := p.writer.WriteMessages(ctx, kafka.Message{Key: req.key, Value: req.value})
	if err != nil {
		p.fail("public_publish_err", err, req.modelID, req.index)
		return
	}
	metrics.IncPublicPublish("ok")
	p.log.Info("public_publish_success", slog.String("model_id", req.modelID), slog.Int("index", req.index))
}

func (p *Publisher) messageKey(event RecordEvent) ([]byte, error) {
	switch p.cfg.KeyMode {
	case KeyModeModel:
		if strings.TrimSpace(event.Record.ModelID) == "" {
			return nil, errors.New("modelId is required for model key mode")
		}
		return []byte(event.Record.ModelID), nil
	case KeyModeKind:
		return []byte(event.Record.Kind), nil
	case KeyModeNone:
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported key mode: %s", p.cfg.KeyMode)
	}
}

// ParseKeyMode accepts model, kind or none.
func ParseKeyMode(s string) (KeyMode, error) {
	switch KeyMode(strings.ToLower(strings.TrimSpace(s))) {
	case KeyModeModel:
		return KeyModeModel, nil
	case KeyModeKind:
		return KeyModeKind, nil
	case KeyModeNone:
		return KeyModeNone, nil
	default:
		return "", fmt.Errorf("unsupported key mode: %s", s)
	}
}

func resolveBalancer(partitioner Partitioner) (kafka.Balancer, error) {
	switch partitioner {
	case PartitionerHash, "":
		return &kafka.Hash{}, nil
	case PartitionerRoundRobin:
		return &kafka.RoundRobin{}, nil
	default:
		return nil, fmt.Errorf("unsupported partitioner: %s", partitioner)
	}
}
