// v2
// internal/circuitbreaker/kafka.go
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// MessageWriter mirrors the subset of kafka.Writer used by the wrappers.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// MessageReader mirrors the subset of kafka.Reader used by the wrappers.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaSettings are the runtime tunables for the Kafka wrappers.
type KafkaSettings struct {
	Enabled          bool
	FailureThreshold int
	SuccessThreshold int
	OpenSeconds      float64
	TimeoutMS        int
	BackoffMS        int
}

// DefaultKafkaSettings returns the tunables used when nothing is configured.
func DefaultKafkaSettings() KafkaSettings {
	return KafkaSettings{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		OpenSeconds:      30,
		TimeoutMS:        3000,
		BackoffMS:        200,
	}
}

// Validate reports the first out-of-range tunable.
func (s KafkaSettings) Validate() error {
	switch {
	case s.FailureThreshold < 1:
		return fmt.Errorf("failure threshold must be >= 1")
	case s.SuccessThreshold < 1:
		return fmt.Errorf("success threshold must be >= 1")
	case s.OpenSeconds <= 0:
		return fmt.Errorf("open seconds must be > 0")
	case s.TimeoutMS < 0:
		return fmt.Errorf("timeout ms must be >= 0")
	case s.BackoffMS < 0:
		return fmt.Errorf("backoff ms must be >= 0")
	}
	return nil
}

// KafkaBreaker adds per-attempt timeouts and retry back-off around a Breaker.
type KafkaBreaker struct {
	enabled          bool
	failureThreshold int
	timeout          time.Duration
	backoff          time.Duration
	breaker          *Breaker
}

// NewKafkaBreaker validates s and allocates the breaker when enabled.
func NewKafkaBreaker(name string, s KafkaSettings, probe func(ctx context.Context) error, logger *slog.Logger) (*KafkaBreaker, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	kb := &KafkaBreaker{
		enabled:          s.Enabled,
		failureThreshold: s.FailureThreshold,
		timeout:          time.Duration(s.TimeoutMS) * time.Millisecond,
		backoff:          time.Duration(s.BackoffMS) * time.Millisecond,
	}
	if s.Enabled {
		kb.breaker = New(name, Config{
			MaxFailures:      s.FailureThreshold,
			ResetTimeout:     time.Duration(s.OpenSeconds * float64(time.Second)),
			SuccessesToClose: s.SuccessThreshold,
		}, probe, logger)
	}
	return kb, nil
}

// Enabled reports whether breaker protections are active.
func (k *KafkaBreaker) Enabled() bool {
	return k != nil && k.enabled && k.breaker != nil
}

// Breaker exposes the underlying breaker for inspection and testing.
func (k *KafkaBreaker) Breaker() *Breaker {
	if k == nil {
		return nil
	}
	return k.breaker
}

// CBKafkaWriter wraps a kafka writer with circuit-breaker protection.
type CBKafkaWriter struct {
	breaker *KafkaBreaker
	writer  MessageWriter
}

func NewCBKafkaWriter(writer MessageWriter, breaker *KafkaBreaker) *CBKafkaWriter {
	return &CBKafkaWriter{writer: writer, breaker: breaker}
}

// WriteMessages publishes messages with retry/back-off driven by the breaker policy.
func (w *CBKafkaWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w == nil || w.writer == nil {
		return errors.New("nil kafka writer")
	}
	if !w.breaker.Enabled() {
		return w.writer.WriteMessages(ctx, msgs...)
	}
	return w.breaker.do(ctx, func(execCtx context.Context) error {
		return w.writer.WriteMessages(execCtx, msgs...)
	})
}

// CBKafkaReader wraps a kafka reader, guarding fetches with the breaker.
// Commits pass straight through.
type CBKafkaReader struct {
	breaker *KafkaBreaker
	reader  MessageReader
}

func NewCBKafkaReader(reader MessageReader, breaker *KafkaBreaker) *CBKafkaReader {
	return &CBKafkaReader{reader: reader, breaker: breaker}
}

// FetchMessage retrieves a message with breaker-enforced retry/back-off.
func (r *CBKafkaReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if r == nil || r.reader == nil {
		return kafka.Message{}, errors.New("nil kafka reader")
	}
	if !r.breaker.Enabled() {
		return r.reader.FetchMessage(ctx)
	}
	var msg kafka.Message
	err := r.breaker.do(ctx, func(execCtx context.Context) error {
		var innerErr error
		msg, innerErr = r.reader.FetchMessage(execCtx)
		return innerErr
	})
	return msg, err
}

func (r *CBKafkaReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	if r == nil || r.reader == nil {
		return errors.New("nil kafka reader")
	}
	return r.reader.CommitMessages(ctx, msgs...)
}

func (k *KafkaBreaker) do(ctx context.Context, op func(ctx context.Context) error) error {
	if !k.Enabled() {
		return op(ctx)
	}
	attempts := 0
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		attempts++
		attemptCtx, cancel := k.withAttemptContext(ctx)
		err := k.breaker.Execute(attemptCtx, op)
		cancel()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !errors.Is(err, ErrOpen) && attempts >= k.failureThreshold {
			return err
		}
		if waitErr := k.waitBackoff(ctx); waitErr != nil {
			return waitErr
		}
	}
}

func (k *KafkaBreaker) withAttemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if k.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, k.timeout)
}

func (k *KafkaBreaker) waitBackoff(ctx context.Context) error {
	if k.backoff <= 0 {
		return nil
	}
	timer := time.NewTimer(k.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
