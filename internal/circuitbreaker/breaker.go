// v1
// internal/circuitbreaker/breaker.go

// Package circuitbreaker guards calls to external systems (Kafka brokers)
// with a closed/open/half-open breaker.
package circuitbreaker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"modelmarket/internal/metrics"
)

type State int

const (
	Closed State = iota
	HalfOpen
	Open
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case HalfOpen:
		return "half-open"
	case Open:
		return "open"
	default:
		return "unknown"
	}
}

var ErrOpen = errors.New("circuit breaker is open; fast-fail")

// Config holds the breaker tunables.
type Config struct {
	MaxFailures      int           // consecutive failures before opening
	ResetTimeout     time.Duration // how long to stay open before probing
	SuccessesToClose int           // successes required in half-open before closing
}

func (c Config) withDefaults() Config {
	if c.MaxFailures < 1 {
		c.MaxFailures = 5
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = 30 * time.Second
	}
	if c.SuccessesToClose < 1 {
		c.SuccessesToClose = 1
	}
	return c
}

// Breaker is safe for concurrent use.
type Breaker struct {
	name   string
	cfg    Config
	logger *slog.Logger
	probe  func(ctx context.Context) error

	mu          sync.Mutex
	state       State
	recentFails int
	successes   int
	openedAt    time.Time
}

// New builds a closed breaker. probe, when set, runs before the first call
// after the open period elapses.
func New(name string, cfg Config, probe func(ctx context.Context) error, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg = cfg.withDefaults()
	b := &Breaker{
		name:   name,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "circuit_breaker"), slog.String("name", name)),
		state:  Closed,
		probe:  probe,
	}
	metrics.SetBreakerState(name, int(Closed))
	b.logger.Info("breaker_created",
		slog.Int("max_failures", cfg.MaxFailures),
		slog.Duration("reset_timeout", cfg.ResetTimeout),
		slog.Int("successes_to_close", cfg.SuccessesToClose),
	)
	return b
}

// Execute runs op unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, op func(ctx context.Context) error) error {
	b.mu.Lock()
	if b.state == Open {
		since := time.Since(b.openedAt)
		if since < b.cfg.ResetTimeout {
			b.mu.Unlock()
			b.logger.Debug("breaker_fast_fail", slog.Duration("since_open", since))
			return ErrOpen
		}
		b.transitionLocked(HalfOpen)
		b.mu.Unlock()
		if b.probe != nil {
			if err := b.probe(ctx); err != nil {
				b.logger.Warn("breaker_probe_failed", slog.Any("err", err))
				b.mu.Lock()
				b.transitionLocked(Open)
				b.mu.Unlock()
				return ErrOpen
			}
		}
	} else {
		b.mu.Unlock()
	}

	err := op(ctx)
	if err == nil {
		b.onSuccess()
		return nil
	}
	if b.onFailure(err) {
		return ErrOpen
	}
	return err
}

func (b *Breaker) onSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recentFails = 0
	if b.state != HalfOpen {
		return
	}
	b.successes++
	if b.successes >= b.cfg.SuccessesToClose {
		b.transitionLocked(Closed)
	}
}

// onFailure records err and reports whether the breaker is now open.
func (b *Breaker) onFailure(err error) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recentFails++
	b.logger.Warn("operation_failure", slog.Int("failures", b.recentFails), slog.Any("err", err))
	if b.state == HalfOpen || b.recentFails >= b.cfg.MaxFailures {
		b.transitionLocked(Open)
		return true
	}
	return false
}

func (b *Breaker) transitionLocked(to State) {
	from := b.state
	b.state = to
	b.successes = 0
	switch to {
	case Open:
		b.openedAt = time.Now()
	case Closed:
		b.recentFails = 0
	}
	metrics.SetBreakerState(b.name, int(to))
	if from != to {
		b.logger.Info("breaker_state_changed", slog.String("from", from.String()), slog.String("to", to.String()))
	}
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
