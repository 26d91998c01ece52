// Package resilience guards calls to external providers.
package resilience

import (
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type State uint32

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	return [...]string{"closed", "open", "half-open"}[s]
}

var ErrOpen = errors.New("circuit breaker open")

// Breaker trips after a run of failures and fails fast until ResetTimeout
// has passed since the last one.
type Breaker struct {
	name        string
	cfg         Config
	state       atomic.Uint32
	failures    atomic.Int32
	successes   atomic.Int32
	lastFailure atomic.Int64 // unix nano
	logger      *zap.Logger
}

func NewBreaker(name string, cfg Config, logger *zap.Logger) *Breaker {
	b := &Breaker{name: name, cfg: cfg.withDefaults(), logger: logger}
	b.state.Store(uint32(Closed))
	return b
}

// Allow returns nil if a call may proceed.
func (b *Breaker) Allow() error {
	if State(b.state.Load()) != Open {
		return nil
	}
	if b.shouldAttemptReset() {
		b.transition(HalfOpen)
		return nil
	}
	return ErrOpen
}

func (b *Breaker) Success() {
	switch State(b.state.Load()) {
	case HalfOpen:
		if b.successes.Add(1) >= int32(b.cfg.HalfOpenSuccesses) {
			b.transition(Closed)
		}
	case Closed:
		b.failures.Store(0)
	}
}

func (b *Breaker) Failure() {
	b.lastFailure.Store(time.Now().UnixNano())
	count := b.failures.Add(1)

	switch State(b.state.Load()) {
	case HalfOpen:
		b.transition(Open)
	case Closed:
		if count >= int32(b.cfg.Threshold) {
			b.transition(Open)
		}
	}
}

func (b *Breaker) State() State {
	return State(b.state.Load())
}

func (b *Breaker) transition(to State) {
	from := State(b.state.Swap(uint32(to)))
	if from == to {
		return
	}

	switch to {
	case Closed:
		b.failures.Store(0)
		b.successes.Store(0)
		b.logger.Info("Circuit breaker closed", zap.String("breaker", b.name))
	case Open:
		b.successes.Store(0)
		b.logger.Warn("Circuit breaker opened",
			zap.String("breaker", b.name),
			zap.Int32("failures", b.failures.Load()),
		)
	case HalfOpen:
		b.successes.Store(0)
		b.logger.Info("Circuit breaker half-open", zap.String("breaker", b.name))
	}
}

func (b *Breaker) shouldAttemptReset() bool {
	last := b.lastFailure.Load()
	if last == 0 {
		return true
	}
	return time.Since(time.Unix(0, last)) > b.cfg.ResetTimeout
}

// ExecuteWithResult runs fn under the breaker. Errors for which ignore
// returns true are passed through without counting as failures.
func ExecuteWithResult[T any](b *Breaker, ignore func(error) bool, fn func() (T, error)) (T, error) {
	var zero T
	if err := b.Allow(); err != nil {
		return zero, err
	}
	result, err := fn()
	if err != nil {
		if ignore == nil || !ignore(err) {
			b.Failure()
		}
		return zero, err
	}
	b.Success()
	return result, nil
}
