// Package resilience guards calls to the AI and HTTP collaborators with
// retries and a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

// State is where a Breaker sits in its closed/open/half-open cycle.
type State int

const (
	StateClosed State = iota
	StateOpen
	// StateHalfOpen admits a single probe call.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// ErrOpen is returned for calls the breaker rejects without running.
var ErrOpen = eris.New("circuit breaker is open")

// BreakerConfig tunes a Breaker.
type BreakerConfig struct {
	// Threshold is the number of consecutive failures that opens the breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before a probe.
	Cooldown time.Duration
	// Trips reports whether err counts against the upstream. Nil counts
	// every error. Caller cancellation never counts.
	Trips    func(err error) bool
	OnChange func(from, to State)
}

// DefaultBreakerConfig opens after five failures and probes after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{Threshold: 5, Cooldown: 30 * time.Second}
}

// Breaker fails fast while an upstream is known to be down.
type Breaker struct {
	cfg BreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
}

// NewBreaker returns a closed breaker. Zero config fields take the defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	def := DefaultBreakerConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = def.Cooldown
	}
	return &Breaker{cfg: cfg, now: time.Now}
}

// Guard runs fn through b. While b is open, or a half-open probe is already
// in flight, it returns ErrOpen without calling fn.
func Guard[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if err := b.acquire(); err != nil {
		return zero, err
	}
	v, err := fn(ctx)
	b.release(err)
	return v, err
}

// State reports the current state. An open breaker whose cooldown has passed
// reads as half-open.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.cooled() {
		return StateHalfOpen
	}
	return b.state
}

func (b *Breaker) cooled() bool {
	return b.now().Sub(b.openedAt) >= b.cfg.Cooldown
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if !b.cooled() {
			return ErrOpen
		}
		b.set(StateHalfOpen)
		b.probing = true
	case StateHalfOpen:
		if b.probing {
			return ErrOpen
		}
		b.probing = true
	}
	return nil
}

func (b *Breaker) release(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false

	// A call the caller abandoned says nothing about the upstream.
	if errors.Is(err, context.Canceled) {
		return
	}
	if err == nil || (b.cfg.Trips != nil && !b.cfg.Trips(err)) {
		b.failures = 0
		if b.state != StateClosed {
			b.set(StateClosed)
		}
		return
	}

	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.cfg.Threshold {
		b.openedAt = b.now()
		if b.state != StateOpen {
			b.set(StateOpen)
		}
	}
}

func (b *Breaker) set(to State) {
	from := b.state
	b.state = to
	if b.cfg.OnChange != nil {
		b.cfg.OnChange(from, to)
	}
}
