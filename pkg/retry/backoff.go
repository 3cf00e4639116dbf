package retry

import (
	"math/rand"
	"sync"
	"time"
)

// Backoff defaults, used by long-lived recovery loops such as
// listener socket rebinds.
const (
	// DefaultInitialDelay is the wait before the first recovery
	// attempt.
	DefaultInitialDelay = 1 * time.Second

	// DefaultMaxDelay caps the grown wait.
	DefaultMaxDelay = 60 * time.Second

	// DefaultGrowth is the factor the wait grows by per attempt.
	DefaultGrowth = 2.0

	// DefaultJitter is the largest random fraction added on top of a
	// wait.
	DefaultJitter = 0.25
)

// BackoffConfig shapes a Backoff's delay sequence. Zero delays and a
// growth factor of 1 or less take the package defaults. Jitter is
// used as given, so the zero value produces a deterministic sequence.
type BackoffConfig struct {
	// InitialDelay is the first wait.
	InitialDelay time.Duration

	// MaxDelay caps the grown wait.
	MaxDelay time.Duration

	// Growth multiplies the wait after every attempt.
	Growth float64

	// Jitter adds up to this fraction of the wait on top.
	Jitter float64
}

func (c *BackoffConfig) applyDefaults() {
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.Growth <= 1 {
		c.Growth = DefaultGrowth
	}
	if c.Jitter < 0 {
		c.Jitter = 0
	}
}

// Backoff produces the waits for one recovery loop: exponential
// growth up to a cap, with jitter so restarted clients do not retry
// in lockstep. Unlike Policy it is stateful and unbounded; call Reset
// after a successful recovery. Safe for concurrent use.
type Backoff struct {
	cfg BackoffConfig

	mu       sync.Mutex
	next     time.Duration
	attempts int
	rng      *rand.Rand
}

// NewBackoff creates a backoff with the package defaults, jitter
// included.
func NewBackoff() *Backoff {
	return NewBackoffWithConfig(BackoffConfig{Jitter: DefaultJitter})
}

// NewBackoffWithConfig creates a backoff with the given shape.
func NewBackoffWithConfig(cfg BackoffConfig) *Backoff {
	cfg.applyDefaults()
	return &Backoff{
		cfg:  cfg,
		next: cfg.InitialDelay,
		rng:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the wait before the upcoming attempt and grows the one
// after it.
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	wait := b.next
	if b.cfg.Jitter > 0 {
		wait += time.Duration(float64(wait) * b.cfg.Jitter * b.rng.Float64())
	}

	b.attempts++
	grown := time.Duration(float64(b.next) * b.cfg.Growth)
	if grown > b.cfg.MaxDelay {
		grown = b.cfg.MaxDelay
	}
	b.next = grown

	return wait
}

// Reset starts the sequence over after a successful recovery.
func (b *Backoff) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next = b.cfg.InitialDelay
	b.attempts = 0
}

// Attempts counts Next calls since the last Reset.
func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}
