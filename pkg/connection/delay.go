package connection

import (
	"math/rand"
	"sync"
	"time"
)

// Reconnection delay constants.
const (
	// ReconnectDelay is the fixed delay before a reconnection attempt.
	ReconnectDelay = 5 * time.Second

	// ConnectTimeout bounds a single reconnection attempt.
	ConnectTimeout = 30 * time.Second
)

// Delay calculates reconnection delays. The default policy is a fixed
// delay with no growth; a multiplier and jitter can be configured for
// callers that want exponential backoff.
type Delay struct {
	mu sync.Mutex

	// Current delay (before jitter)
	current time.Duration

	// Configuration
	initial    time.Duration
	max        time.Duration
	multiplier float64
	jitter     float64

	// Attempt counter
	attempts int

	// Random source for jitter
	rng *rand.Rand
}

// NewFixedDelay creates a delay calculator with the default fixed policy:
// ReconnectDelay every attempt, no growth, no jitter.
func NewFixedDelay() *Delay {
	return NewDelayWithConfig(DelayConfig{
		Initial:    ReconnectDelay,
		Max:        ReconnectDelay,
		Multiplier: 1.0,
		Jitter:     0,
	})
}

// DelayConfig allows customizing delay parameters.
type DelayConfig struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

// NewDelayWithConfig creates a delay calculator with custom settings.
func NewDelayWithConfig(cfg DelayConfig) *Delay {
	if cfg.Initial <= 0 {
		cfg.Initial = ReconnectDelay
	}
	if cfg.Max <= 0 {
		cfg.Max = cfg.Initial
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 1.0
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}

	return &Delay{
		current:    cfg.Initial,
		initial:    cfg.Initial,
		max:        cfg.Max,
		multiplier: cfg.Multiplier,
		jitter:     cfg.Jitter,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next delay (with jitter) and advances the calculator.
func (d *Delay) Next() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	delay := d.addJitter(d.current)

	d.attempts++
	next := time.Duration(float64(d.current) * d.multiplier)
	if next > d.max {
		next = d.max
	}
	d.current = next

	return delay
}

// Peek returns the current delay without advancing.
func (d *Delay) Peek() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addJitter(d.current)
}

// Reset resets the calculator to its initial delay.
// Call this after a successful connection.
func (d *Delay) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.current = d.initial
	d.attempts = 0
}

// Attempts returns the number of delays issued since last reset.
func (d *Delay) Attempts() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.attempts
}

// Current returns the current base delay (without jitter).
func (d *Delay) Current() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// addJitter adds random jitter to a delay.
func (d *Delay) addJitter(dur time.Duration) time.Duration {
	if d.jitter <= 0 {
		return dur
	}
	jitterAmount := time.Duration(float64(dur) * d.jitter * d.rng.Float64())
	return dur + jitterAmount
}
