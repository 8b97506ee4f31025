// Package retry computes the wait between attempts of a retried request.
package retry

import (
	"math"
	"math/rand"
	"time"
)

// Strategy selects how the delay grows with the attempt number.
type Strategy int

const (
	// Exponential waits base * 2^(attempt-1).
	Exponential Strategy = iota

	// Linear waits base * attempt.
	Linear

	// Constant always waits base.
	Constant
)

// DefaultMaxDelay caps a single wait.
const DefaultMaxDelay = 10 * time.Second

// Backoff describes a retry delay schedule.
type Backoff struct {
	Strategy Strategy

	// Base is the first delay.
	Base time.Duration

	// Max caps every delay; zero means DefaultMaxDelay.
	Max time.Duration

	// Jitter spreads each delay by +/- that fraction, clamped to [0, 1].
	Jitter float64
}

// NewExponential returns an exponential schedule with 10% jitter.
func NewExponential(base time.Duration) *Backoff {
	return &Backoff{Strategy: Exponential, Base: base, Max: DefaultMaxDelay, Jitter: 0.1}
}

// Delay returns the wait before retry number attempt (1-based).
func (b *Backoff) Delay(attempt int) time.Duration {
	d := b.delay(attempt)
	if b.Jitter > 0 {
		d = jitter(d, b.Jitter)
	}
	return d
}

func (b *Backoff) delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	var d time.Duration
	switch b.Strategy {
	case Linear:
		d = b.Base * time.Duration(attempt)
	case Constant:
		d = b.Base
	default:
		d = time.Duration(float64(b.Base) * math.Pow(2, float64(attempt-1)))
	}

	limit := b.Max
	if limit <= 0 {
		limit = DefaultMaxDelay
	}
	if d > limit || d < 0 {
		d = limit
	}
	return d
}

func jitter(d time.Duration, fraction float64) time.Duration {
	if fraction > 1 {
		fraction = 1
	}
	spread := float64(d) * fraction
	return time.Duration(float64(d) + (rand.Float64()*2-1)*spread)
}

// Schedule returns the delays of the first n retries without jitter, for
// logging the expected worst case.
func (b *Backoff) Schedule(n int) []time.Duration {
	if n <= 0 {
		return nil
	}
	out := make([]time.Duration, n)
	for i := range n {
		out[i] = b.delay(i + 1)
	}
	return out
}

// Total is the sum of Schedule(n).
func (b *Backoff) Total(n int) time.Duration {
	var total time.Duration
	for _, d := range b.Schedule(n) {
		total += d
	}
	return total
}
