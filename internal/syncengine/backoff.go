package syncengine

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes retry delays: Base*2^attempt scaled by a random factor
// in [1-Jitter, 1+Jitter] and capped at Cap.
type Backoff struct {
	Base   time.Duration
	Cap    time.Duration
	Jitter float64
	// Rand returns a value in [0, 1). Nil uses math/rand/v2.
	Rand func() float64
}

// DefaultBackoff is 1s base, 60s cap, 25% jitter.
func DefaultBackoff() Backoff {
	return Backoff{Base: time.Second, Cap: time.Minute, Jitter: 0.25}
}

// Delay returns the wait before retry number attempt (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	r := rand.Float64
	if b.Rand != nil {
		r = b.Rand
	}
	d := float64(b.Base) * math.Pow(2, float64(attempt))
	d *= 1 + b.Jitter*(2*r()-1)
	if b.Cap > 0 && d > float64(b.Cap) {
		d = float64(b.Cap)
	}
	return time.Duration(d)
}
