package paysim

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Clock abstracts time so the fault model and cache expiry are
// deterministic in tests.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Sleep blocks for d or until ctx is cancelled, whichever is first.
	Sleep(ctx context.Context, d time.Duration)
}

type systemClock struct{}

// NewSystemClock returns a Clock backed by the wall clock.
func NewSystemClock() Clock {
	return systemClock{}
}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// Rand abstracts the randomness driving fault injection and latency
// jitter, so outcomes are reproducible under a configured seed.
type Rand interface {
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
	// Intn returns a value in [0, n).
	Intn(n int) int
}

// lockedRand guards a math/rand source for concurrent use. Transfer
// requests run on independent goroutines and all draw from one source so
// a single seed fixes the whole run.
type lockedRand struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSeededRand returns a Rand deterministically driven by seed.
func NewSeededRand(seed int64) Rand {
	return &lockedRand{rnd: rand.New(rand.NewSource(seed))}
}

// NewRand returns a Rand seeded from the current time.
func NewRand() Rand {
	return NewSeededRand(time.Now().UnixNano())
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Float64()
}

func (r *lockedRand) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rnd.Intn(n)
}
