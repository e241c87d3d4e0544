package paysim

import (
	"context"
	"time"
)

// Bounds of the base simulated processing delay, in milliseconds.
const (
	baseDelayMinMs = 5
	baseDelayMaxMs = 20
)

// maxTimeoutMs caps the compensating delay for TIMEOUT_UPSTREAM failures.
const maxTimeoutMs = 1000

// FaultModel decides transfer outcomes and simulates processing latency.
// All randomness and time flow through the injected Rand and Clock, so a
// seeded model is fully reproducible.
type FaultModel struct {
	faultRate      float64
	extraLatencyMs int
	jitterMs       int
	timeoutMs      int
	clock          Clock
	rand           Rand
}

// FaultOption configures a FaultModel.
type FaultOption func(*FaultModel)

// WithFaultRate sets the probability in [0, 1] that a transfer fails.
//
// Default: 0.02
func WithFaultRate(rate float64) FaultOption {
	return func(m *FaultModel) {
		m.faultRate = rate
	}
}

// WithExtraLatency adds a fixed delay, in milliseconds, on top of the base
// processing delay.
func WithExtraLatency(ms int) FaultOption {
	return func(m *FaultModel) {
		m.extraLatencyMs = ms
	}
}

// WithJitter sets the upper bound, in milliseconds, of the uniform random
// jitter added to each simulated delay.
//
// Default: 50
func WithJitter(ms int) FaultOption {
	return func(m *FaultModel) {
		m.jitterMs = ms
	}
}

// WithTimeout sets the upstream timeout, in milliseconds, that a
// TIMEOUT_UPSTREAM failure waits out before reporting. Capped at 1000ms.
//
// Default: 800
func WithTimeout(ms int) FaultOption {
	return func(m *FaultModel) {
		m.timeoutMs = ms
	}
}

// WithModelClock sets the clock used for sleeping.
func WithModelClock(clock Clock) FaultOption {
	return func(m *FaultModel) {
		m.clock = clock
	}
}

// WithModelRand sets the randomness source.
func WithModelRand(rnd Rand) FaultOption {
	return func(m *FaultModel) {
		m.rand = rnd
	}
}

// NewFaultModel creates a fault model with the given options.
//
// Default configuration: 2% fault rate, no extra latency, 50ms jitter,
// 800ms upstream timeout, system clock, time-seeded randomness.
func NewFaultModel(opts ...FaultOption) *FaultModel {
	m := &FaultModel{
		faultRate: 0.02,
		jitterMs:  50,
		timeoutMs: 800,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.clock == nil {
		m.clock = NewSystemClock()
	}
	if m.rand == nil {
		m.rand = NewRand()
	}
	return m
}

// ShouldFail reports whether the next transfer should fail, true with
// probability faultRate.
func (m *FaultModel) ShouldFail() bool {
	return m.rand.Float64() < m.faultRate
}

// SelectReason picks a failure reason uniformly from the closed set.
func (m *FaultModel) SelectReason() FailureReason {
	return AllFailureReasons[m.rand.Intn(len(AllFailureReasons))]
}

// SimulateProcessing sleeps for the simulated processing duration and
// returns the elapsed milliseconds: a base delay uniform in [5, 20]ms,
// plus the configured extra latency, plus jitter uniform in [0, jitterMs].
func (m *FaultModel) SimulateProcessing(ctx context.Context) int {
	base := baseDelayMinMs + m.rand.Intn(baseDelayMaxMs-baseDelayMinMs+1)
	jitter := 0
	if m.jitterMs > 0 {
		jitter = m.rand.Intn(m.jitterMs + 1)
	}
	total := base + m.extraLatencyMs + jitter
	m.clock.Sleep(ctx, time.Duration(total)*time.Millisecond)
	return total
}

// CompensateTimeout models a caller that waits for an upstream timeout
// rather than failing instantly: it sleeps until total elapsed time
// reaches min(timeoutMs, 1000)ms and returns that capped value as the
// reported processing time.
func (m *FaultModel) CompensateTimeout(ctx context.Context, elapsedMs int) int {
	capped := m.timeoutMs
	if capped > maxTimeoutMs {
		capped = maxTimeoutMs
	}
	if remaining := capped - elapsedMs; remaining > 0 {
		m.clock.Sleep(ctx, time.Duration(remaining)*time.Millisecond)
	}
	return capped
}
