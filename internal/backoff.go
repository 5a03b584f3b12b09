package internal

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	backoffInitialInterval = 1 * time.Second
	backoffMaxInterval     = 30 * time.Second
	backoffMultiplier      = 2.0
)

// ReconnectPolicy computes the wait before each stream reconnect attempt.
// Delays grow exponentially from 1s to a 30s ceiling and Reset restores
// first-attempt behavior. One policy belongs to exactly one stream; it is not
// safe for concurrent use.
type ReconnectPolicy struct {
	b *backoff.ExponentialBackOff
}

// NewReconnectPolicy returns a policy in its initial state.
func NewReconnectPolicy() *ReconnectPolicy {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = backoffInitialInterval
	b.MaxInterval = backoffMaxInterval
	b.Multiplier = backoffMultiplier
	// Deterministic delays; reconnects are per-stream, so thundering-herd
	// jitter buys nothing here.
	b.RandomizationFactor = 0
	// The stream retries until closed, never giving up on elapsed time.
	b.MaxElapsedTime = 0
	b.Reset()
	return &ReconnectPolicy{b: b}
}

// Next returns the wait before the next reconnect attempt. Successive calls
// without Reset return non-decreasing durations up to the ceiling.
func (p *ReconnectPolicy) Next() time.Duration {
	d := p.b.NextBackOff()
	if d == backoff.Stop {
		return backoffMaxInterval
	}
	return d
}

// Reset returns the policy to its initial state, as if no attempt had failed.
func (p *ReconnectPolicy) Reset() {
	p.b.Reset()
}
