package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer inserts a fixed pause between sequential upstream calls, with
// optional jitter. A zero-delay Pacer never blocks.
type Pacer struct {
	delay  time.Duration
	jitter float64 // 0.0 to 1.0
}

// NewPacer creates a pacer that waits delay ± jitter×delay per call.
// Jitter is clamped to [0, 1].
func NewPacer(delay time.Duration, jitter float64) *Pacer {
	if delay < 0 {
		delay = 0
	}
	if jitter < 0 {
		jitter = 0
	} else if jitter > 1 {
		jitter = 1
	}
	return &Pacer{delay: delay, jitter: jitter}
}

// Delay is the next pause length, jitter applied.
func (p *Pacer) Delay() time.Duration {
	if p == nil || p.delay == 0 {
		return 0
	}
	if p.jitter == 0 {
		return p.delay
	}
	factor := (rand.Float64() * 2) - 1.0 // -1.0 to 1.0
	return p.delay + time.Duration(float64(p.delay)*p.jitter*factor)
}

// Wait blocks for the next pause, or until the context is canceled.
func (p *Pacer) Wait(ctx context.Context) error {
	d := p.Delay()
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
