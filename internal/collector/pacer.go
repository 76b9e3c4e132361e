package collector

import (
	"context"
	"math/rand/v2"
	"time"
)

// Pacer delays the caller before an outbound provider request.
type Pacer interface {
	Wait(ctx context.Context) error
}

// FixedPacer sleeps for Delay.
type FixedPacer struct {
	Delay time.Duration
}

func (p FixedPacer) Wait(ctx context.Context) error {
	return sleep(ctx, p.Delay)
}

// JitterPacer sleeps for a uniformly random duration in [Min, Max).
type JitterPacer struct {
	Min time.Duration
	Max time.Duration
}

func (p JitterPacer) Wait(ctx context.Context) error {
	d := p.Min
	if span := p.Max - p.Min; span > 0 {
		d += time.Duration(rand.Int64N(int64(span)))
	}
	return sleep(ctx, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
