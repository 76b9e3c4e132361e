package collector

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedPacer_Sleeps(t *testing.T) {
	start := time.Now()
	assert.NoError(t, FixedPacer{Delay: 20 * time.Millisecond}.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestJitterPacer_WithinRange(t *testing.T) {
	p := JitterPacer{Min: 5 * time.Millisecond, Max: 15 * time.Millisecond}
	start := time.Now()
	assert.NoError(t, p.Wait(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 5*time.Millisecond)
}

func TestPacer_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, FixedPacer{Delay: time.Hour}.Wait(ctx), context.Canceled)
	assert.ErrorIs(t, JitterPacer{Min: time.Hour, Max: 2 * time.Hour}.Wait(ctx), context.Canceled)
}

func TestFixedPacer_ZeroDelay(t *testing.T) {
	assert.NoError(t, FixedPacer{}.Wait(context.Background()))
}
