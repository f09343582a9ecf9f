package fetch

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/nao1215/sitecrawl/internal/config"
)

// Delayer pauses for a duration drawn from a range.
// It returns early with the context error when ctx is cancelled.
type Delayer interface {
	Delay(ctx context.Context, r config.DelayRange) error
}

// RandomDelayer draws uniformly distributed delays.
type RandomDelayer struct {
	mu    sync.Mutex
	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

// NewRandomDelayer creates a RandomDelayer. A nil rng uses a time-seeded source.
func NewRandomDelayer(rng *rand.Rand) *RandomDelayer {
	if rng == nil {
		seed := uint64(time.Now().UnixNano()) //nolint:gosec // jitter only
		rng = rand.New(rand.NewPCG(seed, seed>>1))
	}
	return &RandomDelayer{rng: rng, sleep: Sleep}
}

// Duration draws a delay in [r.Min, r.Max].
func (d *RandomDelayer) Duration(r config.DelayRange) time.Duration {
	if r.Max <= r.Min {
		return r.Min
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return r.Min + time.Duration(d.rng.Int64N(int64(r.Max-r.Min)+1))
}

// Delay sleeps for a duration drawn from r.
func (d *RandomDelayer) Delay(ctx context.Context, r config.DelayRange) error {
	return d.sleep(ctx, d.Duration(r))
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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

// NoDelay never pauses. It is useful for tests and for local targets.
type NoDelay struct{}

// Delay returns the context error, if any, without waiting.
func (NoDelay) Delay(ctx context.Context, _ config.DelayRange) error {
	return ctx.Err()
}
