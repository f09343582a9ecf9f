package crawler

import (
	"context"

	"github.com/nao1215/sitecrawl/internal/config"
	"github.com/nao1215/sitecrawl/internal/fetch"
)

// Politeness spaces successive page fetches with a randomized delay.
type Politeness struct {
	delayer fetch.Delayer
	delay   config.DelayRange
}

// NewPoliteness creates a controller that waits a random duration in r
// between pages. A nil delayer disables waiting.
func NewPoliteness(delayer fetch.Delayer, r config.DelayRange) *Politeness {
	if delayer == nil {
		delayer = fetch.NoDelay{}
	}
	return &Politeness{delayer: delayer, delay: r}
}

// Between waits before the next fetch. It returns immediately when the
// budget is spent or nothing is queued, so the run never ends with a delay.
// The only error is the context error when ctx ends during the wait.
func (p *Politeness) Between(ctx context.Context, count, budget, pending int) error {
	if count >= budget || pending == 0 {
		return nil
	}
	return p.delayer.Delay(ctx, p.delay)
}
