package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Group is a Step that runs its member steps concurrently.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Member goroutines never return their error to the errgroup, so one
// failing sink does not cancel its siblings; the errors are collected and
// joined instead.
type Group struct {
	name        string
	steps       []Step
	concurrency int
	logger      *slog.Logger
}

// GroupOption configures a Group.
type GroupOption func(*Group)

// WithGroupLogger sets a custom logger for the group.
func WithGroupLogger(logger *slog.Logger) GroupOption {
	return func(g *Group) {
		g.logger = logger
	}
}

// WithConcurrency sets the maximum number of steps running at once.
// Default is the number of steps.
func WithConcurrency(n int) GroupOption {
	return func(g *Group) {
		if n > 0 {
			g.concurrency = n
		}
	}
}

// NewGroup creates a Group. Its name, when empty, is derived from the
// member step names.
func NewGroup(name string, steps []Step, opts ...GroupOption) *Group {
	g := &Group{
		name:  name,
		steps: steps,
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	if g.name == "" {
		names := make([]string, len(steps))
		for i, s := range steps {
			names[i] = s.Name()
		}
		g.name = "group(" + strings.Join(names, ",") + ")"
	}
	return g
}

// Name implements Step.
func (g *Group) Name() string {
	return g.name
}

// Len returns the number of member steps.
func (g *Group) Len() int {
	return len(g.steps)
}

// Do runs every member step and waits for all of them.
func (g *Group) Do(ctx context.Context, report *model.CrawlReport) error {
	if len(g.steps) == 0 {
		return nil
	}

	startTime := time.Now()

	var (
		eg   errgroup.Group
		mu   sync.Mutex
		errs = make([]error, len(g.steps))
	)
	if g.concurrency > 0 {
		eg.SetLimit(g.concurrency)
	}

	for i, step := range g.steps {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				errs[i] = fmt.Errorf("%s: %w", step.Name(), err)
				mu.Unlock()
				return nil
			}

			if err := step.Do(ctx, report); err != nil {
				g.logger.Warn("step failed",
					"group", g.name,
					"step", step.Name(),
					"error", err,
				)
				mu.Lock()
				errs[i] = fmt.Errorf("%s: %w", step.Name(), err)
				mu.Unlock()
			}
			return nil
		})
	}

	_ = eg.Wait() //nolint:errcheck // member errors are collected in errs

	g.logger.Debug("group complete",
		"group", g.name,
		"steps", len(g.steps),
		"elapsed", time.Since(startTime),
	)

	return errors.Join(errs...)
}
