package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/sitecrawl/internal/model"
)

// Step delivers a finished report somewhere.
//
// Design decision: Steps are values with a Name rather than bare funcs so
// that every log line and joined error can say which sink failed.
type Step interface {
	// Do delivers the report. It must not modify it.
	Do(ctx context.Context, report *model.CrawlReport) error

	// Name identifies the step in logs and errors.
	Name() string
}

// Outcome records what happened to one step during a run.
type Outcome struct {
	Step     string
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Result is the ordered list of step outcomes of one run.
type Result []Outcome

// Err joins the errors of every failed step, each prefixed with its name.
// A run cut short by its context also carries the context error.
func (r Result) Err() error {
	var errs []error
	for _, o := range r {
		if o.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", o.Step, o.Err))
		}
	}
	return errors.Join(errs...)
}

// Failed returns the names of steps that returned an error.
func (r Result) Failed() []string {
	var names []string
	for _, o := range r {
		if o.Err != nil && !o.Skipped {
			names = append(names, o.Step)
		}
	}
	return names
}

// Pipeline runs steps one after another.
type Pipeline struct {
	steps  []Step
	logger *slog.Logger

	// keepGoing runs the remaining steps after a failure.
	keepGoing bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger for step progress.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError runs every step even after one fails.
// Delivery sets it: an unreachable callback must not keep the report off
// stdout. Without it the first failure skips the rest.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.keepGoing = continueOnError
	}
}

// New creates an empty Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends steps in order.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Run executes the steps in order and returns one Outcome per step.
//
// ctx is checked between steps only; a step owns its own timeouts. Steps
// not reached because of cancellation or an earlier failure are reported
// as skipped.
func (p *Pipeline) Run(ctx context.Context, report *model.CrawlReport) Result {
	result := make(Result, 0, len(p.steps))
	stopped := false

	for _, step := range p.steps {
		name := step.Name()
		if stopped {
			result = append(result, Outcome{Step: name, Skipped: true})
			continue
		}
		if err := ctx.Err(); err != nil {
			p.logger.Warn("pipeline cancelled", "step", name, "reason", err)
			result = append(result, Outcome{Step: name, Skipped: true, Err: err})
			stopped = true
			continue
		}

		start := time.Now()
		err := step.Do(ctx, report)
		out := Outcome{Step: name, Err: err, Duration: time.Since(start)}
		result = append(result, out)

		if err != nil {
			p.logger.Error("step failed", "step", name, "error", err)
			stopped = !p.keepGoing
			continue
		}
		p.logger.Debug("step completed", "step", name, "duration", out.Duration)
	}
	return result
}

// Execute runs the pipeline and returns the joined step errors.
func (p *Pipeline) Execute(ctx context.Context, report *model.CrawlReport) error {
	return p.Run(ctx, report).Err()
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, 0, len(p.steps))
	for _, step := range p.steps {
		names = append(names, step.Name())
	}
	return names
}
