package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fortify-report/bootstrap/internal/host"
	"github.com/fortify-report/bootstrap/internal/model"
)

// Step defines the interface that all bootstrap steps must implement.
// A step inspects the host, never returns a Go error, and is evaluated at
// most once per run.
type Step interface {
	// Name returns the human label shown on the status line.
	Name() string

	// Severity decides whether a failure halts the pipeline.
	Severity() model.Severity

	// Remediation returns the declared suggestions shown when the check
	// fails, in display order.
	Remediation() []string

	// Check inspects env and reports the outcome.
	Check(ctx context.Context, env host.Environment) model.CheckResult
}

// Observer receives every step record as soon as it is classified.
// The console printer implements it so the pipeline stays free of
// presentation concerns.
type Observer interface {
	StepFinished(index, total int, record model.StepRecord)
}

// Pipeline orchestrates the execution of an ordered list of steps.
type Pipeline struct {
	// steps contains the ordered list of steps to execute.
	steps []Step

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// observer is notified of every classified step, may be nil.
	observer Observer

	mode  model.Mode
	shell string
	runID string
}

// Option is a function that configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets a custom logger for the pipeline.
// If not set, slog.Default() is used.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithObserver sets the observer notified after each step.
func WithObserver(observer Observer) Option {
	return func(p *Pipeline) {
		p.observer = observer
	}
}

// WithMode records which command the run belongs to.
func WithMode(mode model.Mode) Option {
	return func(p *Pipeline) {
		p.mode = mode
	}
}

// WithShell records the invocation context of the run.
func WithShell(name string) Option {
	return func(p *Pipeline) {
		p.shell = name
	}
}

// WithRunID sets the identifier carried by the result.
func WithRunID(id string) Option {
	return func(p *Pipeline) {
		p.runID = id
	}
}

// New creates a new Pipeline with the given options.
// Steps should be added using AddStep after creation.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps: make([]Step, 0),
		mode:  model.ModeInstall,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.logger == nil {
		p.logger = slog.Default()
	}

	return p
}

// AddStep appends a step to the pipeline.
// Steps are executed in the order they are added.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends multiple steps to the pipeline.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Run evaluates the steps in declared order against env.
//
// The first fatal failure stops the run; warnings are collected and never
// stop it. Cancellation is honored only at step boundaries: when ctx is
// done before a step starts, Run returns the partial result and ctx.Err().
func (p *Pipeline) Run(ctx context.Context, env host.Environment) (*model.PipelineResult, error) {
	result := model.NewPipelineResult(p.runID, p.mode, p.shell)
	total := len(p.steps)

	for i, step := range p.steps {
		select {
		case <-ctx.Done():
			p.logger.Warn("pipeline cancelled",
				"step", step.Name(),
				"reason", ctx.Err(),
			)
			result.Cancelled = true
			result.Duration = time.Since(result.StartedAt)
			return result, ctx.Err()
		default:
		}

		p.logger.Info("executing step",
			"step", step.Name(),
			"index", i+1,
			"total", total,
		)

		started := time.Now()
		check := p.evaluate(ctx, step, env)
		record := model.StepRecord{
			Index:       i + 1,
			Name:        step.Name(),
			Severity:    step.Severity(),
			Status:      model.Classify(step.Severity(), check),
			Kind:        check.Kind,
			Message:     check.Message,
			Detail:      check.Detail,
			Remediation: check.Remediation,
			Duration:    time.Since(started),
		}
		result.Record(record)

		if p.observer != nil {
			p.observer.StepFinished(i+1, total, record)
		}

		switch record.Status {
		case model.StatusFatal:
			p.logger.Error("step failed",
				"step", record.Name,
				"kind", record.Kind,
				"message", record.Message,
			)
			result.Cancelled = ctx.Err() != nil
			result.Duration = time.Since(result.StartedAt)
			return result, nil
		case model.StatusWarning:
			p.logger.Warn("step warning",
				"step", record.Name,
				"kind", record.Kind,
				"message", record.Message,
			)
		default:
			p.logger.Debug("step completed",
				"step", record.Name,
				"status", record.Status,
			)
		}
	}

	result.Completed = true
	result.Duration = time.Since(result.StartedAt)
	return result, nil
}

// evaluate runs one check and normalizes its result. A panicking check
// and a failure without a kind are both reported as UnexpectedState.
func (p *Pipeline) evaluate(ctx context.Context, step Step, env host.Environment) (result model.CheckResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("step panicked", "step", step.Name(), "panic", r)
			result = model.Unexpected(fmt.Sprintf("check aborted: %v", r), step.Remediation()...)
		}
	}()

	result = step.Check(ctx, env)
	if result.Passed || result.Skipped {
		return result
	}

	if result.Kind == model.KindNone {
		unexpected := model.Unexpected(result.Message, result.Remediation...)
		unexpected.Detail = result.Detail
		result = unexpected
	}
	if len(result.Remediation) == 0 {
		result.Remediation = step.Remediation()
	}
	return result
}

// StepCount returns the number of steps in the pipeline.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the names of all steps in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
