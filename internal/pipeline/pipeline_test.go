package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"slices"
	"testing"

	"github.com/fortify-report/bootstrap/internal/host"
	"github.com/fortify-report/bootstrap/internal/host/hosttest"
	"github.com/fortify-report/bootstrap/internal/model"
)

// mockStep is a test helper that implements the Step interface.
type mockStep struct {
	name        string
	severity    model.Severity
	remediation []string
	checkFunc   func(ctx context.Context, env host.Environment) model.CheckResult
	callCount   int
}

// Name implements Step.Name.
func (m *mockStep) Name() string {
	return m.name
}

// Severity implements Step.Severity.
func (m *mockStep) Severity() model.Severity {
	return m.severity
}

// Remediation implements Step.Remediation.
func (m *mockStep) Remediation() []string {
	return m.remediation
}

// Check implements Step.Check.
func (m *mockStep) Check(ctx context.Context, env host.Environment) model.CheckResult {
	m.callCount++
	if m.checkFunc != nil {
		return m.checkFunc(ctx, env)
	}
	return model.Pass(m.name + " ok")
}

// recordingObserver collects every step it is notified about.
type recordingObserver struct {
	indexes []int
	totals  []int
	records []model.StepRecord
}

func (o *recordingObserver) StepFinished(index, total int, record model.StepRecord) {
	o.indexes = append(o.indexes, index)
	o.totals = append(o.totals, total)
	o.records = append(o.records, record)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func failing(kind model.Kind, remediation ...string) func(context.Context, host.Environment) model.CheckResult {
	return func(context.Context, host.Environment) model.CheckResult {
		return model.Fail(kind, "it broke", remediation...)
	}
}

// TestPipelineNew tests the Pipeline constructor.
func TestPipelineNew(t *testing.T) {
	t.Parallel()

	t.Run("creates pipeline with default settings", func(t *testing.T) {
		t.Parallel()

		p := New()

		if p == nil {
			t.Fatal("expected non-nil pipeline")
		}
		if p.StepCount() != 0 {
			t.Errorf("expected 0 steps, got %d", p.StepCount())
		}
		if p.mode != model.ModeInstall {
			t.Errorf("expected install mode by default, got %q", p.mode)
		}
		if p.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies options", func(t *testing.T) {
		t.Parallel()

		obs := &recordingObserver{}
		p := New(WithMode(model.ModeRun), WithShell("windows"), WithRunID("abc"), WithObserver(obs))

		if p.mode != model.ModeRun {
			t.Errorf("expected run mode, got %q", p.mode)
		}
		if p.shell != "windows" {
			t.Errorf("expected windows shell, got %q", p.shell)
		}
		if p.runID != "abc" {
			t.Errorf("expected run id abc, got %q", p.runID)
		}
		if p.observer != obs {
			t.Error("expected observer to be set")
		}
	})
}

// TestPipelineAddStep tests adding steps to the pipeline.
func TestPipelineAddStep(t *testing.T) {
	t.Parallel()

	p := New()
	p.AddStep(&mockStep{name: "first"})
	p.AddSteps(&mockStep{name: "second"}, &mockStep{name: "third"})

	if p.StepCount() != 3 {
		t.Errorf("expected 3 steps, got %d", p.StepCount())
	}

	want := []string{"first", "second", "third"}
	if got := p.StepNames(); !slices.Equal(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// TestPipelineRun tests halting, warning and recovery semantics.
func TestPipelineRun(t *testing.T) {
	t.Parallel()

	env := hosttest.New(t.TempDir())

	t.Run("executes all steps in order", func(t *testing.T) {
		t.Parallel()

		var order []string
		step := func(name string) *mockStep {
			return &mockStep{name: name, checkFunc: func(context.Context, host.Environment) model.CheckResult {
				order = append(order, name)
				return model.Pass(name)
			}}
		}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(step("a"), step("b"), step("c"))

		result, err := p.Run(context.Background(), env)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.Completed {
			t.Error("expected completed result")
		}
		if !slices.Equal(order, []string{"a", "b", "c"}) {
			t.Errorf("expected order a b c, got %v", order)
		}
		if result.ExitCode() != 0 {
			t.Errorf("expected exit code 0, got %d", result.ExitCode())
		}
	})

	t.Run("fatal failure stops subsequent steps", func(t *testing.T) {
		t.Parallel()

		first := &mockStep{name: "first", severity: model.SeverityFatal,
			remediation: []string{"do this"},
			checkFunc:   failing(model.KindMissingDependency, "do this")}
		second := &mockStep{name: "second"}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(first, second)

		result, err := p.Run(context.Background(), env)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if second.callCount != 0 {
			t.Errorf("expected second step not to run, ran %d times", second.callCount)
		}
		if result.FailedStep == nil || result.FailedStep.Name != "first" {
			t.Fatalf("expected first to be the failed step, got %+v", result.FailedStep)
		}
		if result.Completed {
			t.Error("expected result not to be completed")
		}
		if result.ExitCode() != 1 {
			t.Errorf("expected exit code 1, got %d", result.ExitCode())
		}
		if !errors.Is(result.Err(), model.ErrMissingDependency) {
			t.Errorf("expected ErrMissingDependency, got %v", result.Err())
		}
	})

	t.Run("warnings do not stop the pipeline and keep exit code 0", func(t *testing.T) {
		t.Parallel()

		warn := &mockStep{name: "optional", severity: model.SeverityWarning,
			checkFunc: failing(model.KindOptionalArtifactMissing, "create it")}
		last := &mockStep{name: "last"}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(warn, last)

		result, err := p.Run(context.Background(), env)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if last.callCount != 1 {
			t.Errorf("expected last step to run once, ran %d times", last.callCount)
		}
		if len(result.Warnings) != 1 {
			t.Fatalf("expected 1 warning, got %d", len(result.Warnings))
		}
		if result.ExitCode() != 0 {
			t.Errorf("expected exit code 0, got %d", result.ExitCode())
		}
	})

	t.Run("skipped steps are recorded", func(t *testing.T) {
		t.Parallel()

		skip := &mockStep{name: "version", checkFunc: func(context.Context, host.Environment) model.CheckResult {
			return model.Skip("disabled")
		}}

		p := New(WithLogger(quietLogger()))
		p.AddStep(skip)

		result, _ := p.Run(context.Background(), env)
		if len(result.Skipped) != 1 || result.Steps[0].Status != model.StatusSkipped {
			t.Errorf("expected one skipped step, got %+v", result.Steps)
		}
	})

	t.Run("panic in a check becomes an unexpected state failure", func(t *testing.T) {
		t.Parallel()

		boom := &mockStep{name: "boom", severity: model.SeverityFatal,
			remediation: []string{"reinstall"},
			checkFunc: func(context.Context, host.Environment) model.CheckResult {
				panic("malformed output")
			}}
		after := &mockStep{name: "after"}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(boom, after)

		result, err := p.Run(context.Background(), env)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.FailedStep == nil || result.FailedStep.Kind != model.KindUnexpectedState {
			t.Fatalf("expected unexpected state failure, got %+v", result.FailedStep)
		}
		want := []string{"reinstall", model.UnexpectedStateRemediation}
		if !slices.Equal(result.FailedStep.Remediation, want) {
			t.Errorf("expected %v, got %v", want, result.FailedStep.Remediation)
		}
		if after.callCount != 0 {
			t.Error("expected no step after the panic to run")
		}
	})

	t.Run("panic in a warning step does not halt", func(t *testing.T) {
		t.Parallel()

		boom := &mockStep{name: "boom", severity: model.SeverityWarning,
			checkFunc: func(context.Context, host.Environment) model.CheckResult {
				panic("bad")
			}}
		after := &mockStep{name: "after"}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(boom, after)

		result, _ := p.Run(context.Background(), env)
		if after.callCount != 1 {
			t.Error("expected the next step to run")
		}
		if len(result.Warnings) != 1 || result.Warnings[0].Kind != model.KindUnexpectedState {
			t.Errorf("expected unexpected state warning, got %+v", result.Warnings)
		}
	})

	t.Run("failure without kind is normalized", func(t *testing.T) {
		t.Parallel()

		vague := &mockStep{name: "vague", severity: model.SeverityWarning,
			checkFunc: func(context.Context, host.Environment) model.CheckResult {
				return model.CheckResult{Message: "???"}
			}}

		p := New(WithLogger(quietLogger()))
		p.AddStep(vague)

		result, _ := p.Run(context.Background(), env)
		got := result.Steps[0]
		if got.Kind != model.KindUnexpectedState {
			t.Errorf("expected unexpected state kind, got %q", got.Kind)
		}
		if !slices.Contains(got.Remediation, model.UnexpectedStateRemediation) {
			t.Errorf("expected generic remediation, got %v", got.Remediation)
		}
	})

	t.Run("failure without remediation uses the declared list", func(t *testing.T) {
		t.Parallel()

		bare := &mockStep{name: "bare", severity: model.SeverityFatal,
			remediation: []string{"declared"},
			checkFunc:   failing(model.KindManifestMissing)}

		p := New(WithLogger(quietLogger()))
		p.AddStep(bare)

		result, _ := p.Run(context.Background(), env)
		if !slices.Equal(result.Remediation(), []string{"declared"}) {
			t.Errorf("expected declared remediation, got %v", result.Remediation())
		}
	})
}

// TestPipelineCancellation tests cancellation at step boundaries.
func TestPipelineCancellation(t *testing.T) {
	t.Parallel()

	t.Run("stops before the next step", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		first := &mockStep{name: "first", checkFunc: func(context.Context, host.Environment) model.CheckResult {
			cancel()
			return model.Pass("done")
		}}
		second := &mockStep{name: "second"}

		p := New(WithLogger(quietLogger()))
		p.AddSteps(first, second)

		result, err := p.Run(ctx, hosttest.New(t.TempDir()))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if second.callCount != 0 {
			t.Error("expected second step not to run")
		}
		if len(result.Steps) != 1 {
			t.Errorf("expected 1 recorded step, got %d", len(result.Steps))
		}
		if !result.Cancelled || result.ExitCode() != 1 {
			t.Errorf("expected cancelled result with exit code 1, got %+v", result)
		}
	})

	t.Run("already cancelled context runs nothing", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		step := &mockStep{name: "first"}
		p := New(WithLogger(quietLogger()))
		p.AddStep(step)

		if _, err := p.Run(ctx, hosttest.New(t.TempDir())); err == nil {
			t.Error("expected error")
		}
		if step.callCount != 0 {
			t.Error("expected step not to run")
		}
	})
}

// TestPipelineObserver tests observer notification.
func TestPipelineObserver(t *testing.T) {
	t.Parallel()

	obs := &recordingObserver{}
	p := New(WithLogger(quietLogger()), WithObserver(obs))
	p.AddSteps(
		&mockStep{name: "a"},
		&mockStep{name: "b", severity: model.SeverityWarning, checkFunc: failing(model.KindOptionalArtifactMissing, "x")},
		&mockStep{name: "c", severity: model.SeverityFatal, checkFunc: failing(model.KindSyncFailure, "y")},
		&mockStep{name: "d"},
	)

	if _, err := p.Run(context.Background(), hosttest.New(t.TempDir())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !slices.Equal(obs.indexes, []int{1, 2, 3}) {
		t.Errorf("expected indexes 1 2 3, got %v", obs.indexes)
	}
	if !slices.Equal(obs.totals, []int{4, 4, 4}) {
		t.Errorf("expected total 4 each time, got %v", obs.totals)
	}
	wantStatus := []model.Status{model.StatusPass, model.StatusWarning, model.StatusFatal}
	for i, r := range obs.records {
		if r.Status != wantStatus[i] {
			t.Errorf("record %d: expected %s, got %s", i, wantStatus[i], r.Status)
		}
	}
}
