package model

import (
	"time"
)

// UnexpectedStateRemediation is appended to every remediation list of a
// check that ended in KindUnexpectedState.
const UnexpectedStateRemediation = "Unexpected state: re-run with --verbose and check the diagnostic output above; if it persists, reinstall the affected component"

// CheckResult is what a single check reports back to the pipeline.
// A check never returns a Go error; every failure is expressed here.
type CheckResult struct {
	// Passed is true if the check succeeded.
	Passed bool

	// Skipped is true if the check was disabled for this run.
	Skipped bool

	// Kind classifies a failure. Empty for passing and skipped checks.
	Kind Kind

	// Message is the one-line human-readable outcome.
	Message string

	// Detail holds captured diagnostic text (command output), if any.
	Detail string

	// Remediation is the ordered list of suggestions, shown verbatim.
	Remediation []string
}

// Pass creates a passing check result.
func Pass(message string) CheckResult {
	return CheckResult{Passed: true, Message: message}
}

// Fail creates a failing check result.
func Fail(kind Kind, message string, remediation ...string) CheckResult {
	return CheckResult{Kind: kind, Message: message, Remediation: remediation}
}

// Skip creates a skipped check result.
func Skip(message string) CheckResult {
	return CheckResult{Skipped: true, Message: message}
}

// Unexpected creates a failing check result for a condition the check did
// not anticipate. The generic remediation entry is always appended.
func Unexpected(message string, remediation ...string) CheckResult {
	list := make([]string, 0, len(remediation)+1)
	list = append(list, remediation...)
	list = append(list, UnexpectedStateRemediation)
	return CheckResult{Kind: KindUnexpectedState, Message: message, Remediation: list}
}

// WithDetail returns a copy of r carrying captured diagnostic text.
func (r CheckResult) WithDetail(detail string) CheckResult {
	r.Detail = detail
	return r
}

// StepRecord is the classified outcome of one evaluated step.
type StepRecord struct {
	Index       int           `json:"index"`
	Name        string        `json:"name"`
	Severity    Severity      `json:"severity"`
	Status      Status        `json:"status"`
	Kind        Kind          `json:"kind,omitempty"`
	Message     string        `json:"message"`
	Detail      string        `json:"detail,omitempty"`
	Remediation []string      `json:"remediation,omitempty"`
	Duration    time.Duration `json:"duration_ns"`
}

// Mode names the command a pipeline run belongs to.
type Mode string

const (
	// ModeInstall verifies the host and installs the tool's dependencies.
	ModeInstall Mode = "install"
	// ModeRun performs the fast availability checks before launching.
	ModeRun Mode = "run"
)

// PipelineResult is the aggregate outcome of one pipeline run.
type PipelineResult struct {
	RunID     string    `json:"run_id"`
	Mode      Mode      `json:"mode"`
	Shell     string    `json:"shell"`
	StartedAt time.Time `json:"started_at"`

	// Completed is true if no fatal failure occurred and the run was not
	// cancelled.
	Completed bool `json:"completed"`

	// FailedStep is the step that halted execution, nil otherwise.
	FailedStep *StepRecord `json:"failed_step,omitempty"`

	// Warnings lists the steps that failed without halting, in order.
	Warnings []StepRecord `json:"warnings"`

	// Skipped lists the steps disabled for this run, in order.
	Skipped []StepRecord `json:"skipped,omitempty"`

	// Steps lists every evaluated step in execution order.
	Steps []StepRecord `json:"steps"`

	// Cancelled is true if the run stopped at a step boundary because the
	// context was cancelled.
	Cancelled bool `json:"cancelled,omitempty"`

	Duration time.Duration `json:"duration_ns"`
}

// NewPipelineResult creates an empty result for a run.
func NewPipelineResult(runID string, mode Mode, shell string) *PipelineResult {
	return &PipelineResult{
		RunID:     runID,
		Mode:      mode,
		Shell:     shell,
		StartedAt: time.Now(),
		Warnings:  make([]StepRecord, 0),
		Steps:     make([]StepRecord, 0),
	}
}

// Record appends an evaluated step and files it under warnings, skipped
// or the failed step according to its status.
func (r *PipelineResult) Record(record StepRecord) {
	r.Steps = append(r.Steps, record)
	switch record.Status {
	case StatusWarning:
		r.Warnings = append(r.Warnings, record)
	case StatusSkipped:
		r.Skipped = append(r.Skipped, record)
	case StatusFatal:
		failed := record
		r.FailedStep = &failed
	}
}

// ExitCode returns 0 unless a step failed fatally or the run was cancelled.
// Warnings never change the exit code.
func (r *PipelineResult) ExitCode() int {
	if r.FailedStep != nil || r.Cancelled {
		return 1
	}
	return 0
}

// Err returns a *StepError for the failed step, or nil.
func (r *PipelineResult) Err() error {
	if r.FailedStep == nil {
		return nil
	}
	return &StepError{
		Step:        r.FailedStep.Name,
		Kind:        r.FailedStep.Kind,
		Message:     r.FailedStep.Message,
		Remediation: r.FailedStep.Remediation,
	}
}

// Remediation returns the remediation list of the failed step, or nil
// if the run did not halt.
func (r *PipelineResult) Remediation() []string {
	if r.FailedStep == nil {
		return nil
	}
	return r.FailedStep.Remediation
}

// Classifications returns the status of every evaluated step, keyed by
// step name.
func (r *PipelineResult) Classifications() map[string]Status {
	out := make(map[string]Status, len(r.Steps))
	for _, s := range r.Steps {
		out[s.Name] = s.Status
	}
	return out
}
