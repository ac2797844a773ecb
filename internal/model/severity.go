package model

import (
	"encoding/json"
	"fmt"
)

// Severity decides what a failed step does to the rest of the pipeline.
type Severity int

const (
	// SeverityWarning marks a step whose failure is reported but never
	// halts the pipeline or changes the exit status.
	// Examples: runtime older than the minimum, missing optional config file.
	SeverityWarning Severity = iota

	// SeverityFatal marks a step whose failure halts the pipeline.
	// No later step is evaluated after a fatal failure.
	SeverityFatal
)

// String returns the lower-case name of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the severity as its name.
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a severity name.
func (s *Severity) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	switch name {
	case "warning":
		*s = SeverityWarning
	case "fatal":
		*s = SeverityFatal
	default:
		return fmt.Errorf("unknown severity %q", name)
	}
	return nil
}

// Status is the classification of one evaluated step.
type Status string

const (
	// StatusPass means the check succeeded.
	StatusPass Status = "pass"
	// StatusWarning means a warning-severity check failed.
	StatusWarning Status = "warning"
	// StatusFatal means a fatal-severity check failed and the pipeline halted.
	StatusFatal Status = "fatal"
	// StatusSkipped means the step was disabled for this run (for example
	// by --skip-version-check). A skipped step is neither a pass nor a failure.
	StatusSkipped Status = "skipped"
)

// Classify maps a check outcome onto a status using the step's severity.
func Classify(severity Severity, result CheckResult) Status {
	switch {
	case result.Skipped:
		return StatusSkipped
	case result.Passed:
		return StatusPass
	case severity == SeverityFatal:
		return StatusFatal
	default:
		return StatusWarning
	}
}
