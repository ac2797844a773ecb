package model

import (
	"errors"
	"fmt"
)

// Kind names the class of failure a check detected.
type Kind string

const (
	// KindNone is used for passing and skipped checks.
	KindNone Kind = ""

	// KindMissingDependency means a required command or package manager is
	// absent. Always fatal; remediation lists install instructions.
	KindMissingDependency Kind = "MissingDependency"

	// KindVersionBelowMinimum means the runtime resolves but is older than
	// the configured minimum. Warning only.
	KindVersionBelowMinimum Kind = "VersionBelowMinimum"

	// KindManifestMissing means the dependency declaration file is absent.
	KindManifestMissing Kind = "ManifestMissing"

	// KindSyncFailure means the dependency sync action exited non-zero.
	KindSyncFailure Kind = "SyncFailure"

	// KindOptionalArtifactMissing means the entry point or the
	// configuration file is absent. Warning only.
	KindOptionalArtifactMissing Kind = "OptionalArtifactMissing"

	// KindUnexpectedState covers everything a check did not anticipate:
	// malformed command output, unreadable files, recovered panics.
	KindUnexpectedState Kind = "UnexpectedState"
)

// Sentinel errors, one per Kind, so callers can use errors.Is on a StepError.
var (
	ErrMissingDependency       = errors.New("missing dependency")
	ErrVersionBelowMinimum     = errors.New("version below minimum")
	ErrManifestMissing         = errors.New("manifest missing")
	ErrSyncFailure             = errors.New("dependency sync failed")
	ErrOptionalArtifactMissing = errors.New("optional artifact missing")
	ErrUnexpectedState         = errors.New("unexpected state")
)

// Sentinel returns the sentinel error for the kind, or nil for KindNone.
func (k Kind) Sentinel() error {
	switch k {
	case KindMissingDependency:
		return ErrMissingDependency
	case KindVersionBelowMinimum:
		return ErrVersionBelowMinimum
	case KindManifestMissing:
		return ErrManifestMissing
	case KindSyncFailure:
		return ErrSyncFailure
	case KindOptionalArtifactMissing:
		return ErrOptionalArtifactMissing
	case KindUnexpectedState:
		return ErrUnexpectedState
	default:
		return nil
	}
}

// StepError describes the step that halted a pipeline run.
type StepError struct {
	Step        string
	Kind        Kind
	Message     string
	Remediation []string
}

// Error implements error.
func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s", e.Step, e.Message)
}

// Unwrap returns the sentinel error of the failure kind.
func (e *StepError) Unwrap() error {
	return e.Kind.Sentinel()
}
