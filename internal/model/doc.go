// Package model defines the data structures shared by the bootstrap
// pipeline, its steps and the report writers.
//
// This package contains the following main types:
//   - Severity: whether a failed step halts the pipeline (fatal) or not (warning)
//   - Status: the classification of one evaluated step
//   - Kind: the failure taxonomy, each with a sentinel error
//   - CheckResult: what a step's check reports
//   - StepRecord and PipelineResult: the classified outcome of a run
//
// The result types are serializable to JSON for the --json output.
package model
