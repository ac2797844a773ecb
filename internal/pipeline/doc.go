// Package pipeline verifies, in a fixed order, that the host can run the
// reporting tool, installs the package manager when it is missing, syncs
// the tool's dependencies and hands off to the tool.
//
// A Pipeline evaluates its steps strictly in declared order. A step never
// returns a Go error; it reports a model.CheckResult that the pipeline
// classifies by the step's severity. The first fatal failure stops the
// run, warnings are collected and never change the exit status.
//
// The install and run commands share one catalog of step constructors
// (InstallSteps, RunSteps), so names and remediation text are the same in
// both and across shells. Presentation is injected through an Observer.
package pipeline
