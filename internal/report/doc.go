// Package report renders pipeline results.
//
// This package contains writers for different output formats:
//   - Console: status lines while the pipeline runs and a closing summary
//   - JSONWriter: structured JSON output for scripts and CI
//   - MarkdownWriter: a Markdown report for support tickets
//
// Console is injected into the pipeline as its observer, so the pipeline
// never touches color codes or line endings itself.
package report
