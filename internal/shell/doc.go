// Package shell provides the per-shell adapter used by the bootstrap.
//
// The same check sequence runs from a POSIX shell and from a Windows
// console. The Adapter only translates line output (line endings) and
// process invocation (batch-file routing, console encoding of captured
// output, candidate command names); the pipeline itself is shared.
package shell
