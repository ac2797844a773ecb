package host

import (
	"context"
	"errors"
	"fmt"
)

// Environment is the read-mostly view of the executing machine that checks
// query. It is sampled fresh on every call; implementations must not cache
// answers, so re-running a check reflects live state.
type Environment interface {
	// Dir returns the project directory relative paths are resolved against.
	Dir() string

	// LookPath reports whether command name resolves on the search path and
	// returns its location.
	LookPath(name string) (string, error)

	// Output runs a query command (such as a version query) and returns its
	// combined output with surrounding whitespace trimmed.
	Output(ctx context.Context, name string, args ...string) (string, error)

	// Exists reports whether path exists.
	Exists(path string) (bool, error)

	// ReadFile returns the contents of path.
	ReadFile(path string) ([]byte, error)

	// Run performs a side-effect action (install, sync) in the project
	// directory. Output is streamed to the operator; the returned string is
	// the captured tail of the output. A non-zero exit is returned as an
	// *ExitError.
	Run(ctx context.Context, name string, args ...string) (string, error)

	// Launch hands execution off to an external program with the
	// operator's terminal attached and waits for it to exit.
	Launch(ctx context.Context, name string, args ...string) error
}

// ErrNotFound is returned by LookPath when a command does not resolve.
var ErrNotFound = errors.New("command not found on PATH")

// ExitError is returned by Run when the action exits with a non-zero status.
type ExitError struct {
	Command string
	Code    int
	Err     error
}

// Error implements error.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with status %d", e.Command, e.Code)
}

// Unwrap returns the underlying error.
func (e *ExitError) Unwrap() error {
	return e.Err
}
