// Package hosttest provides a scripted host.Environment for tests.
package hosttest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fortify-report/bootstrap/internal/host"
)

// Action scripts the effect of a Run or Launch call. It may mutate the
// fake (for example to make an installed command resolvable).
type Action func(f *Fake) (string, error)

type response struct {
	output string
	err    error
}

// Fake is an in-memory host.Environment. Commands are keyed by the base
// name of the executable followed by the arguments, separated by spaces,
// for example "python3 --version".
type Fake struct {
	mu       sync.Mutex
	dir      string
	commands map[string]string
	outputs  map[string]response
	files    map[string][]byte
	actions  map[string]Action
	calls    []string
	launches []string
}

// New creates an empty fake rooted at dir.
func New(dir string) *Fake {
	return &Fake{
		dir:      dir,
		commands: make(map[string]string),
		outputs:  make(map[string]response),
		files:    make(map[string][]byte),
		actions:  make(map[string]Action),
	}
}

// AddCommand makes name resolve to /usr/bin/<name>.
func (f *Fake) AddCommand(name string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands[name] = "/usr/bin/" + name
	return f
}

// RemoveCommand makes name stop resolving.
func (f *Fake) RemoveCommand(name string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.commands, name)
	return f
}

// SetOutput scripts the result of an Output call.
func (f *Fake) SetOutput(cmdline, output string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outputs[cmdline] = response{output: output, err: err}
	return f
}

// AddFile creates a file in the project directory.
func (f *Fake) AddFile(path, content string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[filepath.ToSlash(path)] = []byte(content)
	return f
}

// RemoveFile deletes a file.
func (f *Fake) RemoveFile(path string) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.files, filepath.ToSlash(path))
	return f
}

// OnRun scripts the effect of a Run or Launch call.
func (f *Fake) OnRun(cmdline string, action Action) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions[cmdline] = action
	return f
}

// Calls returns every Output, Run and Launch command line in call order.
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// CallCount returns how often cmdline was invoked.
func (f *Fake) CallCount(cmdline string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == cmdline {
			n++
		}
	}
	return n
}

// Launches returns every Launch command line in call order.
func (f *Fake) Launches() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.launches...)
}

// Dir implements host.Environment.
func (f *Fake) Dir() string {
	return f.dir
}

// LookPath implements host.Environment.
func (f *Fake) LookPath(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if path, ok := f.commands[name]; ok {
		return path, nil
	}
	return "", fmt.Errorf("%s: %w", name, host.ErrNotFound)
}

// Output implements host.Environment.
func (f *Fake) Output(_ context.Context, name string, args ...string) (string, error) {
	line := f.record(name, args)

	f.mu.Lock()
	defer f.mu.Unlock()
	resp, ok := f.outputs[line]
	if !ok {
		return "", &host.ExitError{Command: name, Code: 127}
	}
	return resp.output, resp.err
}

// Exists implements host.Environment.
func (f *Fake) Exists(path string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.files[filepath.ToSlash(path)]
	return ok, nil
}

// ReadFile implements host.Environment.
func (f *Fake) ReadFile(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[filepath.ToSlash(path)]
	if !ok {
		return nil, fmt.Errorf("open %s: file does not exist", path)
	}
	return append([]byte(nil), data...), nil
}

// Run implements host.Environment. Unscripted actions succeed silently.
func (f *Fake) Run(_ context.Context, name string, args ...string) (string, error) {
	line := f.record(name, args)
	return f.act(line)
}

// Launch implements host.Environment.
func (f *Fake) Launch(_ context.Context, name string, args ...string) error {
	line := f.record(name, args)

	f.mu.Lock()
	f.launches = append(f.launches, line)
	f.mu.Unlock()

	_, err := f.act(line)
	return err
}

func (f *Fake) act(line string) (string, error) {
	f.mu.Lock()
	action, ok := f.actions[line]
	f.mu.Unlock()

	if !ok {
		return "", nil
	}
	return action(f)
}

func (f *Fake) record(name string, args []string) string {
	line := strings.Join(append([]string{filepath.Base(name)}, args...), " ")

	f.mu.Lock()
	f.calls = append(f.calls, line)
	f.mu.Unlock()

	return line
}

var _ host.Environment = (*Fake)(nil)
