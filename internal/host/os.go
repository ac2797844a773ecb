package host

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fortify-report/bootstrap/internal/shell"
	"golang.org/x/sync/errgroup"
)

// DefaultTailLines is the number of trailing output lines Run keeps as the
// diagnostic surfaced to the operator on failure.
const DefaultTailLines = 20

// OS is the Environment of the machine the bootstrap runs on.
type OS struct {
	dir       string
	adapter   *shell.Adapter
	stdin     io.Reader
	stdout    io.Writer
	stderr    io.Writer
	logger    *slog.Logger
	tailLines int
}

// Option configures an OS environment.
type Option func(*OS)

// WithStdio sets the streams used for streamed action output and for the
// launched tool.
func WithStdio(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(o *OS) {
		o.stdin = stdin
		o.stdout = stdout
		o.stderr = stderr
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *OS) {
		o.logger = logger
	}
}

// WithTailLines sets how many trailing output lines Run captures.
func WithTailLines(n int) Option {
	return func(o *OS) {
		if n > 0 {
			o.tailLines = n
		}
	}
}

// NewOS creates an Environment rooted at dir that creates processes through
// the given shell adapter.
func NewOS(dir string, adapter *shell.Adapter, opts ...Option) *OS {
	o := &OS{
		dir:       dir,
		adapter:   adapter,
		stdin:     os.Stdin,
		stdout:    os.Stdout,
		stderr:    os.Stderr,
		tailLines: DefaultTailLines,
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.adapter == nil {
		o.adapter = shell.New(shell.Detect())
	}

	return o
}

// Dir returns the project directory.
func (o *OS) Dir() string {
	return o.dir
}

// LookPath resolves name on PATH.
func (o *OS) LookPath(name string) (string, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return "", fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return "", err
	}
	return path, nil
}

// Output runs a query command and returns its decoded, trimmed output.
func (o *OS) Output(ctx context.Context, name string, args ...string) (string, error) {
	cmd := o.adapter.Command(ctx, name, args...)
	cmd.Dir = o.dir

	o.logger.Debug("querying command", "command", name, "args", args)

	out, err := cmd.CombinedOutput()
	text := strings.TrimSpace(o.adapter.Decode(out))
	if err != nil {
		return text, o.wrapExit(name, err)
	}
	return text, nil
}

// Exists reports whether path exists. Relative paths are resolved against
// the project directory.
func (o *OS) Exists(path string) (bool, error) {
	_, err := os.Stat(o.resolve(path))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// ReadFile reads path relative to the project directory.
func (o *OS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(o.resolve(path)) //nolint:gosec // project file paths come from the operator's config
}

// Run performs a side-effect action, streaming stdout and stderr to the
// operator while keeping the last lines of both as the diagnostic.
func (o *OS) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := o.adapter.Command(ctx, name, args...)
	cmd.Dir = o.dir
	cmd.Stdin = nil

	stdoutPipe, err := cmd.StdoutPipe()
	if err != nil {
		return "", err
	}
	stderrPipe, err := cmd.StderrPipe()
	if err != nil {
		return "", err
	}

	o.logger.Info("running action", "command", name, "args", args, "dir", o.dir)

	if err := cmd.Start(); err != nil {
		return "", err
	}

	tail := newTailBuffer(o.tailLines)

	// All reads must finish before cmd.Wait closes the pipes.
	var g errgroup.Group
	g.Go(func() error {
		return o.pump(stdoutPipe, o.stdout, tail)
	})
	g.Go(func() error {
		return o.pump(stderrPipe, o.stderr, tail)
	})
	pumpErr := g.Wait()

	waitErr := cmd.Wait()
	captured := tail.String()

	if waitErr != nil {
		return captured, o.wrapExit(name, waitErr)
	}
	if pumpErr != nil {
		return captured, fmt.Errorf("failed to read output of %s: %w", name, pumpErr)
	}
	return captured, nil
}

// Launch runs the tool with the operator's terminal attached. A non-zero
// exit of the tool is returned as *ExitError.
func (o *OS) Launch(ctx context.Context, name string, args ...string) error {
	cmd := o.adapter.Command(ctx, name, args...)
	cmd.Dir = o.dir
	cmd.Stdin = o.stdin
	cmd.Stdout = o.stdout
	cmd.Stderr = o.stderr

	o.logger.Info("launching tool", "command", name, "args", args, "dir", o.dir)

	return o.wrapExit(name, cmd.Run())
}

// pump copies decoded lines from r to w and into the tail buffer. After a
// read or write failure the rest of r is discarded so the child never
// blocks on a full pipe.
func (o *OS) pump(r io.Reader, w io.Writer, tail *tailBuffer) error {
	err := o.copyLines(r, w, tail)
	if err != nil {
		_, _ = io.Copy(io.Discard, r)
	}
	return err
}

func (o *OS) copyLines(r io.Reader, w io.Writer, tail *tailBuffer) error {
	scanner := bufio.NewScanner(o.adapter.DecodeReader(r))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		tail.Add(line)
		if w != nil {
			if err := o.adapter.Println(w, line); err != nil {
				return err
			}
		}
	}
	return scanner.Err()
}

func (o *OS) resolve(path string) string {
	if filepath.IsAbs(path) || o.dir == "" {
		return path
	}
	return filepath.Join(o.dir, path)
}

func (o *OS) wrapExit(name string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &ExitError{Command: name, Code: exitErr.ExitCode(), Err: err}
	}
	return err
}

// tailBuffer keeps the last n lines written to it. It is shared by the
// stdout and stderr pumps.
type tailBuffer struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func newTailBuffer(n int) *tailBuffer {
	return &tailBuffer{max: n, lines: make([]string, 0, n)}
}

func (t *tailBuffer) Add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.lines) == t.max {
		copy(t.lines, t.lines[1:])
		t.lines = t.lines[:t.max-1]
	}
	t.lines = append(t.lines, line)
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}
