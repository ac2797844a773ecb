package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// Kind identifies an invocation context.
type Kind string

const (
	// POSIX covers sh/bash/zsh on Linux and macOS.
	POSIX Kind = "posix"
	// Windows covers cmd.exe and PowerShell.
	Windows Kind = "windows"
)

// WaitDelay is how long an interrupted process may take to exit before it
// is killed.
const WaitDelay = 10 * time.Second

// ErrUnknownKind is returned by Parse for an unrecognized shell name.
var ErrUnknownKind = errors.New("unknown shell kind: use posix or windows")

// ErrUnknownEncoding is returned when a console encoding name is not known.
var ErrUnknownEncoding = errors.New("unknown console encoding")

// Parse converts a user-supplied name into a Kind. An empty name selects
// the kind of the running operating system.
func Parse(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "":
		return Detect(), nil
	case "posix", "sh", "bash", "zsh", "unix":
		return POSIX, nil
	case "windows", "cmd", "powershell", "pwsh":
		return Windows, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// Detect returns the kind matching runtime.GOOS.
func Detect() Kind {
	if runtime.GOOS == "windows" {
		return Windows
	}
	return POSIX
}

// Adapter translates the two primitives that differ between invocation
// contexts: printing a line and invoking an external process. Everything
// else, including step order and remediation text, is shared.
type Adapter struct {
	kind     Kind
	newline  string
	encoding encoding.Encoding

	runtimeCandidates []string
	pipCandidates     []string
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithRuntimeCandidates overrides the interpreter command names tried in order.
func WithRuntimeCandidates(names ...string) Option {
	return func(a *Adapter) {
		if len(names) > 0 {
			a.runtimeCandidates = names
		}
	}
}

// WithPipCandidates overrides the pip command names tried in order.
func WithPipCandidates(names ...string) Option {
	return func(a *Adapter) {
		if len(names) > 0 {
			a.pipCandidates = names
		}
	}
}

// WithEncoding sets the encoding used to decode process output.
func WithEncoding(enc encoding.Encoding) Option {
	return func(a *Adapter) {
		if enc != nil {
			a.encoding = enc
		}
	}
}

// New creates the adapter for a shell kind.
func New(kind Kind, opts ...Option) *Adapter {
	a := &Adapter{
		kind:     kind,
		newline:  "\n",
		encoding: encoding.Nop,
	}

	switch kind {
	case Windows:
		a.newline = "\r\n"
		a.runtimeCandidates = []string{"python", "py"}
		a.pipCandidates = []string{"pip", "pip3"}
	default:
		a.kind = POSIX
		a.runtimeCandidates = []string{"python3", "python"}
		a.pipCandidates = []string{"pip3", "pip"}
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Kind returns the adapter's shell kind.
func (a *Adapter) Kind() Kind {
	return a.kind
}

// Name returns the shell kind as a string.
func (a *Adapter) Name() string {
	return string(a.kind)
}

// RuntimeCandidates returns the interpreter command names in lookup order.
func (a *Adapter) RuntimeCandidates() []string {
	return append([]string(nil), a.runtimeCandidates...)
}

// PipCandidates returns the pip command names in lookup order.
func (a *Adapter) PipCandidates() []string {
	return append([]string(nil), a.pipCandidates...)
}

// Newline returns the line terminator of the shell.
func (a *Adapter) Newline() string {
	return a.newline
}

// Println writes line followed by the shell's line terminator.
func (a *Adapter) Println(w io.Writer, line string) error {
	_, err := io.WriteString(w, line+a.newline)
	return err
}

// Command builds the process for name and args. On Windows, batch files
// cannot be executed directly and are routed through cmd.exe.
//
// When ctx is cancelled the process is interrupted and killed only if it
// has not exited after WaitDelay. Windows cannot deliver an interrupt, so
// there the process is killed right away.
func (a *Adapter) Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	var cmd *exec.Cmd
	if a.kind == Windows && isBatchFile(name) {
		full := append([]string{"/C", name}, args...)
		cmd = exec.CommandContext(ctx, "cmd.exe", full...)
	} else {
		cmd = exec.CommandContext(ctx, name, args...)
	}

	if runtime.GOOS != "windows" {
		cmd.Cancel = func() error {
			return cmd.Process.Signal(os.Interrupt)
		}
	}
	cmd.WaitDelay = WaitDelay
	return cmd
}

// DecodeReader wraps r so process output is converted to UTF-8.
func (a *Adapter) DecodeReader(r io.Reader) io.Reader {
	if a.encoding == encoding.Nop {
		return r
	}
	return transform.NewReader(r, a.encoding.NewDecoder())
}

// Decode converts captured process output to UTF-8. Bytes that cannot be
// decoded are returned unchanged.
func (a *Adapter) Decode(b []byte) string {
	if a.encoding == encoding.Nop {
		return string(b)
	}
	out, err := a.encoding.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}

// LookupEncoding resolves a console encoding name such as "utf-8", "big5",
// "gbk" or "shift_jis". An empty name means no decoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return encoding.Nop, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	if canonical, _ := htmlindex.Name(enc); canonical == "utf-8" {
		return encoding.Nop, nil
	}
	return enc, nil
}

func isBatchFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".bat") || strings.HasSuffix(lower, ".cmd")
}
