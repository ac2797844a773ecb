package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/fortify-report/bootstrap/internal/model"
	"github.com/fortify-report/bootstrap/internal/shell"
)

// Status line tags. Every tag has the same width so messages line up.
const (
	tagPass    = "[ OK ]"
	tagWarning = "[WARN]"
	tagFatal   = "[FAIL]"
	tagSkipped = "[SKIP]"
)

// indent aligns remediation bullets under the step message.
const indent = "       "

// Console prints step status lines as the pipeline runs, followed by a
// summary. It is the only place that knows about color and line endings.
type Console struct {
	baseWriter

	adapter *shell.Adapter
	verbose bool

	pass  lipgloss.Style
	warn  lipgloss.Style
	fail  lipgloss.Style
	skip  lipgloss.Style
	faint lipgloss.Style
	bold  lipgloss.Style

	mu  sync.Mutex
	err error
}

// ConsoleOption configures a Console.
type ConsoleOption func(*consoleOptions)

type consoleOptions struct {
	verbose bool
	noColor bool
	profile *termenv.Profile
}

// WithConsoleVerbose prints diagnostic output of warnings too. Diagnostic
// output of fatal failures is always printed.
func WithConsoleVerbose(verbose bool) ConsoleOption {
	return func(o *consoleOptions) {
		o.verbose = verbose
	}
}

// WithNoColor disables styling regardless of the terminal.
func WithNoColor(noColor bool) ConsoleOption {
	return func(o *consoleOptions) {
		o.noColor = noColor
	}
}

// WithColorProfile forces a color profile.
func WithColorProfile(profile termenv.Profile) ConsoleOption {
	return func(o *consoleOptions) {
		o.profile = &profile
	}
}

// ColorProfile picks the color profile for w. Styling is used only when w
// is a terminal, neither noColor nor NO_COLOR is set, and TERM is not dumb.
func ColorProfile(w io.Writer, noColor bool) termenv.Profile {
	if noColor {
		return termenv.Ascii
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return termenv.Ascii
	}
	if os.Getenv("TERM") == "dumb" {
		return termenv.Ascii
	}
	f, ok := w.(interface{ Fd() uintptr })
	if !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec // file descriptors fit in int
		return termenv.Ascii
	}
	return termenv.ANSI256
}

// NewConsole creates a Console writing to output with the adapter's line
// endings.
func NewConsole(output io.Writer, adapter *shell.Adapter, opts ...ConsoleOption) *Console {
	var o consoleOptions
	for _, opt := range opts {
		opt(&o)
	}
	if adapter == nil {
		adapter = shell.New(shell.Detect())
	}

	profile := ColorProfile(output, o.noColor)
	if o.profile != nil {
		profile = *o.profile
	}

	// SetColorProfile is needed because the renderer re-detects from the
	// environment otherwise.
	r := lipgloss.NewRenderer(output, termenv.WithProfile(profile))
	r.SetColorProfile(profile)

	return &Console{
		baseWriter: newBaseWriter(output),
		adapter:    adapter,
		verbose:    o.verbose,
		pass:       r.NewStyle().Foreground(lipgloss.Color("2")).Bold(true),
		warn:       r.NewStyle().Foreground(lipgloss.Color("3")).Bold(true),
		fail:       r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		skip:       r.NewStyle().Foreground(lipgloss.Color("8")),
		faint:      r.NewStyle().Faint(true),
		bold:       r.NewStyle().Bold(true),
	}
}

// Err returns the first write error seen by the observer methods.
func (c *Console) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Header prints the line announcing a run.
func (c *Console) Header(mode model.Mode, total int) {
	c.emit([]string{
		c.bold.Render(fmt.Sprintf("fortify-bootstrap %s", mode)) +
			c.faint.Render(fmt.Sprintf(" (%d checks, %s shell)", total, c.adapter.Name())),
	})
}

// StepFinished prints the status line of one step. It implements the
// pipeline observer.
func (c *Console) StepFinished(index, total int, record model.StepRecord) {
	lines := []string{
		fmt.Sprintf("%s %d/%d %s: %s", c.tag(record.Status), index, total, record.Name, record.Message),
	}

	if record.Status == model.StatusFatal || record.Status == model.StatusWarning {
		for _, r := range record.Remediation {
			lines = append(lines, indent+"- "+r)
		}
		if record.Detail != "" && (record.Status == model.StatusFatal || c.verbose) {
			for _, d := range strings.Split(record.Detail, "\n") {
				lines = append(lines, indent+c.faint.Render("| "+d))
			}
		}
	}

	c.emit(lines)
}

// Write prints the summary of a finished run.
func (c *Console) Write(result *model.PipelineResult) (int, error) {
	lines := []string{""}

	switch {
	case result.FailedStep != nil:
		lines = append(lines, c.fail.Render(fmt.Sprintf("Bootstrap halted at step %d (%s).",
			result.FailedStep.Index, result.FailedStep.Name)))
		lines = append(lines, "Fix the problem above and re-run this command.")
	case result.Cancelled:
		lines = append(lines, c.warn.Render(fmt.Sprintf("Bootstrap interrupted after %d step(s).", len(result.Steps))))
	default:
		lines = append(lines, c.pass.Render("Bootstrap complete.")+" "+c.counts(result))
	}

	if len(result.Warnings) > 0 {
		lines = append(lines, fmt.Sprintf("%d warning(s):", len(result.Warnings)))
		for _, w := range result.Warnings {
			lines = append(lines, fmt.Sprintf("  %s %s: %s", tagWarning, w.Name, w.Message))
		}
	}

	if skipped := skippedPieces(result); len(skipped) > 0 && result.FailedStep == nil {
		lines = append(lines, "Skipped optional pieces: "+strings.Join(skipped, ", "))
	}

	return c.write(lines)
}

// Launching announces the hand-off to the tool.
func (c *Console) Launching(command string) {
	c.emit([]string{"", c.bold.Render("Starting the tool: ") + command})
}

// ReportWritten tells the operator where the Markdown report went.
func (c *Console) ReportWritten(path string) {
	c.emit([]string{"Report written to " + path})
}

// LaunchFailed reports that the tool could not be started.
func (c *Console) LaunchFailed(err error, remediation []string) {
	lines := []string{fmt.Sprintf("%s Could not start the tool: %v", c.tag(model.StatusFatal), err)}
	for _, r := range remediation {
		lines = append(lines, indent+"- "+r)
	}
	c.emit(lines)
}

func (c *Console) tag(status model.Status) string {
	switch status {
	case model.StatusPass:
		return c.pass.Render(tagPass)
	case model.StatusWarning:
		return c.warn.Render(tagWarning)
	case model.StatusFatal:
		return c.fail.Render(tagFatal)
	default:
		return c.skip.Render(tagSkipped)
	}
}

func (c *Console) counts(result *model.PipelineResult) string {
	var passed int
	for _, s := range result.Steps {
		if s.Status == model.StatusPass {
			passed++
		}
	}
	return fmt.Sprintf("%d passed, %d warning(s), %d skipped", passed, len(result.Warnings), len(result.Skipped))
}

// skippedPieces names the optional pieces the run went without: missing
// optional files and disabled checks.
func skippedPieces(result *model.PipelineResult) []string {
	var names []string
	for _, s := range result.Steps {
		if s.Status == model.StatusSkipped || s.Kind == model.KindOptionalArtifactMissing {
			names = append(names, s.Name)
		}
	}
	return names
}

func (c *Console) emit(lines []string) {
	if _, err := c.write(lines); err != nil {
		c.mu.Lock()
		if c.err == nil {
			c.err = err
		}
		c.mu.Unlock()
	}
}

func (c *Console) write(lines []string) (int, error) {
	var sb strings.Builder
	for _, line := range lines {
		if err := c.adapter.Println(&sb, line); err != nil {
			return 0, err
		}
	}
	return io.WriteString(c.output, sb.String())
}
