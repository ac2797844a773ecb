package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/fortify-report/bootstrap/internal/host"
)

// ErrNothingToLaunch is returned when neither the entry-point file nor an
// entry script is available.
var ErrNothingToLaunch = errors.New("no entry point to launch")

// Launcher hands execution off to the tool once the checks passed.
type Launcher struct {
	tool        string
	entryPoint  string
	entryScript string
	logger      *slog.Logger
	onLaunch    func(command string)
}

// NewLauncher creates a launcher that starts the tool through the package
// manager.
func NewLauncher(o Options, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{
		tool:        o.PackageManager,
		entryPoint:  o.EntryPoint,
		entryScript: o.EntryScript,
		logger:      logger,
	}
}

// Command returns the launch command line. The entry-point file is
// preferred; the entry script is used when the file is absent.
func (l *Launcher) Command(env host.Environment) (string, []string, error) {
	path, err := env.LookPath(l.tool)
	if err != nil {
		return "", nil, err
	}

	if l.entryPoint != "" {
		if ok, err := env.Exists(l.entryPoint); err == nil && ok {
			return path, []string{"run", "python", l.entryPoint}, nil
		}
	}
	if l.entryScript != "" {
		return path, []string{"run", l.entryScript}, nil
	}
	return "", nil, ErrNothingToLaunch
}

// OnLaunch registers fn to be called with the command line right before
// the tool starts.
func (l *Launcher) OnLaunch(fn func(command string)) {
	l.onLaunch = fn
}

// Launch starts the tool and waits for it to exit. Errors from the tool's
// own exit status are returned as *host.ExitError.
func (l *Launcher) Launch(ctx context.Context, env host.Environment) error {
	name, args, err := l.Command(env)
	if err != nil {
		return fmt.Errorf("failed to prepare launch: %w", err)
	}

	l.logger.Info("handing off to tool", "command", name, "args", args)
	if l.onLaunch != nil {
		l.onLaunch(strings.Join(append([]string{filepath.Base(name)}, args...), " "))
	}

	return env.Launch(ctx, name, args...)
}

// Remediation returns the suggestions shown when the tool cannot be
// started.
func (l *Launcher) Remediation() []string {
	manual := fmt.Sprintf("%s run python %s", l.tool, l.entryPoint)
	if l.entryPoint == "" {
		manual = fmt.Sprintf("%s run %s", l.tool, l.entryScript)
	}
	return []string{
		"Start the tool manually from the project directory: " + manual,
		"If that fails too, reinstall the dependencies: " + l.tool + " sync --reinstall",
	}
}
