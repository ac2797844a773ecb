package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/fortify-report/bootstrap/internal/config"
	"github.com/fortify-report/bootstrap/internal/host"
	"github.com/fortify-report/bootstrap/internal/host/hosttest"
	"github.com/fortify-report/bootstrap/internal/model"
	"github.com/fortify-report/bootstrap/internal/report"
	"github.com/fortify-report/bootstrap/internal/shell"
)

// projectDir creates a project directory whose config file pins the
// POSIX shell, so the search never falls through to the user's files.
func projectDir(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.DefaultConfigFile), []byte("shell: posix\n"), 0600); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return dir
}

// healthyFake returns a machine on which every check passes.
func healthyFake(dir string) *hosttest.Fake {
	return hosttest.New(dir).
		AddCommand("python3").
		AddCommand("pip3").
		AddCommand("uv").
		SetOutput("python3 --version", "Python 3.12.1", nil).
		AddFile("pyproject.toml", "[project]\nname = \"fortify-report\"\n").
		AddFile("fortify_gui.py", "print('gui')\n").
		AddFile("config/config.yaml", "azure_devops:\n  organization: contoso\n")
}

// execute runs the root command against fake.
func execute(t *testing.T, fake *hosttest.Fake, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cmd := newRootCmd(func(*config.Config, *shell.Adapter, *slog.Logger, *cobra.Command) host.Environment {
		return fake
	})

	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)

	err = cmd.Execute()
	return out.String(), errOut.String(), err
}

// exitCode extracts the status carried by err; nil means 0.
func exitCode(t *testing.T, err error) int {
	t.Helper()

	if err == nil {
		return 0
	}
	var exitErr *exitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected an exit status, got %v", err)
	}
	return exitErr.code
}

// closedWriter fails every write.
type closedWriter struct{}

func (closedWriter) Write([]byte) (int, error) {
	return 0, os.ErrClosed
}

// TestInstallCommand tests the install command end to end.
func TestInstallCommand(t *testing.T) {
	t.Parallel()

	t.Run("healthy machine syncs and hands off", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir)

		stdout, _, err := execute(t, fake, "install", "-C", dir, "--no-color")
		if code := exitCode(t, err); code != 0 {
			t.Fatalf("expected exit 0, got %d: %s", code, stdout)
		}

		if fake.CallCount("uv sync") != 1 {
			t.Errorf("expected one uv sync, got calls %v", fake.Calls())
		}
		launches := fake.Launches()
		if len(launches) != 1 || launches[0] != "uv run python fortify_gui.py" {
			t.Errorf("expected hand-off to the entry point, got %v", launches)
		}
		for _, want := range []string{
			"fortify-bootstrap install (7 checks, posix shell)",
			"[ OK ] 1/7 Python runtime",
			"[ OK ] 6/7 Dependency sync",
			"Bootstrap complete. 7 passed, 0 warning(s), 0 skipped",
			"Starting the tool: uv run python fortify_gui.py",
		} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected %q in output:\n%s", want, stdout)
			}
		}
	})

	t.Run("no-launch stops after the checks", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir)

		_, _, err := execute(t, fake, "install", "-C", dir, "--no-launch")
		if code := exitCode(t, err); code != 0 {
			t.Fatalf("expected exit 0, got %d", code)
		}
		if len(fake.Launches()) != 0 {
			t.Errorf("expected no launch, got %v", fake.Launches())
		}
	})

	t.Run("missing pip halts with exit 1", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir).RemoveCommand("pip3")

		stdout, _, err := execute(t, fake, "install", "-C", dir, "--no-color")
		if code := exitCode(t, err); code != 1 {
			t.Fatalf("expected exit 1, got %d", code)
		}
		if fake.CallCount("uv sync") != 0 {
			t.Error("expected no sync after a fatal failure")
		}
		if len(fake.Launches()) != 0 {
			t.Error("expected no launch after a fatal failure")
		}
		if !strings.Contains(stdout, "[FAIL] 3/7 pip") {
			t.Errorf("expected pip failure line, got:\n%s", stdout)
		}
		if !strings.Contains(stdout, "Bootstrap halted at step 3 (pip).") {
			t.Errorf("expected halt summary, got:\n%s", stdout)
		}
	})

	t.Run("old python warns but still launches", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir).SetOutput("python3 --version", "Python 3.7.9", nil)

		stdout, _, err := execute(t, fake, "install", "-C", dir, "--no-color")
		if code := exitCode(t, err); code != 0 {
			t.Fatalf("expected exit 0, got %d", code)
		}
		if !strings.Contains(stdout, "[WARN] 2/7 Python version") || !strings.Contains(stdout, "1 warning(s):") {
			t.Errorf("expected version warning, got:\n%s", stdout)
		}
		if len(fake.Launches()) != 1 {
			t.Error("expected hand-off despite the warning")
		}
	})

	t.Run("skip-version-check does not query the interpreter", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir)

		stdout, _, err := execute(t, fake, "install", "-C", dir, "--no-color", "--skip-version-check", "--no-launch")
		if code := exitCode(t, err); code != 0 {
			t.Fatalf("expected exit 0, got %d", code)
		}
		if fake.CallCount("python3 --version") != 0 {
			t.Error("expected no version query")
		}
		if !strings.Contains(stdout, "[SKIP] 2/7 Python version") {
			t.Errorf("expected skipped version step, got:\n%s", stdout)
		}
	})

	t.Run("force reinstalls uv and dependencies", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir)

		_, _, err := execute(t, fake, "install", "-C", dir, "--force", "--no-launch")
		if code := exitCode(t, err); code != 0 {
			t.Fatalf("expected exit 0, got %d", code)
		}
		if fake.CallCount("pip3 install --upgrade --force-reinstall uv") != 1 {
			t.Errorf("expected forced uv install, got calls %v", fake.Calls())
		}
		if fake.CallCount("uv sync --reinstall") != 1 {
			t.Errorf("expected forced sync, got calls %v", fake.Calls())
		}
	})

	t.Run("json output keeps stdout machine readable", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir).RemoveFile("pyproject.toml")

		stdout, stderr, err := execute(t, fake, "install", "-C", dir, "--json")
		if code := exitCode(t, err); code != 1 {
			t.Fatalf("expected exit 1, got %d", code)
		}

		var parsed report.JSONReport
		if err := json.Unmarshal([]byte(stdout), &parsed); err != nil {
			t.Fatalf("expected JSON on stdout, got %q: %v", stdout, err)
		}
		if parsed.ExitCode != 1 || parsed.Result.FailedStep == nil {
			t.Fatalf("expected a failed step, got %+v", parsed)
		}
		if parsed.Result.FailedStep.Name != "Manifest (pyproject.toml)" {
			t.Errorf("expected manifest failure, got %q", parsed.Result.FailedStep.Name)
		}
		if !errors.Is(err, model.ErrManifestMissing) {
			t.Errorf("expected ErrManifestMissing, got %v", err)
		}
		if !strings.Contains(stderr, "[FAIL] 5/7 Manifest (pyproject.toml)") {
			t.Errorf("expected the checklist on stderr, got:\n%s", stderr)
		}
	})

	t.Run("console write failure is reported", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir)

		cmd := newRootCmd(func(*config.Config, *shell.Adapter, *slog.Logger, *cobra.Command) host.Environment {
			return fake
		})
		cmd.SetOut(closedWriter{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{"install", "-C", dir})

		err := cmd.Execute()
		if err == nil || !strings.Contains(err.Error(), "failed to write console output") {
			t.Errorf("expected console write error, got %v", err)
		}
		if len(fake.Launches()) != 0 {
			t.Error("expected no launch after a console failure")
		}
	})

	t.Run("markdown report is written", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir)
		reportPath := filepath.Join(t.TempDir(), "reports", "bootstrap.md")

		stdout, _, err := execute(t, fake, "install", "-C", dir, "--no-launch", "--report", reportPath)
		if code := exitCode(t, err); code != 0 {
			t.Fatalf("expected exit 0, got %d", code)
		}

		content, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("expected report file: %v", err)
		}
		if !strings.Contains(string(content), "# fortify-bootstrap Report") {
			t.Errorf("expected Markdown report, got:\n%s", content)
		}
		if !strings.Contains(stdout, "Report written to "+reportPath) {
			t.Errorf("expected report notice, got:\n%s", stdout)
		}
	})

	t.Run("windows shell uses CRLF and windows names", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := hosttest.New(dir).
			AddCommand("python").
			AddCommand("pip").
			AddCommand("uv").
			SetOutput("python --version", "Python 3.11.4", nil).
			AddFile("pyproject.toml", "[project]\n").
			AddFile("config/config.yaml", "a: 1\n")

		stdout, _, err := execute(t, fake, "install", "-C", dir, "--shell", "windows", "--no-launch")
		if code := exitCode(t, err); code != 0 {
			t.Fatalf("expected exit 0, got %d:\n%s", code, stdout)
		}
		if !strings.Contains(stdout, "windows shell)\r\n") {
			t.Errorf("expected CRLF header, got %q", stdout)
		}
		if strings.Contains(strings.ReplaceAll(stdout, "\r\n", ""), "\n") {
			t.Errorf("expected only CRLF line endings, got %q", stdout)
		}
	})
}

// TestRunCommand tests the run command end to end.
func TestRunCommand(t *testing.T) {
	t.Parallel()

	t.Run("runs the fast checks and hands off", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir)

		stdout, _, err := execute(t, fake, "run", "-C", dir, "--no-color")
		if code := exitCode(t, err); code != 0 {
			t.Fatalf("expected exit 0, got %d", code)
		}
		if fake.CallCount("uv sync") != 0 || fake.CallCount("python3 --version") != 0 {
			t.Errorf("expected no sync and no version query, got calls %v", fake.Calls())
		}
		if !strings.Contains(stdout, "fortify-bootstrap run (4 checks, posix shell)") {
			t.Errorf("expected run header, got:\n%s", stdout)
		}
		if launches := fake.Launches(); len(launches) != 1 || launches[0] != "uv run python fortify_gui.py" {
			t.Errorf("expected hand-off, got %v", launches)
		}
	})

	t.Run("missing entry point falls back to the entry script", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir).RemoveFile("fortify_gui.py")

		stdout, _, err := execute(t, fake, "run", "-C", dir, "--no-color")
		if code := exitCode(t, err); code != 0 {
			t.Fatalf("expected exit 0, got %d", code)
		}
		if !strings.Contains(stdout, "[WARN] 4/4 Entry point (fortify_gui.py)") {
			t.Errorf("expected entry point warning, got:\n%s", stdout)
		}
		if launches := fake.Launches(); len(launches) != 1 || launches[0] != "uv run fortify-gui" {
			t.Errorf("expected entry script hand-off, got %v", launches)
		}
	})

	t.Run("missing runtime halts before anything else", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir).RemoveCommand("python3")

		stdout, _, err := execute(t, fake, "run", "-C", dir, "--no-color")
		if code := exitCode(t, err); code != 1 {
			t.Fatalf("expected exit 1, got %d", code)
		}
		if len(fake.Calls()) != 0 {
			t.Errorf("expected no commands, got %v", fake.Calls())
		}
		if !strings.Contains(stdout, "[FAIL] 1/4 Python runtime") {
			t.Errorf("expected runtime failure, got:\n%s", stdout)
		}
	})

	t.Run("tool exit status does not fail the bootstrap", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir).OnRun("uv run python fortify_gui.py", func(*hosttest.Fake) (string, error) {
			return "", &host.ExitError{Command: "uv", Code: 3}
		})

		_, _, err := execute(t, fake, "run", "-C", dir)
		if code := exitCode(t, err); code != 0 {
			t.Errorf("expected exit 0, got %d", code)
		}
	})

	t.Run("tool that cannot start exits 1", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		fake := healthyFake(dir).OnRun("uv run python fortify_gui.py", func(*hosttest.Fake) (string, error) {
			return "", errors.New("exec format error")
		})

		stdout, _, err := execute(t, fake, "run", "-C", dir, "--no-color")
		if code := exitCode(t, err); code != 1 {
			t.Fatalf("expected exit 1, got %d", code)
		}
		if !strings.Contains(stdout, "[FAIL] Could not start the tool: exec format error") {
			t.Errorf("expected launch failure, got:\n%s", stdout)
		}
		if !strings.Contains(stdout, "uv sync --reinstall") {
			t.Errorf("expected launch remediation, got:\n%s", stdout)
		}
	})
}

// TestBuildConfig tests configuration errors surfaced by the commands.
func TestBuildConfig(t *testing.T) {
	t.Parallel()

	t.Run("missing project directory", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "nope")
		_, _, err := execute(t, hosttest.New(missing), "run", "-C", missing)
		if err == nil || !strings.Contains(err.Error(), "configuration error") {
			t.Fatalf("expected configuration error, got %v", err)
		}
		if !errors.Is(err, config.ErrInvalidDir) {
			t.Errorf("expected ErrInvalidDir, got %v", err)
		}
	})

	t.Run("explicit config file must exist", func(t *testing.T) {
		t.Parallel()

		dir := projectDir(t)
		_, _, err := execute(t, healthyFake(dir), "run", "-C", dir, "-c", filepath.Join(dir, "missing.yaml"))
		if err == nil || !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("invalid file values are rejected", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, config.DefaultConfigFile)
		if err := os.WriteFile(path, []byte("min_python_version: three\n"), 0600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		_, _, err := execute(t, healthyFake(dir), "run", "-C", dir)
		if !errors.Is(err, config.ErrInvalidMinVersion) {
			t.Errorf("expected ErrInvalidMinVersion, got %v", err)
		}
	})

	t.Run("flags override the file", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		path := filepath.Join(dir, config.DefaultConfigFile)
		if err := os.WriteFile(path, []byte("shell: posix\nmanifest: deps.toml\n"), 0600); err != nil {
			t.Fatalf("failed to write config file: %v", err)
		}

		cmd := NewInstallCmd(osEnvironment)
		cmd.Flags().AddFlagSet(newRootCmd(osEnvironment).PersistentFlags())
		if err := cmd.ParseFlags([]string{"-C", dir, "--shell", "windows", "-f"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		cfg, err := buildConfig(cmd)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Shell != "windows" {
			t.Errorf("expected shell flag to win, got %q", cfg.Shell)
		}
		if cfg.Manifest != "deps.toml" {
			t.Errorf("expected manifest from file, got %q", cfg.Manifest)
		}
		if !cfg.Force {
			t.Error("expected force from flag")
		}
	})
}
