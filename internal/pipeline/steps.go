package pipeline

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"

	"github.com/fortify-report/bootstrap/internal/config"
	"github.com/fortify-report/bootstrap/internal/host"
	"github.com/fortify-report/bootstrap/internal/model"
	"github.com/fortify-report/bootstrap/internal/shell"
)

const (
	pythonDownloadURL = "https://www.python.org/downloads/"
	pipInstallURL     = "https://pip.pypa.io/en/stable/installation/"
	uvInstallURL      = "https://docs.astral.sh/uv/getting-started/installation/"
	rerunAfterInstall = "Re-run this command after installing"
)

// Options carries everything the step constructors need.
type Options struct {
	// RuntimeCandidates are the interpreter names tried in order.
	RuntimeCandidates []string

	// PipCandidates are the pip names tried in order.
	PipCandidates []string

	// MinRuntimeVersion is the minimum interpreter version, "major.minor".
	MinRuntimeVersion string

	// PackageManager is the command installed through pip and used to sync.
	PackageManager string

	Manifest    string
	EntryPoint  string
	EntryScript string
	ToolConfig  string

	// InstallAttempts is how often the package manager install is tried.
	InstallAttempts int

	SkipVersionCheck bool
	Force            bool
}

// NewOptions builds step options from the configuration. Candidate names
// come from the shell adapter so both invocation contexts share one step
// definition.
func NewOptions(cfg *config.Config, adapter *shell.Adapter) Options {
	return Options{
		RuntimeCandidates: adapter.RuntimeCandidates(),
		PipCandidates:     adapter.PipCandidates(),
		MinRuntimeVersion: cfg.MinPythonVersion,
		PackageManager:    cfg.PackageManager,
		Manifest:          cfg.Manifest,
		EntryPoint:        cfg.EntryPoint,
		EntryScript:       cfg.EntryScript,
		ToolConfig:        cfg.ToolConfig,
		InstallAttempts:   cfg.InstallAttempts,
		SkipVersionCheck:  cfg.SkipVersionCheck,
		Force:             cfg.Force,
	}
}

// AllSteps returns every step in declared order.
func AllSteps(o Options) []Step {
	return []Step{
		NewRuntimePresenceStep(o.RuntimeCandidates, o.MinRuntimeVersion),
		NewRuntimeVersionStep(o.RuntimeCandidates, o.MinRuntimeVersion, o.SkipVersionCheck),
		NewPipPresenceStep(o.PipCandidates),
		NewToolInstallStep(o.PackageManager, o.PipCandidates, o.InstallAttempts, o.Force),
		NewManifestStep(o.Manifest),
		NewEntryPointStep(o.EntryPoint, o.EntryScript, o.PackageManager),
		NewSyncStep(o.PackageManager, o.Manifest, o.Force),
		NewConfigFileStep(o.ToolConfig),
	}
}

// InstallSteps returns the steps of the install command: everything except
// the entry-point check.
func InstallSteps(o Options) []Step {
	all := AllSteps(o)
	return []Step{all[0], all[1], all[2], all[3], all[4], all[6], all[7]}
}

// RunSteps returns the fast availability checks performed before launch.
func RunSteps(o Options) []Step {
	all := AllSteps(o)
	return []Step{all[0], all[2], all[3], all[5]}
}

// resolveFirst returns the first candidate that resolves on the search path.
func resolveFirst(env host.Environment, candidates []string) (name, path string, ok bool) {
	for _, c := range candidates {
		if p, err := env.LookPath(c); err == nil {
			return c, p, true
		}
	}
	return "", "", false
}

// RuntimePresenceStep checks that an interpreter command resolves.
type RuntimePresenceStep struct {
	candidates  []string
	remediation []string
}

// NewRuntimePresenceStep creates the runtime presence check.
func NewRuntimePresenceStep(candidates []string, minVersion string) *RuntimePresenceStep {
	return &RuntimePresenceStep{
		candidates: candidates,
		remediation: []string{
			fmt.Sprintf("Install Python %s or newer from %s", minVersion, pythonDownloadURL),
			"On Windows, tick \"Add python.exe to PATH\" in the installer",
			"On macOS run: brew install python; on Debian/Ubuntu run: sudo apt install python3 python3-pip",
			rerunAfterInstall,
		},
	}
}

// Name returns the step name.
func (s *RuntimePresenceStep) Name() string { return "Python runtime" }

// Severity returns the step severity.
func (s *RuntimePresenceStep) Severity() model.Severity { return model.SeverityFatal }

// Remediation returns the declared remediation list.
func (s *RuntimePresenceStep) Remediation() []string { return s.remediation }

// Check implements Step.
func (s *RuntimePresenceStep) Check(_ context.Context, env host.Environment) model.CheckResult {
	name, path, ok := resolveFirst(env, s.candidates)
	if !ok {
		return model.Fail(model.KindMissingDependency,
			fmt.Sprintf("no Python interpreter found on PATH (tried %s)", strings.Join(s.candidates, ", ")),
			s.remediation...)
	}
	return model.Pass(fmt.Sprintf("%s found at %s", name, path))
}

// versionPattern matches "Python 3.12.1" and "Python 3.8".
var versionPattern = regexp.MustCompile(`Python\s+(\d+)\.(\d+)(?:\.(\d+))?`)

// ParseRuntimeVersion extracts a semver string ("v3.12.1") from the
// interpreter's version output.
func ParseRuntimeVersion(output string) (string, bool) {
	m := versionPattern.FindStringSubmatch(output)
	if m == nil {
		return "", false
	}
	patch := m[3]
	if patch == "" {
		patch = "0"
	}
	v := fmt.Sprintf("v%s.%s.%s", m[1], m[2], patch)
	if !semver.IsValid(v) {
		return "", false
	}
	return v, true
}

// RuntimeVersionStep compares the interpreter version with the minimum.
type RuntimeVersionStep struct {
	candidates  []string
	minVersion  string
	skip        bool
	remediation []string
}

// NewRuntimeVersionStep creates the runtime version check. minVersion is
// "major.minor".
func NewRuntimeVersionStep(candidates []string, minVersion string, skip bool) *RuntimeVersionStep {
	return &RuntimeVersionStep{
		candidates: candidates,
		minVersion: minVersion,
		skip:       skip,
		remediation: []string{
			fmt.Sprintf("Upgrade to Python %s or newer from %s", minVersion, pythonDownloadURL),
			"The tool may still start, but some features can fail on older interpreters",
			"Pass --skip-version-check to silence this check",
		},
	}
}

// Name returns the step name.
func (s *RuntimeVersionStep) Name() string { return "Python version" }

// Severity returns the step severity.
func (s *RuntimeVersionStep) Severity() model.Severity { return model.SeverityWarning }

// Remediation returns the declared remediation list.
func (s *RuntimeVersionStep) Remediation() []string { return s.remediation }

// Check implements Step.
func (s *RuntimeVersionStep) Check(ctx context.Context, env host.Environment) model.CheckResult {
	if s.skip {
		return model.Skip("version check disabled by --skip-version-check")
	}

	name, path, ok := resolveFirst(env, s.candidates)
	if !ok {
		return model.Unexpected("Python interpreter no longer resolves on PATH", rerunAfterInstall)
	}

	out, err := env.Output(ctx, path, "--version")
	if err != nil {
		return model.Unexpected(fmt.Sprintf("%s --version failed: %v", name, err),
			fmt.Sprintf("Run %s --version manually and check that it prints a version", name),
		).WithDetail(out)
	}

	got, ok := ParseRuntimeVersion(out)
	if !ok {
		return model.Unexpected(fmt.Sprintf("could not read a version from %s --version", name),
			fmt.Sprintf("Run %s --version manually and check that it prints \"Python X.Y.Z\"", name),
		).WithDetail(out)
	}

	required := "v" + s.minVersion + ".0"
	if !semver.IsValid(required) {
		return model.Unexpected(fmt.Sprintf("minimum version %q is not of the form major.minor", s.minVersion),
			"Set min_python_version to a value such as 3.8 in the configuration file")
	}
	if semver.Compare(got, required) < 0 {
		return model.Fail(model.KindVersionBelowMinimum,
			fmt.Sprintf("Python %s is older than %s", strings.TrimPrefix(got, "v"), s.minVersion),
			s.remediation...)
	}
	return model.Pass(fmt.Sprintf("Python %s (>= %s)", strings.TrimPrefix(got, "v"), s.minVersion))
}

// CommandPresenceStep checks that one of several command names resolves.
type CommandPresenceStep struct {
	label       string
	candidates  []string
	remediation []string
}

// NewCommandPresenceStep creates a fatal presence check for a command.
func NewCommandPresenceStep(label string, candidates []string, remediation ...string) *CommandPresenceStep {
	return &CommandPresenceStep{label: label, candidates: candidates, remediation: remediation}
}

// NewPipPresenceStep creates the pip presence check.
func NewPipPresenceStep(candidates []string) *CommandPresenceStep {
	return NewCommandPresenceStep("pip", candidates,
		"Install pip: python3 -m ensurepip --upgrade (Windows: py -m ensurepip --upgrade)",
		"Or follow "+pipInstallURL,
		rerunAfterInstall,
	)
}

// Name returns the step name.
func (s *CommandPresenceStep) Name() string { return s.label }

// Severity returns the step severity.
func (s *CommandPresenceStep) Severity() model.Severity { return model.SeverityFatal }

// Remediation returns the declared remediation list.
func (s *CommandPresenceStep) Remediation() []string { return s.remediation }

// Check implements Step.
func (s *CommandPresenceStep) Check(_ context.Context, env host.Environment) model.CheckResult {
	name, path, ok := resolveFirst(env, s.candidates)
	if !ok {
		return model.Fail(model.KindMissingDependency,
			fmt.Sprintf("%s not found on PATH (tried %s)", s.label, strings.Join(s.candidates, ", ")),
			s.remediation...)
	}
	return model.Pass(fmt.Sprintf("%s found at %s", name, path))
}

// ToolInstallStep checks for the package manager and installs it through
// pip when it is missing.
type ToolInstallStep struct {
	tool        string
	pip         []string
	attempts    int
	force       bool
	remediation []string
}

// NewToolInstallStep creates the package manager check. attempts below one
// are treated as a single attempt.
func NewToolInstallStep(tool string, pip []string, attempts int, force bool) *ToolInstallStep {
	if attempts < 1 {
		attempts = 1
	}
	return &ToolInstallStep{
		tool:     tool,
		pip:      pip,
		attempts: attempts,
		force:    force,
		remediation: []string{
			fmt.Sprintf("Install %s manually: pip install %s", tool, tool),
			"Or use the standalone installer: " + uvInstallURL,
			"If pip installed into the user scheme, add its scripts directory to PATH (POSIX: ~/.local/bin, Windows: %APPDATA%\\Python\\Scripts)",
			rerunAfterInstall,
		},
	}
}

// Name returns the step name.
func (s *ToolInstallStep) Name() string { return s.tool }

// Severity returns the step severity.
func (s *ToolInstallStep) Severity() model.Severity { return model.SeverityFatal }

// Remediation returns the declared remediation list.
func (s *ToolInstallStep) Remediation() []string { return s.remediation }

// InstallArgs returns the pip arguments of the install action.
func (s *ToolInstallStep) InstallArgs() []string {
	if s.force {
		return []string{"install", "--upgrade", "--force-reinstall", s.tool}
	}
	return []string{"install", s.tool}
}

// Check implements Step.
func (s *ToolInstallStep) Check(ctx context.Context, env host.Environment) model.CheckResult {
	if path, err := env.LookPath(s.tool); err == nil && !s.force {
		return model.Pass(fmt.Sprintf("%s found at %s", s.tool, path))
	}

	pipName, pipPath, ok := resolveFirst(env, s.pip)
	if !ok {
		message := fmt.Sprintf("%s is not installed and pip is unavailable to install it", s.tool)
		if _, err := env.LookPath(s.tool); err == nil {
			message = fmt.Sprintf("%s is installed but pip is unavailable to reinstall it", s.tool)
		}
		return model.Fail(model.KindMissingDependency, message, s.remediation...)
	}

	var (
		out string
		err error
	)
	for attempt := 1; attempt <= s.attempts; attempt++ {
		out, err = env.Run(ctx, pipPath, s.InstallArgs()...)
		if err == nil || ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return model.Fail(model.KindMissingDependency,
			fmt.Sprintf("%s %s failed: %v", pipName, strings.Join(s.InstallArgs(), " "), err),
			s.remediation...,
		).WithDetail(out)
	}

	path, err := env.LookPath(s.tool)
	if err != nil {
		return model.Fail(model.KindMissingDependency,
			fmt.Sprintf("%s was installed but does not resolve on PATH", s.tool),
			s.remediation...,
		).WithDetail(out)
	}
	return model.Pass(fmt.Sprintf("%s installed at %s", s.tool, path))
}

// FileStep checks that a project file exists.
type FileStep struct {
	label       string
	path        string
	severity    model.Severity
	kind        model.Kind
	remediation []string
}

// NewFileStep creates a file existence check.
func NewFileStep(label, path string, severity model.Severity, kind model.Kind, remediation ...string) *FileStep {
	return &FileStep{label: label, path: path, severity: severity, kind: kind, remediation: remediation}
}

// NewManifestStep creates the fatal declaration file check.
func NewManifestStep(manifest string) *FileStep {
	return NewFileStep("Manifest ("+manifest+")", manifest, model.SeverityFatal, model.KindManifestMissing,
		fmt.Sprintf("Confirm the working directory is the project root containing %s", manifest),
		"Change into the project directory or pass it with --dir",
		"Re-download or re-clone the project if the file is missing",
	)
}

// NewEntryPointStep creates the optional entry-point file check.
func NewEntryPointStep(entryPoint, entryScript, tool string) *FileStep {
	remediation := []string{
		fmt.Sprintf("Confirm project files are complete: %s should be in the project root", entryPoint),
	}
	if entryScript != "" {
		remediation = append(remediation,
			fmt.Sprintf("The tool can still be started through its installed script: %s run %s", tool, entryScript))
	}
	return NewFileStep("Entry point ("+entryPoint+")", entryPoint, model.SeverityWarning, model.KindOptionalArtifactMissing,
		remediation...)
}

// Name returns the step name.
func (s *FileStep) Name() string { return s.label }

// Severity returns the step severity.
func (s *FileStep) Severity() model.Severity { return s.severity }

// Remediation returns the declared remediation list.
func (s *FileStep) Remediation() []string { return s.remediation }

// Check implements Step.
func (s *FileStep) Check(_ context.Context, env host.Environment) model.CheckResult {
	if s.path == "" {
		return model.Skip("not configured")
	}
	ok, err := env.Exists(s.path)
	if err != nil {
		return model.Unexpected(fmt.Sprintf("cannot access %s: %v", s.path, err), s.remediation...)
	}
	if !ok {
		return model.Fail(s.kind, fmt.Sprintf("%s not found in %s", s.path, env.Dir()), s.remediation...)
	}
	return model.Pass(s.path + " present")
}

// SyncStep synchronizes the project's dependencies through the package
// manager.
type SyncStep struct {
	tool        string
	manifest    string
	force       bool
	remediation []string
}

// NewSyncStep creates the dependency synchronization action.
func NewSyncStep(tool, manifest string, force bool) *SyncStep {
	return &SyncStep{
		tool:     tool,
		manifest: manifest,
		force:    force,
		remediation: []string{
			"Check network access to https://pypi.org (behind a proxy, set HTTPS_PROXY)",
			"Check write permission on the project directory and its .venv folder",
			fmt.Sprintf("Retry manually with diagnostics: %s sync --verbose", tool),
			"Fallback without " + tool + ": python -m pip install -e .",
		},
	}
}

// Name returns the step name.
func (s *SyncStep) Name() string { return "Dependency sync" }

// Severity returns the step severity.
func (s *SyncStep) Severity() model.Severity { return model.SeverityFatal }

// Remediation returns the declared remediation list.
func (s *SyncStep) Remediation() []string { return s.remediation }

// SyncArgs returns the arguments of the sync action.
func (s *SyncStep) SyncArgs() []string {
	if s.force {
		return []string{"sync", "--reinstall"}
	}
	return []string{"sync"}
}

// Check implements Step.
func (s *SyncStep) Check(ctx context.Context, env host.Environment) model.CheckResult {
	path, err := env.LookPath(s.tool)
	if err != nil {
		return model.Fail(model.KindMissingDependency,
			fmt.Sprintf("%s does not resolve on PATH", s.tool),
			fmt.Sprintf("Install %s first: pip install %s", s.tool, s.tool),
			rerunAfterInstall,
		)
	}

	out, err := env.Run(ctx, path, s.SyncArgs()...)
	if err != nil {
		msg := fmt.Sprintf("%s %s failed: %v", s.tool, strings.Join(s.SyncArgs(), " "), err)
		var exitErr *host.ExitError
		if errors.As(err, &exitErr) {
			msg = fmt.Sprintf("%s %s exited with status %d", s.tool, strings.Join(s.SyncArgs(), " "), exitErr.Code)
		}
		return model.Fail(model.KindSyncFailure, msg, s.remediation...).WithDetail(out)
	}
	return model.Pass("dependencies synchronized from " + s.manifest)
}

// ConfigFileStep checks the tool's own configuration file. A present file
// must be a non-empty YAML document.
type ConfigFileStep struct {
	path        string
	remediation []string
}

// NewConfigFileStep creates the optional configuration file check.
func NewConfigFileStep(path string) *ConfigFileStep {
	return &ConfigFileStep{
		path: path,
		remediation: []string{
			fmt.Sprintf("Set up configuration: create %s with the azure_devops section (organization, project) and the repositories list", path),
			"The Azure DevOps token can be supplied through the AZURE_DEVOPS_PAT environment variable instead of the file",
		},
	}
}

// Name returns the step name.
func (s *ConfigFileStep) Name() string { return "Tool configuration (" + s.path + ")" }

// Severity returns the step severity.
func (s *ConfigFileStep) Severity() model.Severity { return model.SeverityWarning }

// Remediation returns the declared remediation list.
func (s *ConfigFileStep) Remediation() []string { return s.remediation }

// Check implements Step.
func (s *ConfigFileStep) Check(_ context.Context, env host.Environment) model.CheckResult {
	if s.path == "" {
		return model.Skip("not configured")
	}
	ok, err := env.Exists(s.path)
	if err != nil {
		return model.Unexpected(fmt.Sprintf("cannot access %s: %v", s.path, err), s.remediation...)
	}
	if !ok {
		return model.Fail(model.KindOptionalArtifactMissing,
			fmt.Sprintf("%s not found in %s", s.path, env.Dir()), s.remediation...)
	}

	data, err := env.ReadFile(s.path)
	if err != nil {
		return model.Unexpected(fmt.Sprintf("cannot read %s: %v", s.path, err), s.remediation...)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return model.Unexpected(fmt.Sprintf("%s is not a valid YAML mapping", s.path),
			fmt.Sprintf("Fix the YAML syntax in %s", s.path),
		).WithDetail(err.Error())
	}
	if len(doc) == 0 {
		return model.Fail(model.KindOptionalArtifactMissing, s.path+" is empty", s.remediation...)
	}
	return model.Pass(s.path + " present")
}
